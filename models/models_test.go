package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformObjectives(t *testing.T) {
	assert.Contains(t, ObjectivesFor(PlatformMeta), Objective("leads"))
	assert.Contains(t, ObjectivesFor(PlatformTikTok), Objective("video_views"))
	assert.Nil(t, ObjectivesFor("myspace"))

	assert.True(t, IsValidObjective(PlatformGoogle, "website_traffic"))
	assert.False(t, IsValidObjective(PlatformMeta, "website_traffic"))
	assert.False(t, IsValidObjective("myspace", "traffic"))

	opts := PlatformOptions()
	require.Len(t, opts, 3)
	assert.Equal(t, PlatformMeta, opts[0].Value)
	assert.Equal(t, "Meta Ads", opts[0].Label)
	assert.Len(t, opts[0].Objectives, len(ObjectivesFor(PlatformMeta)))
	for _, o := range opts {
		for _, obj := range o.Objectives {
			assert.True(t, IsValidObjective(o.Value, Objective(obj.Value)))
			assert.NotEmpty(t, obj.Label)
		}
	}
}

func TestPlatformScanValue(t *testing.T) {
	var p Platform
	require.NoError(t, p.Scan([]byte("google")))
	assert.Equal(t, PlatformGoogle, p)

	_, err := Platform("friendster").Value()
	assert.Error(t, err)
}

func TestBidStrategies(t *testing.T) {
	strategies := BidStrategies()
	require.Len(t, strategies, 4)
	for _, s := range strategies {
		assert.True(t, BidStrategy(s.Value).Valid())
	}
	assert.False(t, BidStrategyLowestCost.RequiresBidAmount())
	assert.True(t, BidStrategyCostCap.RequiresBidAmount())
	assert.False(t, BidStrategy("max_clicks").Valid())
}

func TestTargeting(t *testing.T) {
	valid := Targeting{AgeMin: 18, AgeMax: 34, Genders: []string{"female"}, Locations: []string{"US"}}
	assert.NoError(t, valid.Validate())

	assert.Error(t, Targeting{AgeMin: 12, AgeMax: 30}.Validate())
	assert.Error(t, Targeting{AgeMin: 18, AgeMax: 66}.Validate())
	assert.Error(t, Targeting{AgeMin: 40, AgeMax: 30}.Validate())

	raw, err := valid.Value()
	require.NoError(t, err)

	var scanned Targeting
	require.NoError(t, scanned.Scan(raw))
	assert.Equal(t, valid, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Equal(t, Targeting{}, scanned)
	assert.Error(t, scanned.Scan(3.14))
}

func TestMetricRecordRow(t *testing.T) {
	rec := &MetricRecord{
		Impressions: 1000,
		Clicks:      25,
		Spend:       decimal.RequireFromString("12.34"),
		Revenue:     decimal.RequireFromString("56.78"),
	}
	row := rec.Row()
	assert.Equal(t, int64(1000), row.Impressions)
	assert.InDelta(t, 12.34, row.Spend, 1e-9)
	assert.InDelta(t, 56.78, row.Revenue, 1e-9)
}

func TestNotificationVisibility(t *testing.T) {
	broadcast := &Notification{}
	assert.True(t, broadcast.VisibleTo(7))

	uid := uint(7)
	direct := &Notification{UserID: &uid}
	assert.True(t, direct.VisibleTo(7))
	assert.False(t, direct.VisibleTo(8))
}

func TestSyncJobStatus(t *testing.T) {
	assert.True(t, SyncJobStatusPending.IsActive())
	assert.True(t, SyncJobStatusRunning.IsActive())
	assert.False(t, SyncJobStatusCompleted.IsActive())
	assert.True(t, SyncJobStatusCancelled.IsFinished())
	assert.False(t, SyncJobStatus("queued").Valid())
	assert.True(t, SyncTypeMetrics.Valid())
	assert.False(t, SyncType("partial").Valid())
}

func TestUserRole(t *testing.T) {
	assert.True(t, UserRoleOwner.CanManage())
	assert.True(t, UserRoleAdmin.CanManage())
	assert.False(t, UserRoleMember.CanManage())
	assert.False(t, UserRole("guest").Valid())
}
