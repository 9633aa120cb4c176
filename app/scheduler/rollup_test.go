package scheduler

import (
	"testing"
	"time"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detail(campaignID, adSetID, adID uint, day time.Time, impressions int64, spend string) *models.MetricRecord {
	return &models.MetricRecord{
		WorkspaceID: 7,
		CampaignID:  campaignID,
		AdSetID:     adSetID,
		AdID:        adID,
		Date:        day,
		Impressions: impressions,
		Clicks:      impressions / 10,
		Spend:       decimal.RequireFromString(spend),
	}
}

func TestRollUpDetailRows(t *testing.T) {
	day1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	t.Run("AdSetRowWinsOverItsAds", func(t *testing.T) {
		rows := []*models.MetricRecord{
			detail(1, 10, 0, day1, 100, "10.00"),
			detail(1, 10, 100, day1, 30, "3.00"),
			detail(1, 10, 101, day1, 50, "5.00"),
		}
		out, skipped := RollUpDetailRows(rows)
		require.Len(t, out, 1)
		assert.Zero(t, skipped)
		assert.Equal(t, int64(100), out[0].Impressions)
		assert.True(t, decimal.RequireFromString("10").Equal(out[0].Spend))
	})

	t.Run("AdsSumWhenAdSetHasNoRow", func(t *testing.T) {
		rows := []*models.MetricRecord{
			detail(1, 10, 0, day1, 100, "10.00"),
			detail(1, 11, 200, day1, 40, "2.00"),
			detail(1, 11, 201, day1, 60, "3.50"),
		}
		out, _ := RollUpDetailRows(rows)
		require.Len(t, out, 1)
		r := out[0]
		assert.Equal(t, uint(1), r.CampaignID)
		assert.Zero(t, r.AdSetID)
		assert.Zero(t, r.AdID)
		assert.Equal(t, uint(7), r.WorkspaceID)
		assert.Equal(t, int64(200), r.Impressions)
		assert.Equal(t, int64(20), r.Clicks)
		assert.True(t, decimal.RequireFromString("15.50").Equal(r.Spend), r.Spend.String())
	})

	t.Run("OneRowPerCampaignAndDaySorted", func(t *testing.T) {
		rows := []*models.MetricRecord{
			detail(2, 20, 0, day2, 5, "1"),
			detail(1, 10, 0, day2, 7, "1"),
			detail(1, 10, 0, day1.Add(15*time.Hour), 9, "1"),
		}
		out, _ := RollUpDetailRows(rows)
		require.Len(t, out, 3)
		assert.Equal(t, uint(1), out[0].CampaignID)
		assert.Equal(t, day1, out[0].Date)
		assert.Equal(t, int64(9), out[0].Impressions)
		assert.Equal(t, uint(1), out[1].CampaignID)
		assert.Equal(t, day2, out[1].Date)
		assert.Equal(t, uint(2), out[2].CampaignID)
	})

	t.Run("AdRowsWithoutAdSetAreSkipped", func(t *testing.T) {
		out, skipped := RollUpDetailRows([]*models.MetricRecord{detail(1, 0, 300, day1, 10, "1")})
		assert.Empty(t, out)
		assert.Equal(t, 1, skipped)
	})

	t.Run("Empty", func(t *testing.T) {
		out, skipped := RollUpDetailRows(nil)
		assert.Empty(t, out)
		assert.Zero(t, skipped)
	})
}
