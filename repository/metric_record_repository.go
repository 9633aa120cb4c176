package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sumMetricColumns = "COALESCE(SUM(impressions), 0) AS impressions, " +
	"COALESCE(SUM(clicks), 0) AS clicks, " +
	"COALESCE(SUM(conversions), 0) AS conversions, " +
	"COALESCE(SUM(reach), 0) AS reach, " +
	"COALESCE(SUM(spend), 0) AS spend, " +
	"COALESCE(SUM(revenue), 0) AS revenue"

// MetricRecordRepositoryImpl implements MetricRecordRepository
type MetricRecordRepositoryImpl struct {
	*BaseRepository[models.MetricRecord, models.MetricRecordFilter]
}

// NewMetricRecordRepository creates a new metric record repository
func NewMetricRecordRepository(db *gorm.DB) MetricRecordRepository {
	return &MetricRecordRepositoryImpl{
		BaseRepository: NewBaseRepository[models.MetricRecord, models.MetricRecordFilter](db),
	}
}

type metricKey struct {
	campaignID uint
	adSetID    uint
	adID       uint
	date       string
}

func keyOf(m *models.MetricRecord) metricKey {
	return metricKey{m.CampaignID, m.AdSetID, m.AdID, m.Date.Format("2006-01-02")}
}

// Upsert inserts records or overwrites the counters of existing (campaign, ad set, ad, date) rows.
// When the batch repeats a key the last occurrence wins.
func (r *MetricRecordRepositoryImpl) Upsert(ctx context.Context, records []*models.MetricRecord) (UpsertResult, error) {
	var result UpsertResult
	if len(records) == 0 {
		return result, nil
	}

	order := make([]metricKey, 0, len(records))
	byKey := make(map[metricKey]*models.MetricRecord, len(records))
	for _, rec := range records {
		rec.Date = utils.DateOnly(rec.Date)
		k := keyOf(rec)
		if _, seen := byKey[k]; !seen {
			order = append(order, k)
		}
		byKey[k] = rec
	}
	unique := make([]*models.MetricRecord, 0, len(order))
	tuples := make([][]any, 0, len(order))
	for _, k := range order {
		rec := byKey[k]
		unique = append(unique, rec)
		tuples = append(tuples, []any{rec.CampaignID, rec.AdSetID, rec.AdID, rec.Date})
	}

	err := r.write(ctx, func(db *gorm.DB) error {
		var existing int64
		if err := db.Model(&models.MetricRecord{}).
			Where("(campaign_id, ad_set_id, ad_id, date) IN ?", tuples).
			Count(&existing).Error; err != nil {
			return err
		}

		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "campaign_id"}, {Name: "ad_set_id"}, {Name: "ad_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"impressions", "clicks", "conversions", "reach", "spend", "revenue", "updated_at",
			}),
		}).CreateInBatches(unique, 100).Error
		if err != nil {
			return err
		}

		result.Updated = int(existing)
		result.Created = len(unique) - int(existing)
		return nil
	})
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to upsert metric records: %w", err)
	}

	return result, nil
}

// Totals sums campaign-level rows matching the filter
func (r *MetricRecordRepositoryImpl) Totals(ctx context.Context, filter models.MetricRecordFilter) (MetricTotals, error) {
	var totals MetricTotals
	db := r.getDB(ctx)
	err := campaignLevel(r.applyFilter(db.Model(&models.MetricRecord{}), filter)).
		Select(sumMetricColumns).
		Scan(&totals).Error
	if err != nil {
		return MetricTotals{}, fmt.Errorf("failed to sum metric records: %w", err)
	}
	return totals, nil
}

// DailyTotals sums campaign-level rows per date, ordered by date
func (r *MetricRecordRepositoryImpl) DailyTotals(ctx context.Context, filter models.MetricRecordFilter) ([]DailyMetricTotals, error) {
	var rows []DailyMetricTotals
	db := r.getDB(ctx)
	err := campaignLevel(r.applyFilter(db.Model(&models.MetricRecord{}), filter)).
		Select("date, " + sumMetricColumns).
		Group("date").
		Order("date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum metric records by day: %w", err)
	}
	return rows, nil
}

// TotalsByCampaign sums campaign-level rows per campaign, ordered by campaign id
func (r *MetricRecordRepositoryImpl) TotalsByCampaign(ctx context.Context, filter models.MetricRecordFilter) ([]CampaignMetricTotals, error) {
	var rows []CampaignMetricTotals
	db := r.getDB(ctx)
	err := campaignLevel(r.applyFilter(db.Model(&models.MetricRecord{}), filter)).
		Select("campaign_id, " + sumMetricColumns).
		Group("campaign_id").
		Order("campaign_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum metric records by campaign: %w", err)
	}
	return rows, nil
}

// DetailRows returns ad-set and ad level rows matching the filter
func (r *MetricRecordRepositoryImpl) DetailRows(ctx context.Context, filter models.MetricRecordFilter) ([]*models.MetricRecord, error) {
	var rows []*models.MetricRecord
	db := r.getDB(ctx)
	err := r.applyFilter(db, filter).
		Where("(ad_set_id <> 0 OR ad_id <> 0)").
		Order("campaign_id ASC, date ASC, ad_set_id ASC, ad_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load detail metric rows: %w", err)
	}
	return rows, nil
}

func campaignLevel(db *gorm.DB) *gorm.DB {
	return db.Where("ad_set_id = 0 AND ad_id = 0")
}

// ByFilter retrieves metric records based on filter criteria
func (r *MetricRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.MetricRecordFilter, orderBy string, limit, offset int) ([]*models.MetricRecord, error) {
	db := r.getDB(ctx)
	var records []*models.MetricRecord
	if err := paginate(r.applyFilter(db, filter), orderBy, limit, offset).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to find metric records: %w", err)
	}
	return records, nil
}

// Count returns the number of metric records matching the filter
func (r *MetricRecordRepositoryImpl) Count(ctx context.Context, filter models.MetricRecordFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	if err := r.applyFilter(db.Model(&models.MetricRecord{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count metric records: %w", err)
	}
	return count, nil
}

// Exists checks if any metric record matches the filter
func (r *MetricRecordRepositoryImpl) Exists(ctx context.Context, filter models.MetricRecordFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MetricRecordRepositoryImpl) applyFilter(db *gorm.DB, filter models.MetricRecordFilter) *gorm.DB {
	if filter.WorkspaceID != nil {
		db = db.Where("workspace_id = ?", *filter.WorkspaceID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if len(filter.CampaignIDs) > 0 {
		db = db.Where("campaign_id IN ?", filter.CampaignIDs)
	}
	if filter.AdSetID != nil {
		db = db.Where("ad_set_id = ?", *filter.AdSetID)
	}
	if filter.AdID != nil {
		db = db.Where("ad_id = ?", *filter.AdID)
	}
	if filter.DateFrom != nil {
		db = db.Where("date >= ?", dateParam(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		db = db.Where("date <= ?", dateParam(*filter.DateTo))
	}
	return db
}

// dateParam renders a bound as a calendar date so comparisons against the DATE column
// follow the caller's day rather than the instant's UTC day
func dateParam(t time.Time) string {
	return t.Format("2006-01-02")
}
