package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plain-text password of every fixture user
const TestPassword = "TestPass123!"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestWorkspace creates an active workspace with a random slug
func (tf *TestFixtures) CreateTestWorkspace() (*models.Workspace, error) {
	suffix := rand.Intn(100000000)
	ws := &models.Workspace{
		Name: fmt.Sprintf("Acme %d", suffix),
		Slug: fmt.Sprintf("acme-%d", suffix),
	}
	if err := tf.DB.DB.Create(ws).Error; err != nil {
		return nil, fmt.Errorf("failed to create test workspace: %w", err)
	}
	return ws, nil
}

// CreateTestUser creates a user with TestPassword inside the workspace
func (tf *TestFixtures) CreateTestUser(workspaceID uint, role models.UserRole) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		WorkspaceID:  workspaceID,
		Email:        fmt.Sprintf("jane.doe.%d.%09d@example.com", workspaceID, rand.Intn(1000000000)),
		PasswordHash: string(hashed),
		FullName:     "Jane Doe",
		Role:         role,
	}
	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}
	return user, nil
}

// CreateTestCampaign creates a meta campaign with the given status starting a week ago
func (tf *TestFixtures) CreateTestCampaign(workspaceID uint, name string, status models.DeliveryStatus) (*models.Campaign, error) {
	campaign := &models.Campaign{
		WorkspaceID: workspaceID,
		Name:        name,
		Platform:    models.PlatformMeta,
		Objective:   models.Objective("traffic"),
		Budget:      decimal.NewFromInt(100),
		BudgetType:  models.BudgetTypeDaily,
		Status:      status,
		StartDate:   utils.DateOnly(time.Now().AddDate(0, 0, -7)),
	}
	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}
	return campaign, nil
}

// CreateTestAdSet creates a draft ad set under the campaign
func (tf *TestFixtures) CreateTestAdSet(campaign *models.Campaign, name string) (*models.AdSet, error) {
	adSet := &models.AdSet{
		WorkspaceID: campaign.WorkspaceID,
		CampaignID:  campaign.ID,
		Name:        name,
		Targeting:   models.Targeting{AgeMin: 18, AgeMax: 45, Locations: []string{"US"}},
		Budget:      decimal.NewFromInt(25),
	}
	if err := tf.DB.DB.Create(adSet).Error; err != nil {
		return nil, fmt.Errorf("failed to create test ad set: %w", err)
	}
	return adSet, nil
}

// CreateTestMetric stores one campaign-level metric row
func (tf *TestFixtures) CreateTestMetric(campaign *models.Campaign, date time.Time, impressions, clicks int64, spend string) (*models.MetricRecord, error) {
	record := &models.MetricRecord{
		WorkspaceID: campaign.WorkspaceID,
		CampaignID:  campaign.ID,
		Date:        date,
		Impressions: impressions,
		Clicks:      clicks,
		Spend:       decimal.RequireFromString(spend),
	}
	if err := tf.DB.DB.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to create test metric: %w", err)
	}
	return record, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(workspaceID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		WorkspaceID: workspaceID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
