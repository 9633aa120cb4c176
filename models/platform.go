package models

import (
	"database/sql/driver"
	"fmt"
)

// Platform is the ad network a campaign runs on
type Platform string

const (
	PlatformMeta   Platform = "meta"
	PlatformGoogle Platform = "google"
	PlatformTikTok Platform = "tiktok"
)

// Objective is a platform-specific campaign goal
type Objective string

// BudgetType selects whether a budget is spent per day or over the whole flight
type BudgetType string

const (
	BudgetTypeDaily    BudgetType = "daily"
	BudgetTypeLifetime BudgetType = "lifetime"
)

// BidStrategy controls how an ad set bids in auctions
type BidStrategy string

const (
	BidStrategyLowestCost BidStrategy = "lowest_cost"
	BidStrategyCostCap    BidStrategy = "cost_cap"
	BidStrategyBidCap     BidStrategy = "bid_cap"
	BidStrategyTargetROAS BidStrategy = "target_roas"
)

// Option is a value/label pair for client-side selects
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// PlatformOption describes one platform and the objectives it supports
type PlatformOption struct {
	Value      Platform `json:"value"`
	Label      string   `json:"label"`
	Objectives []Option `json:"objectives"`
}

type objectiveDef struct {
	value Objective
	label string
}

var platformLabels = map[Platform]string{
	PlatformMeta:   "Meta Ads",
	PlatformGoogle: "Google Ads",
	PlatformTikTok: "TikTok Ads",
}

var platformObjectives = map[Platform][]objectiveDef{
	PlatformMeta: {
		{"awareness", "Awareness"},
		{"traffic", "Traffic"},
		{"engagement", "Engagement"},
		{"leads", "Leads"},
		{"app_promotion", "App promotion"},
		{"sales", "Sales"},
	},
	PlatformGoogle: {
		{"sales", "Sales"},
		{"leads", "Leads"},
		{"website_traffic", "Website traffic"},
		{"brand_consideration", "Product and brand consideration"},
		{"brand_awareness", "Brand awareness and reach"},
		{"app_promotion", "App promotion"},
		{"local_store_visits", "Local store visits"},
	},
	PlatformTikTok: {
		{"reach", "Reach"},
		{"traffic", "Traffic"},
		{"video_views", "Video views"},
		{"community_interaction", "Community interaction"},
		{"app_promotion", "App promotion"},
		{"lead_generation", "Lead generation"},
		{"website_conversions", "Website conversions"},
		{"product_sales", "Product sales"},
	},
}

var bidStrategyLabels = []Option{
	{Value: string(BidStrategyLowestCost), Label: "Lowest cost"},
	{Value: string(BidStrategyCostCap), Label: "Cost cap"},
	{Value: string(BidStrategyBidCap), Label: "Bid cap"},
	{Value: string(BidStrategyTargetROAS), Label: "Target ROAS"},
}

// AllPlatforms returns the supported platforms in display order
func AllPlatforms() []Platform {
	return []Platform{PlatformMeta, PlatformGoogle, PlatformTikTok}
}

// String returns the string representation of the platform
func (p Platform) String() string {
	return string(p)
}

// Valid checks if the platform is supported
func (p Platform) Valid() bool {
	_, ok := platformObjectives[p]
	return ok
}

// DisplayName returns the human-readable platform name
func (p Platform) DisplayName() string {
	if label, ok := platformLabels[p]; ok {
		return label
	}
	return "Unknown"
}

// Scan implements the sql.Scanner interface for Platform
func (p *Platform) Scan(value any) error {
	if value == nil {
		*p = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*p = Platform(v)
	case []byte:
		*p = Platform(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Platform", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for Platform
func (p Platform) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid Platform: %s", p)
	}
	return string(p), nil
}

// ObjectivesFor returns the objectives available on platform, or nil for an unknown platform
func ObjectivesFor(platform Platform) []Objective {
	defs, ok := platformObjectives[platform]
	if !ok {
		return nil
	}
	out := make([]Objective, len(defs))
	for i, d := range defs {
		out[i] = d.value
	}
	return out
}

// IsValidObjective reports whether objective belongs to platform
func IsValidObjective(platform Platform, objective Objective) bool {
	for _, d := range platformObjectives[platform] {
		if d.value == objective {
			return true
		}
	}
	return false
}

// PlatformOptions returns every platform with its labelled objectives
func PlatformOptions() []PlatformOption {
	platforms := AllPlatforms()
	out := make([]PlatformOption, 0, len(platforms))
	for _, p := range platforms {
		defs := platformObjectives[p]
		objectives := make([]Option, len(defs))
		for i, d := range defs {
			objectives[i] = Option{Value: string(d.value), Label: d.label}
		}
		out = append(out, PlatformOption{Value: p, Label: p.DisplayName(), Objectives: objectives})
	}
	return out
}

// BidStrategies returns the labelled bid strategies
func BidStrategies() []Option {
	out := make([]Option, len(bidStrategyLabels))
	copy(out, bidStrategyLabels)
	return out
}

// Valid checks if the budget type is supported
func (b BudgetType) Valid() bool {
	return b == BudgetTypeDaily || b == BudgetTypeLifetime
}

// Valid checks if the bid strategy is supported
func (b BidStrategy) Valid() bool {
	switch b {
	case BidStrategyLowestCost, BidStrategyCostCap, BidStrategyBidCap, BidStrategyTargetROAS:
		return true
	default:
		return false
	}
}

// RequiresBidAmount reports whether the strategy needs an explicit bid or target
func (b BidStrategy) RequiresBidAmount() bool {
	return b == BidStrategyCostCap || b == BidStrategyBidCap || b == BidStrategyTargetROAS
}
