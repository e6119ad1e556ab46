package entity

import (
	"time"

	"github.com/google/uuid"
)

// Engagement is one row of the incentives catalog.
type Engagement struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name          string    `gorm:"index"`
	Goal          string
	Workload      string    `gorm:"index"`
	IncentiveType string    `gorm:"index"`
	Segment       string

	CustomerQualification      string
	PartnerQualification       string
	SolutionPartnerDesignation string
	PartnerSpecialization      string

	IncentiveMarketA        string
	IncentiveMarketB        string
	IncentiveMarketC        string
	MaximumIncentiveEarning string
	EnterpriseRate          string
	SmecRate                string
	WorkshopRateHourlyA     string
	WorkshopRateHourlyB     string
	WorkshopRateHourlyC     string

	ActivityRequirement string
	MinHours            string

	CreatedAt time.Time
	UpdatedAt *time.Time
}

func (Engagement) TableName() string {
	return "incentives"
}

// Synonym maps an accepted phrasing to a canonical catalog value, per kind
// ("engagement_name" or "workload").
type Synonym struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Kind      string    `gorm:"index"`
	Phrase    string
	Canonical string
	CreatedAt time.Time
}

func (Synonym) TableName() string {
	return "catalog_synonyms"
}
