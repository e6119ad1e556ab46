package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TurnAudit is one completed assistant turn, persisted by the consumer for
// offline analysis.
type TurnAudit struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId      string         `gorm:"index"`
	Route          string
	Topic          string
	ResponseType   string
	ResolvedFields datatypes.JSON `gorm:"type:jsonb"`
	OccurredAt     time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (TurnAudit) TableName() string {
	return "turn_audits"
}
