package contract

import (
	"context"

	"incentive-agent-be/internal/entity"
)

type IAuditRepository interface {
	Create(ctx context.Context, audit *entity.TurnAudit) error
}
