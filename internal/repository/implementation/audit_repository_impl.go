package implementation

import (
	"context"
	"fmt"

	"incentive-agent-be/internal/entity"
	"incentive-agent-be/internal/repository/contract"

	"gorm.io/gorm"
)

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) contract.IAuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, audit *entity.TurnAudit) error {
	if err := r.db.WithContext(ctx).Create(audit).Error; err != nil {
		return fmt.Errorf("create turn audit: %w", err)
	}
	return nil
}
