package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"incentive-agent-be/internal/entity"
	"incentive-agent-be/internal/repository/contract"
	"incentive-agent-be/pkg/events"
	pkgNats "incentive-agent-be/pkg/nats"

	"gorm.io/datatypes"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

const turnAuditDurable = "turn-audit-writer"

// consumerService persists every completed turn as an audit row, consumed
// off the JetStream bus so a slow database never blocks a turn.
type consumerService struct {
	subscriber *pkgNats.Subscriber
	subject    string
	auditRepo  contract.IAuditRepository
}

func NewConsumerService(subscriber *pkgNats.Subscriber, subject string, auditRepo contract.IAuditRepository) IConsumerService {
	if subject == "" {
		subject = "events.turn.completed"
	}
	return &consumerService{
		subscriber: subscriber,
		subject:    subject,
		auditRepo:  auditRepo,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	if cs.subscriber == nil {
		log.Println("[CONSUMER] no subscriber configured, audit trail disabled")
		return nil
	}
	return cs.subscriber.Subscribe(cs.subject, turnAuditDurable, cs.handleTurnCompleted)
}

func (cs *consumerService) handleTurnCompleted(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	fields, err := json.Marshal(payload["resolved_fields"])
	if err != nil {
		return fmt.Errorf("marshal resolved fields: %w", err)
	}

	occurredAt := event.Timestamp()
	if raw, ok := payload["occurred_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			occurredAt = t
		}
	}

	audit := entity.TurnAudit{
		SessionId:      asString(payload["session_id"]),
		Route:          asString(payload["route"]),
		Topic:          asString(payload["topic"]),
		ResponseType:   asString(payload["response_type"]),
		ResolvedFields: datatypes.JSON(fields),
		OccurredAt:     occurredAt,
		CreatedAt:      time.Now(),
	}
	if err := cs.auditRepo.Create(ctx, &audit); err != nil {
		return fmt.Errorf("persist turn audit: %w", err)
	}

	log.Printf("[CONSUMER] audited turn session=%s route=%s", audit.SessionId, audit.Route)
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
