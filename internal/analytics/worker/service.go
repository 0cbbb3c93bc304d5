package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/okanvural/pickflow-backend/internal/analytics/router"
	"github.com/okanvural/pickflow-backend/internal/analytics/types"
	"github.com/okanvural/pickflow-backend/pkg/enums"
	"github.com/okanvural/pickflow-backend/pkg/logger"
	"github.com/okanvural/pickflow-backend/pkg/outbox"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const analyticsConsumerName = "analytics"

// Handler defines how to process analytics envelopes.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

// Handle calls the underlying function.
func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Service consumes fact events from Pub/Sub while honoring Redis idempotency.
// Scan facts arrive on the analytics subscription, lifecycle facts on the
// domain subscription; both feed the same handler.
type Service struct {
	subscriptions []*gcppubsub.Subscriber
	handler       Handler
	manager       idempotencyChecker
	logg          *logger.Logger
}

// NewService creates a new analytics worker service.
func NewService(subscriptions []*gcppubsub.Subscriber, handler Handler, manager idempotencyChecker, logg *logger.Logger) (*Service, error) {
	if len(subscriptions) == 0 {
		return nil, errors.New("at least one subscription is required")
	}
	for _, sub := range subscriptions {
		if sub == nil {
			return nil, errors.New("subscription is nil")
		}
	}
	if handler == nil {
		return nil, errors.New("analytics handler is required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	return &Service{
		subscriptions: subscriptions,
		handler:       handler,
		manager:       manager,
		logg:          logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run starts consuming messages from every subscription until the context is
// canceled or one receive loop fails.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	group, groupCtx := errgroup.WithContext(ctx)
	for _, sub := range s.subscriptions {
		group.Go(func() error {
			return sub.Receive(groupCtx, func(innerCtx context.Context, msg *gcppubsub.Message) {
				if s.process(innerCtx, msg).nack {
					msg.Nack()
					return
				}
				msg.Ack()
			})
		})
	}
	return group.Wait()
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := s.buildBaseFields(msg)
	logCtx := s.logg.WithFields(ctx, fields)

	envelope, err := s.buildEnvelope(msg)
	if err != nil {
		fields["error"] = err.Error()
		s.logg.Warn(logCtx, "invalid analytics envelope")
		return processResult{}
	}
	fields["event_id"] = envelope.EventID
	fields["event_type"] = envelope.EventType
	fields["aggregate_type"] = envelope.AggregateType
	fields["aggregate_id"] = envelope.AggregateID
	fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	logCtx = s.logg.WithFields(ctx, fields)

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		s.logg.Warn(logCtx, "invalid event id")
		return processResult{}
	}

	already, err := s.manager.CheckAndMarkProcessed(logCtx, analyticsConsumerName, eventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		s.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	if err := s.handler.Handle(logCtx, *envelope); err != nil {
		// Redelivery can never fix an event type we do not handle.
		if errors.Is(err, router.ErrUnsupportedEventType) {
			s.logg.Warn(logCtx, "unsupported event type skipped")
			return processResult{}
		}
		s.logg.Error(logCtx, "handler error", err)
		_ = s.manager.Delete(logCtx, analyticsConsumerName, eventID)
		return processResult{nack: true}
	}

	s.logg.Info(logCtx, "analytics event handled")
	return processResult{}
}

func (s *Service) buildBaseFields(msg *gcppubsub.Message) map[string]any {
	fields := map[string]any{
		"message_id": msg.ID,
	}
	return fields
}

func (s *Service) buildEnvelope(msg *gcppubsub.Message) (*types.Envelope, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	eventTypeStr := s.attribute(strings.TrimSpace(msg.Attributes["event_type"]))
	eventType, err := enums.ParseOutboxEventType(eventTypeStr)
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}

	aggregateTypeStr := s.attribute(strings.TrimSpace(msg.Attributes["aggregate_type"]))
	aggregateType, err := enums.ParseOutboxAggregateType(aggregateTypeStr)
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}

	aggregateID := s.attribute(strings.TrimSpace(msg.Attributes["aggregate_id"]))
	if aggregateID == "" {
		return nil, errors.New("aggregate_id missing")
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if created := s.attribute(strings.TrimSpace(msg.Attributes["created_at"])); created != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
				occurredAt = parsed
			}
		}
	}

	eventID := s.attribute(strings.TrimSpace(stored.EventID))
	if eventID == "" {
		eventID = s.attribute(strings.TrimSpace(msg.Attributes["event_id"]))
	}
	if eventID == "" {
		return nil, errors.New("event_id missing")
	}

	payload := stored.Data
	return &types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Actor:         stored.Actor,
		Payload:       payload,
	}, nil
}

func (s *Service) attribute(value string) string {
	return strings.TrimSpace(value)
}
