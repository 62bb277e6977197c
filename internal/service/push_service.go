package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/models"
	appErrors "github.com/famboard/famboard-api/pkg/errors"
	"github.com/famboard/famboard-api/pkg/jobs"
)

type pushRepository interface {
	Create(ctx context.Context, sub *models.PushSubscription) error
	ListByUser(ctx context.Context, userID string) ([]models.PushSubscription, error)
	ListByFamily(ctx context.Context, familyID, excludeUserID string) ([]models.PushSubscription, error)
	Delete(ctx context.Context, id string) error
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

type pushDelivery struct {
	Subscription models.PushSubscription
	Envelope     models.PushEnvelope
}

// PushService registers subscriptions and fans out notifications
// through a background worker queue.
type PushService struct {
	repo      pushRepository
	validator *validator.Validate
	logger    *zap.Logger
	client    *http.Client
	queue     *jobs.Queue
	metrics   *MetricsService
	enabled   bool
}

// PushServiceConfig tunes the fan-out workers.
type PushServiceConfig struct {
	Enabled           bool
	WorkerConcurrency int
	WorkerRetries     int
	DeliveryTimeout   time.Duration
}

// NewPushService constructs a PushService with its delivery queue.
// metrics may be nil.
func NewPushService(repo pushRepository, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cfg PushServiceConfig) *PushService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}
	s := &PushService{
		repo:      repo,
		validator: validate,
		logger:    logger,
		client:    &http.Client{Timeout: cfg.DeliveryTimeout},
		metrics:   metrics,
		enabled:   cfg.Enabled,
	}
	s.queue = jobs.NewQueue("push-delivery", s.deliver, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *PushService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *PushService) Stop() {
	s.queue.Stop()
}

// Subscribe registers or refreshes a push endpoint for the user.
func (s *PushService) Subscribe(ctx context.Context, userID string, req models.SubscribePushRequest) (*models.PushSubscription, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subscription payload")
	}
	sub := &models.PushSubscription{
		UserID:   userID,
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save subscription")
	}
	return sub, nil
}

// Unsubscribe removes a subscription belonging to the user.
func (s *PushService) Unsubscribe(ctx context.Context, userID, id string) error {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subscriptions")
	}
	for _, sub := range subs {
		if sub.ID == id {
			if err := s.repo.Delete(ctx, id); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subscription")
			}
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "subscription not found")
}

// List returns the caller's registered subscriptions.
func (s *PushService) List(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subscriptions")
	}
	return subs, nil
}

// NotifyFamily enqueues one delivery per family subscription, excluding the author.
func (s *PushService) NotifyFamily(ctx context.Context, msg *models.Message) error {
	if !s.enabled {
		return nil
	}
	subs, err := s.repo.ListByFamily(ctx, msg.FamilyID, msg.CreatedBy)
	if err != nil {
		return fmt.Errorf("list family subscriptions: %w", err)
	}
	envelope := models.PushEnvelope{
		MessageID: msg.ID,
		FamilyID:  msg.FamilyID,
		Title:     "New family message",
		Body:      msg.Content,
		Priority:  msg.Priority,
		SentAt:    time.Now().UTC(),
	}
	for _, sub := range subs {
		job := jobs.Job{
			ID:      uuid.NewString(),
			Type:    "push.deliver",
			Payload: pushDelivery{Subscription: sub, Envelope: envelope},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("push enqueue failed",
				zap.String("endpoint", sub.Endpoint),
				zap.Error(err))
		}
	}
	return nil
}

// deliver posts the envelope to the subscription endpoint. Endpoints that
// respond 404 or 410 are pruned.
func (s *PushService) deliver(ctx context.Context, job jobs.Job) error {
	delivery, ok := job.Payload.(pushDelivery)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	body, err := json.Marshal(delivery.Envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.Subscription.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TTL", "3600")

	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.RecordPushDelivery("failed")
		return fmt.Errorf("deliver push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		s.metrics.RecordPushDelivery("delivered")
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		s.metrics.RecordPushDelivery("pruned")
		if err := s.repo.DeleteByEndpoint(context.Background(), delivery.Subscription.Endpoint); err != nil {
			s.logger.Warn("failed to prune dead subscription", zap.Error(err))
		}
		return nil
	default:
		s.metrics.RecordPushDelivery("failed")
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
}
