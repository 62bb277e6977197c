package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/board"
	"github.com/famboard/famboard-api/internal/models"
	appErrors "github.com/famboard/famboard-api/pkg/errors"
)

// BoardEventChannel is the redis pub/sub channel for board change events.
const BoardEventChannel = "famboard:events"

type messageRepository interface {
	List(ctx context.Context, filter models.MessageFilter) ([]models.Message, int, error)
	ListForDate(ctx context.Context, familyID string, date time.Time) ([]models.Message, error)
	GetByID(ctx context.Context, id string) (*models.Message, error)
	Create(ctx context.Context, message *models.Message) error
	Update(ctx context.Context, message *models.Message) error
	Delete(ctx context.Context, id string) error
}

type messageCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Publish(ctx context.Context, channel string, payload interface{}) error
}

type pushNotifier interface {
	NotifyFamily(ctx context.Context, msg *models.Message) error
}

// MessageService implements board message use cases.
type MessageService struct {
	repo      messageRepository
	cache     messageCache
	push      pushNotifier
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewMessageService constructs a MessageService. cache and push may be nil.
func NewMessageService(repo messageRepository, cache messageCache, push pushNotifier, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	RegisterBoardValidations(validate)
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &MessageService{repo: repo, cache: cache, push: push, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// RegisterBoardValidations installs the custom validators used by board payloads.
func RegisterBoardValidations(v *validator.Validate) {
	_ = v.RegisterValidation("message_priority", func(fl validator.FieldLevel) bool {
		switch models.MessagePriority(fl.Field().String()) {
		case models.PriorityNormal, models.PriorityImportant, models.PriorityUrgent:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("time_of_day", func(fl validator.FieldLevel) bool {
		return board.IsValidTimeOfDay(fl.Field().String())
	})
}

// List returns messages for a family, optionally filtered, with paging.
func (s *MessageService) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	messages, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	return messages, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListForBoard returns messages relevant to the given date, cached briefly.
// The set includes date-matching rows and display_forever rows.
func (s *MessageService) ListForBoard(ctx context.Context, familyID string, date time.Time) ([]models.Message, error) {
	key := boardCacheKey(familyID, date)
	if s.cache != nil {
		var cached []models.Message
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("board cache read failed", zap.Error(err))
		}
	}

	messages, err := s.repo.ListForDate(ctx, familyID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load board messages")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, messages, s.cacheTTL); err != nil {
			s.logger.Warn("board cache write failed", zap.Error(err))
		}
	}
	return messages, nil
}

// Get returns one message, scoped to the caller's family.
func (s *MessageService) Get(ctx context.Context, familyID, id string) (*models.Message, error) {
	msg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch message")
	}
	if msg.FamilyID != familyID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "message not found")
	}
	return msg, nil
}

// Create validates and persists a new message, then fans out notifications.
func (s *MessageService) Create(ctx context.Context, familyID, userID string, req models.CreateMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}

	displayDate, err := time.Parse("2006-01-02", req.DisplayDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "display_date must be YYYY-MM-DD")
	}

	msg := &models.Message{
		FamilyID:       familyID,
		Content:        req.Content,
		Priority:       models.MessagePriority(req.Priority),
		DisplayDate:    displayDate,
		DisplayTime:    req.DisplayTime,
		DisplayForever: req.DisplayForever,
		TTSEnabled:     req.TTSEnabled,
		TTSTimes:       pq.StringArray(req.TTSTimes),
		TTSVoice:       req.TTSVoice,
		TTSSpeed:       req.TTSSpeed,
		CreatedBy:      userID,
	}
	if msg.TTSSpeed == 0 {
		msg.TTSSpeed = 1.0
	}
	if msg.TTSVoice == "" {
		msg.TTSVoice = "default"
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create message")
	}

	s.afterChange(ctx, msg, models.MessageEventCreated)
	if s.push != nil {
		if err := s.push.NotifyFamily(ctx, msg); err != nil {
			s.logger.Warn("push fan-out failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
	return msg, nil
}

// Update validates and persists changes to an existing message.
func (s *MessageService) Update(ctx context.Context, familyID, id string, req models.UpdateMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}

	msg, err := s.Get(ctx, familyID, id)
	if err != nil {
		return nil, err
	}

	displayDate, err := time.Parse("2006-01-02", req.DisplayDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "display_date must be YYYY-MM-DD")
	}

	msg.Content = req.Content
	msg.Priority = models.MessagePriority(req.Priority)
	msg.DisplayDate = displayDate
	msg.DisplayTime = req.DisplayTime
	msg.DisplayForever = req.DisplayForever
	msg.TTSEnabled = req.TTSEnabled
	msg.TTSTimes = pq.StringArray(req.TTSTimes)
	msg.TTSVoice = req.TTSVoice
	msg.TTSSpeed = req.TTSSpeed
	if msg.TTSSpeed == 0 {
		msg.TTSSpeed = 1.0
	}
	if msg.TTSVoice == "" {
		msg.TTSVoice = "default"
	}

	if err := s.repo.Update(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update message")
	}

	s.afterChange(ctx, msg, models.MessageEventUpdated)
	return msg, nil
}

// Delete removes a message scoped to the caller's family.
func (s *MessageService) Delete(ctx context.Context, familyID, id string) error {
	msg, err := s.Get(ctx, familyID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, msg.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete message")
	}
	s.afterChange(ctx, msg, models.MessageEventDeleted)
	return nil
}

func (s *MessageService) afterChange(ctx context.Context, msg *models.Message, eventType models.MessageEventType) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, boardCachePattern(msg.FamilyID)); err != nil {
		s.logger.Warn("board cache invalidation failed", zap.Error(err))
	}
	event := models.MessageEvent{
		Type:      eventType,
		FamilyID:  msg.FamilyID,
		MessageID: msg.ID,
		At:        time.Now().UTC(),
	}
	if err := s.cache.Publish(ctx, BoardEventChannel, event); err != nil {
		s.logger.Warn("board event publish failed", zap.Error(err))
	}
}

func boardCacheKey(familyID string, date time.Time) string {
	return fmt.Sprintf("famboard:board:%s:%s", familyID, date.Format("2006-01-02"))
}

func boardCachePattern(familyID string) string {
	return fmt.Sprintf("famboard:board:%s:*", familyID)
}
