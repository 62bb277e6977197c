package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/models"
	appErrors "github.com/famboard/famboard-api/pkg/errors"
)

type settingsRepository interface {
	GetByFamily(ctx context.Context, familyID string) (*models.DisplaySettings, error)
	Upsert(ctx context.Context, settings *models.DisplaySettings) error
}

// SettingsService manages per-family display preferences.
type SettingsService struct {
	repo      settingsRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(repo settingsRepository, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	RegisterBoardValidations(validate)
	return &SettingsService{repo: repo, validator: validate, logger: logger}
}

// Get returns the family settings, falling back to defaults when none are stored.
func (s *SettingsService) Get(ctx context.Context, familyID string) (*models.DisplaySettings, error) {
	settings, err := s.repo.GetByFamily(ctx, familyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DefaultDisplaySettings(familyID), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch settings")
	}
	return settings, nil
}

// Update applies a partial settings change and persists the merged result.
func (s *SettingsService) Update(ctx context.Context, familyID string, req models.UpdateSettingsRequest) (*models.DisplaySettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}

	settings, err := s.Get(ctx, familyID)
	if err != nil {
		return nil, err
	}

	if req.NightModeStart != nil {
		settings.NightModeStart = req.NightModeStart
	}
	if req.NightModeEnd != nil {
		settings.NightModeEnd = req.NightModeEnd
	}
	if req.Volume != nil {
		settings.Volume = *req.Volume
	}
	if req.TTSVoice != nil {
		settings.TTSVoice = *req.TTSVoice
	}
	if req.TTSSpeed != nil {
		settings.TTSSpeed = *req.TTSSpeed
	}
	settings.UpdatedAt = time.Now().UTC()

	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
	}
	return settings, nil
}
