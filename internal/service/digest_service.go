package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/models"
	appErrors "github.com/famboard/famboard-api/pkg/errors"
	"github.com/famboard/famboard-api/pkg/export"
	"github.com/famboard/famboard-api/pkg/storage"
)

var digestHeaders = []string{"Date", "Time", "Priority", "Content", "Author", "Forever"}

type digestMessageRepository interface {
	List(ctx context.Context, filter models.MessageFilter) ([]models.Message, int, error)
}

// DigestService renders message digests as CSV or PDF files and hands
// out signed download links.
type DigestService struct {
	messages  digestMessageRepository
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	validator *validator.Validate
	logger    *zap.Logger
	enabled   bool
}

// NewDigestService constructs a DigestService.
func NewDigestService(messages digestMessageRepository, store *storage.LocalStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger, enabled bool) *DigestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DigestService{
		messages:  messages,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		store:     store,
		signer:    signer,
		validator: validate,
		logger:    logger,
		enabled:   enabled,
	}
}

// Create renders a digest for the requested window and returns its download link.
func (s *DigestService) Create(ctx context.Context, familyID string, req models.CreateDigestRequest) (*models.Digest, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "digest exports are disabled")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid digest payload")
	}

	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not precede from")
	}

	rows, err := s.collectRows(ctx, familyID, from, to)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{Headers: digestHeaders, Rows: rows}

	format := models.DigestFormat(req.Format)
	var payload []byte
	switch format {
	case models.DigestFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.DigestFormatPDF:
		title := fmt.Sprintf("Family messages %s to %s", req.From, req.To)
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render digest")
	}

	digestID := uuid.NewString()
	filename := fmt.Sprintf("%s-%s.%s", familyID, digestID, req.Format)
	if _, err := s.store.Save(filename, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store digest")
	}

	token, expiresAt, err := s.signer.Generate(digestID, filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &models.Digest{
		ID:        digestID,
		FamilyID:  familyID,
		Format:    format,
		Filename:  filename,
		URL:       "/api/v1/digests/download/" + token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Open validates a signed token and returns the stored digest file path.
func (s *DigestService) Open(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrForbidden, "download link is invalid or expired")
	}
	if strings.Contains(relPath, "..") {
		return "", appErrors.Clone(appErrors.ErrForbidden, "download link is invalid or expired")
	}
	return s.store.Path(relPath), nil
}

// CleanupExpired deletes digest files older than the signer TTL window.
func (s *DigestService) CleanupExpired(ttl time.Duration) {
	removed, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("digest cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("removed expired digests", zap.Int("count", len(removed)))
	}
}

func (s *DigestService) collectRows(ctx context.Context, familyID string, from, to time.Time) ([]map[string]string, error) {
	var rows []map[string]string
	filter := models.MessageFilter{FamilyID: familyID, Page: 1, PageSize: 100}
	for {
		messages, total, err := s.messages.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load messages")
		}
		for _, msg := range messages {
			if msg.DisplayDate.Before(from) || msg.DisplayDate.After(to) {
				continue
			}
			displayTime := ""
			if msg.DisplayTime != nil {
				displayTime = *msg.DisplayTime
			}
			rows = append(rows, map[string]string{
				"Date":     msg.DisplayDate.Format("2006-01-02"),
				"Time":     displayTime,
				"Priority": string(msg.Priority),
				"Content":  msg.Content,
				"Author":   msg.CreatedBy,
				"Forever":  fmt.Sprintf("%t", msg.DisplayForever),
			})
		}
		if filter.Page*filter.PageSize >= total {
			break
		}
		filter.Page++
	}
	return rows, nil
}
