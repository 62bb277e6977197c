package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/famboard/famboard-api/internal/models"
)

// MessageRepository provides persistence for board messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates the repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = "id, family_id, content, priority, display_date, display_time, display_forever, tts_enabled, tts_times, tts_voice, tts_speed, created_by, created_at, updated_at"

// List returns messages matching the filter with a total count.
func (r *MessageRepository) List(ctx context.Context, filter models.MessageFilter) ([]models.Message, int, error) {
	where := []string{"family_id = $1"}
	args := []interface{}{filter.FamilyID}

	if filter.DisplayDate != nil {
		where = append(where, fmt.Sprintf("(display_date = $%d OR (display_forever = TRUE AND display_date <= $%d))", len(args)+1, len(args)+1))
		args = append(args, *filter.DisplayDate)
	}
	if filter.Priority != "" {
		where = append(where, fmt.Sprintf("priority = $%d", len(args)+1))
		args = append(args, filter.Priority)
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("content ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM messages WHERE %s
ORDER BY display_date DESC, created_at DESC
LIMIT %d OFFSET %d`, messageColumns, whereClause, size, offset)
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM messages WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	return messages, total, nil
}

// ListForDate returns every message eligible for display on the given
// date, including display_forever holdovers, without paging. This is
// what the board endpoint feeds to the sorter.
func (r *MessageRepository) ListForDate(ctx context.Context, familyID string, date time.Time) ([]models.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages
WHERE family_id = $1 AND (display_date = $2 OR (display_forever = TRUE AND display_date <= $2))
ORDER BY created_at DESC`, messageColumns)
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, familyID, date); err != nil {
		return nil, fmt.Errorf("list messages for date: %w", err)
	}
	return messages, nil
}

// GetByID returns a message by identifier.
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	query := fmt.Sprintf("SELECT %s FROM messages WHERE id = $1", messageColumns)
	var message models.Message
	if err := r.db.GetContext(ctx, &message, query, id); err != nil {
		return nil, err
	}
	return &message, nil
}

// Create inserts a new message.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = now
	}
	message.UpdatedAt = now
	query := `INSERT INTO messages (id, family_id, content, priority, display_date, display_time, display_forever, tts_enabled, tts_times, tts_voice, tts_speed, created_by, created_at, updated_at)
VALUES (:id, :family_id, :content, :priority, :display_date, :display_time, :display_forever, :tts_enabled, :tts_times, :tts_voice, :tts_speed, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// Update modifies an existing message.
func (r *MessageRepository) Update(ctx context.Context, message *models.Message) error {
	message.UpdatedAt = time.Now().UTC()
	query := `UPDATE messages SET content = :content, priority = :priority, display_date = :display_date,
display_time = :display_time, display_forever = :display_forever, tts_enabled = :tts_enabled,
tts_times = :tts_times, tts_voice = :tts_voice, tts_speed = :tts_speed, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

// Delete removes a message.
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM messages WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
