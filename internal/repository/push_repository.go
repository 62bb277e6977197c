package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/famboard/famboard-api/internal/models"
)

// PushRepository provides persistence for push subscriptions.
type PushRepository struct {
	db *sqlx.DB
}

// NewPushRepository creates the repository.
func NewPushRepository(db *sqlx.DB) *PushRepository {
	return &PushRepository{db: db}
}

const subscriptionColumns = "id, user_id, endpoint, p256dh, auth, created_at"

// Create registers a push endpoint for a user. Re-registering the same
// endpoint is an upsert.
func (r *PushRepository) Create(ctx context.Context, sub *models.PushSubscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, created_at)
VALUES (:id, :user_id, :endpoint, :p256dh, :auth, :created_at)
ON CONFLICT (user_id, endpoint) DO UPDATE SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create push subscription: %w", err)
	}
	return nil
}

// ListByUser returns every subscription registered by one user.
func (r *PushRepository) ListByUser(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	query := fmt.Sprintf("SELECT %s FROM push_subscriptions WHERE user_id = $1 ORDER BY created_at ASC", subscriptionColumns)
	var subs []models.PushSubscription
	if err := r.db.SelectContext(ctx, &subs, query, userID); err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	return subs, nil
}

// ListByFamily returns subscriptions of every family member except the
// excluded user (the message author).
func (r *PushRepository) ListByFamily(ctx context.Context, familyID, excludeUserID string) ([]models.PushSubscription, error) {
	const query = `SELECT s.id, s.user_id, s.endpoint, s.p256dh, s.auth, s.created_at
FROM push_subscriptions s
JOIN users u ON u.id = s.user_id
WHERE u.family_id = $1 AND s.user_id <> $2`
	var subs []models.PushSubscription
	if err := r.db.SelectContext(ctx, &subs, query, familyID, excludeUserID); err != nil {
		return nil, fmt.Errorf("list family push subscriptions: %w", err)
	}
	return subs, nil
}

// Delete removes a subscription by identifier.
func (r *PushRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM push_subscriptions WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

// DeleteByEndpoint prunes a subscription whose endpoint has gone away.
func (r *PushRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM push_subscriptions WHERE endpoint = $1", endpoint); err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}
