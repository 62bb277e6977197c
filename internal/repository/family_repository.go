package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/famboard/famboard-api/internal/models"
)

// FamilyRepository provides persistence for families and their members.
type FamilyRepository struct {
	db *sqlx.DB
}

// NewFamilyRepository creates the repository.
func NewFamilyRepository(db *sqlx.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

const familyColumns = "id, name, invite_code, created_by, created_at, updated_at"

// GetByID returns a family by identifier.
func (r *FamilyRepository) GetByID(ctx context.Context, id string) (*models.Family, error) {
	query := fmt.Sprintf("SELECT %s FROM families WHERE id = $1", familyColumns)
	var family models.Family
	if err := r.db.GetContext(ctx, &family, query, id); err != nil {
		return nil, err
	}
	return &family, nil
}

// GetByInviteCode resolves a family from an invite code.
func (r *FamilyRepository) GetByInviteCode(ctx context.Context, code string) (*models.Family, error) {
	query := fmt.Sprintf("SELECT %s FROM families WHERE invite_code = $1", familyColumns)
	var family models.Family
	if err := r.db.GetContext(ctx, &family, query, code); err != nil {
		return nil, err
	}
	return &family, nil
}

// Create inserts a new family.
func (r *FamilyRepository) Create(ctx context.Context, family *models.Family) error {
	if family.ID == "" {
		family.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if family.CreatedAt.IsZero() {
		family.CreatedAt = now
	}
	family.UpdatedAt = now
	query := `INSERT INTO families (id, name, invite_code, created_by, created_at, updated_at)
VALUES (:id, :name, :invite_code, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, family); err != nil {
		return fmt.Errorf("create family: %w", err)
	}
	return nil
}

// UpdateInviteCode rotates the family's invite code.
func (r *FamilyRepository) UpdateInviteCode(ctx context.Context, id, code string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE families SET invite_code = $1, updated_at = $2 WHERE id = $3",
		code, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update invite code: %w", err)
	}
	return nil
}

// ListMembers returns every account attached to the family.
func (r *FamilyRepository) ListMembers(ctx context.Context, familyID string) ([]models.FamilyMember, error) {
	const query = `SELECT id AS user_id, email, full_name, role, updated_at AS joined_at
FROM users WHERE family_id = $1 ORDER BY created_at ASC`
	var members []models.FamilyMember
	if err := r.db.SelectContext(ctx, &members, query, familyID); err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	return members, nil
}
