package models

import "time"

// Family groups users around one shared display board.
type Family struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	InviteCode string    `db:"invite_code" json:"invite_code"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CreateFamilyRequest creates a new family owned by the caller.
type CreateFamilyRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// JoinFamilyRequest joins an existing family by invite code.
type JoinFamilyRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

// FamilyMember is the membership view returned to clients.
type FamilyMember struct {
	UserID   string    `db:"user_id" json:"user_id"`
	Email    string    `db:"email" json:"email"`
	FullName string    `db:"full_name" json:"full_name"`
	Role     UserRole  `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}
