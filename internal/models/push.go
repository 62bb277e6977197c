package models

import "time"

// PushSubscription stores one registered push endpoint for a user.
type PushSubscription struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Endpoint  string    `db:"endpoint" json:"endpoint"`
	P256DH    string    `db:"p256dh" json:"p256dh"`
	Auth      string    `db:"auth" json:"auth"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SubscribePushRequest registers a browser push subscription.
type SubscribePushRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	P256DH   string `json:"p256dh" validate:"required"`
	Auth     string `json:"auth" validate:"required"`
}

// PushEnvelope is the JSON payload delivered to a push endpoint.
type PushEnvelope struct {
	MessageID string          `json:"message_id"`
	FamilyID  string          `json:"family_id"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Priority  MessagePriority `json:"priority"`
	SentAt    time.Time       `json:"sent_at"`
}
