package models

import (
	"time"

	"github.com/lib/pq"
)

// MessagePriority orders message urgency: urgent > important > normal.
type MessagePriority string

const (
	PriorityNormal    MessagePriority = "normal"
	PriorityImportant MessagePriority = "important"
	PriorityUrgent    MessagePriority = "urgent"
)

// Rank maps a priority onto a comparable integer; unknown values rank lowest.
func (p MessagePriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 2
	case PriorityImportant:
		return 1
	case PriorityNormal:
		return 0
	default:
		return -1
	}
}

// Message represents a persisted board message row.
type Message struct {
	ID             string          `db:"id" json:"id"`
	FamilyID       string          `db:"family_id" json:"family_id"`
	Content        string          `db:"content" json:"content"`
	Priority       MessagePriority `db:"priority" json:"priority"`
	DisplayDate    time.Time       `db:"display_date" json:"display_date"`
	DisplayTime    *string         `db:"display_time" json:"display_time,omitempty"`
	DisplayForever bool            `db:"display_forever" json:"display_forever"`
	TTSEnabled     bool            `db:"tts_enabled" json:"tts_enabled"`
	TTSTimes       pq.StringArray  `db:"tts_times" json:"tts_times"`
	TTSVoice       string          `db:"tts_voice" json:"tts_voice"`
	TTSSpeed       float64         `db:"tts_speed" json:"tts_speed"`
	CreatedBy      string          `db:"created_by" json:"created_by"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// MessageFilter selects messages for listing.
type MessageFilter struct {
	FamilyID    string
	DisplayDate *time.Time
	Priority    string
	Search      string
	Page        int
	PageSize    int
}

// CreateMessageRequest is the payload for posting a new board message.
type CreateMessageRequest struct {
	Content        string   `json:"content" validate:"required,max=500"`
	Priority       string   `json:"priority" validate:"required,message_priority"`
	DisplayDate    string   `json:"display_date" validate:"required,datetime=2006-01-02"`
	DisplayTime    *string  `json:"display_time,omitempty" validate:"omitempty,time_of_day"`
	DisplayForever bool     `json:"display_forever"`
	TTSEnabled     bool     `json:"tts_enabled"`
	TTSTimes       []string `json:"tts_times" validate:"omitempty,dive,time_of_day"`
	TTSVoice       string   `json:"tts_voice"`
	TTSSpeed       float64  `json:"tts_speed" validate:"omitempty,gte=0.5,lte=2"`
}

// UpdateMessageRequest is the payload for editing a message.
type UpdateMessageRequest struct {
	Content        string   `json:"content" validate:"required,max=500"`
	Priority       string   `json:"priority" validate:"required,message_priority"`
	DisplayDate    string   `json:"display_date" validate:"required,datetime=2006-01-02"`
	DisplayTime    *string  `json:"display_time,omitempty" validate:"omitempty,time_of_day"`
	DisplayForever bool     `json:"display_forever"`
	TTSEnabled     bool     `json:"tts_enabled"`
	TTSTimes       []string `json:"tts_times" validate:"omitempty,dive,time_of_day"`
	TTSVoice       string   `json:"tts_voice"`
	TTSSpeed       float64  `json:"tts_speed" validate:"omitempty,gte=0.5,lte=2"`
}

// MessageEventType identifies realtime change events.
type MessageEventType string

const (
	MessageEventCreated MessageEventType = "message.created"
	MessageEventUpdated MessageEventType = "message.updated"
	MessageEventDeleted MessageEventType = "message.deleted"
)

// MessageEvent is published on the realtime channel whenever the board changes.
type MessageEvent struct {
	Type      MessageEventType `json:"type"`
	FamilyID  string           `json:"family_id"`
	MessageID string           `json:"message_id"`
	At        time.Time        `json:"at"`
}
