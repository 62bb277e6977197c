package models

import "time"

// DisplaySettings holds per-family board preferences.
type DisplaySettings struct {
	FamilyID       string    `db:"family_id" json:"family_id"`
	NightModeStart *string   `db:"night_mode_start" json:"night_mode_start,omitempty"`
	NightModeEnd   *string   `db:"night_mode_end" json:"night_mode_end,omitempty"`
	Volume         int       `db:"volume" json:"volume"`
	TTSVoice       string    `db:"tts_voice" json:"tts_voice"`
	TTSSpeed       float64   `db:"tts_speed" json:"tts_speed"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// UpdateSettingsRequest is the payload for changing board preferences.
type UpdateSettingsRequest struct {
	NightModeStart *string `json:"night_mode_start,omitempty" validate:"omitempty,time_of_day"`
	NightModeEnd   *string `json:"night_mode_end,omitempty" validate:"omitempty,time_of_day"`
	Volume         *int    `json:"volume,omitempty" validate:"omitempty,gte=0,lte=100"`
	TTSVoice       *string `json:"tts_voice,omitempty"`
	TTSSpeed       *float64 `json:"tts_speed,omitempty" validate:"omitempty,gte=0.5,lte=2"`
}

// DefaultDisplaySettings returns the settings used before a family customises anything.
func DefaultDisplaySettings(familyID string) *DisplaySettings {
	return &DisplaySettings{
		FamilyID: familyID,
		Volume:   80,
		TTSVoice: "default",
		TTSSpeed: 1.0,
	}
}
