package board

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/models"
)

// Cue is the audible prelude played before an alarm's spoken content.
type Cue string

const (
	CueChime Cue = "chime"
	CueAlert Cue = "alert"
)

// Synthesizer turns text into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error)
}

// AudioSink plays cues and synthesized audio on the output device.
type AudioSink interface {
	PlayCue(ctx context.Context, cue Cue) error
	PlayAudio(ctx context.Context, audio []byte) error
}

// Notification is raised on the system notification surface when an
// alarm fires.
type Notification struct {
	Tag                string
	Body               string
	RequireInteraction bool
}

// Notifier raises system notifications, gated on user permission.
type Notifier interface {
	Permitted() bool
	Notify(ctx context.Context, n Notification) error
}

// PlaybackSettings carries the family-wide audio preferences applied to
// every firing: fallback voice and speed for messages without their own,
// the output volume, and the quiet window during which no sound plays.
type PlaybackSettings struct {
	DefaultVoice   string
	DefaultSpeed   float64
	Volume         int
	NightModeStart string
	NightModeEnd   string
}

// Playback performs the side effects of one alarm firing: audible cue,
// TTS playback, then a system notification. Every step degrades
// independently; a failure is logged and the remaining steps still run.
type Playback struct {
	synth    Synthesizer
	sink     AudioSink
	notifier Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	settings PlaybackSettings
}

// NewPlayback wires the playback side effects together. Any collaborator
// may be nil, in which case its step is skipped.
func NewPlayback(synth Synthesizer, sink AudioSink, notifier Notifier, logger *zap.Logger) *Playback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Playback{
		synth:    synth,
		sink:     sink,
		notifier: notifier,
		logger:   logger,
		settings: PlaybackSettings{Volume: 100},
	}
}

// SetSettings swaps the active audio preferences. Safe to call while
// alarms are firing.
func (p *Playback) SetSettings(settings PlaybackSettings) {
	p.mu.Lock()
	p.settings = settings
	p.mu.Unlock()
}

// Settings returns the active audio preferences.
func (p *Playback) Settings() PlaybackSettings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// Play implements Player. During the night-mode window, or when the
// volume is muted, the audio steps are skipped but the notification is
// still raised.
func (p *Playback) Play(ctx context.Context, ev FireEvent) error {
	msg := ev.Message

	p.mu.Lock()
	settings := p.settings
	p.mu.Unlock()

	silent := settings.Volume <= 0 ||
		InNightWindow(ev.FiredAt, settings.NightModeStart, settings.NightModeEnd)
	if silent {
		p.logger.Debug("audio suppressed", zap.String("message_id", msg.ID))
	}

	if p.sink != nil && !silent {
		cue := CueChime
		if msg.Priority == models.PriorityUrgent {
			cue = CueAlert
		}
		if err := p.sink.PlayCue(ctx, cue); err != nil {
			p.logger.Warn("cue playback failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	if msg.TTSEnabled && p.synth != nil && p.sink != nil && !silent {
		voice := msg.TTSVoice
		if (voice == "" || voice == "default") && settings.DefaultVoice != "" {
			voice = settings.DefaultVoice
		}
		speed := msg.TTSSpeed
		if speed <= 0 {
			speed = settings.DefaultSpeed
		}
		if speed <= 0 {
			speed = 1.0
		}
		audio, err := p.synth.Synthesize(ctx, msg.Content, voice, speed)
		if err != nil {
			p.logger.Warn("tts synthesis failed", zap.String("message_id", msg.ID), zap.Error(err))
		} else if err := p.sink.PlayAudio(ctx, audio); err != nil {
			p.logger.Warn("audio playback failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	if p.notifier != nil && p.notifier.Permitted() {
		n := Notification{
			Tag:                msg.ID,
			Body:               msg.Content,
			RequireInteraction: msg.Priority == models.PriorityUrgent,
		}
		if err := p.notifier.Notify(ctx, n); err != nil {
			p.logger.Warn("notification failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	return nil
}
