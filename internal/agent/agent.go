package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/board"
	"github.com/famboard/famboard-api/internal/models"
)

// Config tunes the display agent.
type Config struct {
	PollInterval time.Duration
	PlayerCmd    string
}

// Agent drives a headless display: it polls the API for board content,
// keeps the local sort fresh, and owns the alarm scheduler.
type Agent struct {
	client    *Client
	scheduler *board.Scheduler
	playback  *board.Playback
	clock     board.Clock
	logger    *zap.Logger
	config    Config

	mu       sync.Mutex
	messages []models.Message
	lastHash string
	view     board.View
}

// New constructs an Agent wired to the given API client.
func New(client *Client, clock board.Clock, logger *zap.Logger, cfg Config) (*Agent, error) {
	if clock == nil {
		clock = board.SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}

	sink, err := NewExecSink(cfg.PlayerCmd, logger)
	if err != nil {
		return nil, fmt.Errorf("audio sink: %w", err)
	}
	playback := board.NewPlayback(client, sink, NewLogNotifier(logger), logger)

	a := &Agent{
		client:   client,
		playback: playback,
		clock:    clock,
		logger:   logger,
		config:   cfg,
	}
	a.scheduler = board.NewScheduler(playback, clock, logger)
	return a, nil
}

// Run polls and re-sorts until the context is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	if err := a.refresh(ctx); err != nil {
		a.logger.Warn("initial board fetch failed", zap.Error(err))
	}

	poll := time.NewTicker(a.config.PollInterval)
	defer poll.Stop()
	resort := time.NewTicker(time.Minute)
	defer resort.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			if err := a.refresh(ctx); err != nil {
				a.logger.Warn("board fetch failed", zap.Error(err))
			}
		case <-resort.C:
			a.resort()
		}
	}
}

// View returns the latest sorted board.
func (a *Agent) View() board.View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.view
}

// refresh fetches board content and re-arms alarms when it changed.
func (a *Agent) refresh(ctx context.Context) error {
	view, settings, err := a.client.FetchBoard(ctx)
	if err != nil {
		return err
	}
	if settings != nil {
		a.playback.SetSettings(playbackSettings(settings))
	}

	messages := view.Order
	hash := contentHash(a.clock.Now(), messages)

	a.mu.Lock()
	changed := hash != a.lastHash
	a.messages = messages
	a.lastHash = hash
	a.view = *view
	a.mu.Unlock()

	if changed {
		armed := a.scheduler.ScheduleAll(messages)
		a.logger.Info("board updated",
			zap.Int("messages", len(messages)),
			zap.Int("alarms_armed", armed))
	}
	return nil
}

// resort re-partitions the cached messages against the current minute.
func (a *Agent) resort() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.view = board.Sort(a.messages, a.clock.Now())
}

// contentHash fingerprints the board for one calendar day, so unchanged
// polls skip rescheduling while a day rollover forces a fresh
// ScheduleAll even when the messages did not change.
func contentHash(now time.Time, messages []models.Message) string {
	keys := make([]string, 0, len(messages))
	for _, msg := range messages {
		keys = append(keys, msg.ID+"|"+msg.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}
	sort.Strings(keys)
	keys = append([]string{now.Format("2006-01-02")}, keys...)
	sum := sha256.Sum256([]byte(strings.Join(keys, "\n")))
	return hex.EncodeToString(sum[:])
}

// playbackSettings maps the family's stored preferences onto the
// playback pipeline.
func playbackSettings(settings *models.DisplaySettings) board.PlaybackSettings {
	out := board.PlaybackSettings{
		DefaultVoice: settings.TTSVoice,
		DefaultSpeed: settings.TTSSpeed,
		Volume:       settings.Volume,
	}
	if settings.NightModeStart != nil {
		out.NightModeStart = *settings.NightModeStart
	}
	if settings.NightModeEnd != nil {
		out.NightModeEnd = *settings.NightModeEnd
	}
	return out
}
