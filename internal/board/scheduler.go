package board

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/models"
)

// FireEvent is delivered to the playback consumer when an armed alarm
// elapses.
type FireEvent struct {
	Message   models.Message
	AlarmTime string
	FiredAt   time.Time
}

// Player consumes fire events; implementations perform the audio cue,
// TTS playback and notification side effects.
type Player interface {
	Play(ctx context.Context, ev FireEvent) error
}

// Scheduler owns the armed alarm set for one display view. Arming is
// synchronous; firing happens later on the timer goroutine, which hands
// the event to a single consumer so playback failures stay isolated
// from sibling alarms. Construct one per view and tear it down with
// Stop when the view goes away.
type Scheduler struct {
	player Player
	clock  Clock
	logger *zap.Logger

	mu      sync.Mutex
	alarms  map[string]map[int]*time.Timer
	nextSeq int
	started bool

	events chan FireEvent
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler constructs a scheduler; Start must be called before any
// alarm is armed.
func NewScheduler(player Player, clock Clock, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		player: player,
		clock:  clock,
		logger: logger,
		alarms: make(map[string]map[int]*time.Timer),
		events: make(chan FireEvent, 32),
	}
}

// Start launches the playback consumer. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.wg.Add(1)
	go s.consume()
}

// Stop cancels every armed alarm and waits for the consumer to exit.
// An in-flight playback that already started cannot be recalled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancelAllLocked()
	s.started = false
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}

// ScheduleAll replaces the armed alarm set with the alarms implied by
// the given messages: one fire-once timer per tts_times entry of every
// tts-enabled message, targeting "today at HH:MM". Entries at or before
// now never fire for the rest of the day. Duplicate entries arm
// duplicate timers. Returns the number of alarms armed.
func (s *Scheduler) ScheduleAll(messages []models.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelAllLocked()
	if !s.started {
		return 0
	}

	now := s.clock.Now()
	armed := 0
	for _, msg := range messages {
		if !msg.TTSEnabled || len(msg.TTSTimes) == 0 {
			continue
		}
		for _, raw := range msg.TTSTimes {
			target, err := TargetToday(raw, now)
			if err != nil {
				s.logger.Warn("skipping malformed alarm time",
					zap.String("message_id", msg.ID),
					zap.String("alarm_time", raw))
				continue
			}
			if !target.After(now) {
				continue
			}
			s.arm(msg, raw, target.Sub(now))
			armed++
		}
	}
	return armed
}

// Cancel destroys all armed alarms belonging to one message. Cancelling
// an unknown or already-fired id is a no-op.
func (s *Scheduler) Cancel(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, timer := range s.alarms[messageID] {
		timer.Stop()
	}
	delete(s.alarms, messageID)
}

// CancelAll destroys every armed alarm.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAllLocked()
}

// Armed reports how many alarms are currently armed.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, set := range s.alarms {
		total += len(set)
	}
	return total
}

// ArmedFor reports how many alarms are armed for one message.
func (s *Scheduler) ArmedFor(messageID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alarms[messageID])
}

func (s *Scheduler) arm(msg models.Message, raw string, in time.Duration) {
	seq := s.nextSeq
	s.nextSeq++
	if s.alarms[msg.ID] == nil {
		s.alarms[msg.ID] = make(map[int]*time.Timer)
	}
	s.alarms[msg.ID][seq] = time.AfterFunc(in, func() {
		s.fire(msg, raw, seq)
	})
}

func (s *Scheduler) fire(msg models.Message, raw string, seq int) {
	s.mu.Lock()
	set, ok := s.alarms[msg.ID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if _, ok := set[seq]; !ok {
		s.mu.Unlock()
		return
	}
	delete(set, seq)
	if len(set) == 0 {
		delete(s.alarms, msg.ID)
	}
	ctx := s.ctx
	s.mu.Unlock()

	ev := FireEvent{Message: msg, AlarmTime: raw, FiredAt: s.clock.Now()}
	select {
	case <-ctx.Done():
	case s.events <- ev:
	}
}

func (s *Scheduler) consume() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			if err := s.player.Play(s.ctx, ev); err != nil {
				s.logger.Warn("alarm playback failed",
					zap.String("message_id", ev.Message.ID),
					zap.String("alarm_time", ev.AlarmTime),
					zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) cancelAllLocked() {
	for _, set := range s.alarms {
		for _, timer := range set {
			timer.Stop()
		}
	}
	s.alarms = make(map[string]map[int]*time.Timer)
}
