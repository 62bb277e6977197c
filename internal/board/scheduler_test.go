package board

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/models"
)

type recordingPlayer struct {
	mu     sync.Mutex
	events []FireEvent
}

func (p *recordingPlayer) Play(ctx context.Context, ev FireEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func ttsMessage(id string, times ...string) models.Message {
	return models.Message{
		ID:         id,
		Content:    "hello",
		Priority:   models.PriorityNormal,
		TTSEnabled: true,
		TTSTimes:   times,
	}
}

func startedScheduler(t *testing.T, clock Clock) (*Scheduler, *recordingPlayer) {
	t.Helper()
	player := &recordingPlayer{}
	s := NewScheduler(player, clock, zap.NewNop())
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s, player
}

func TestScheduleAllSkipsPastAndMalformed(t *testing.T) {
	clock := FixedClock{At: time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)}
	s, _ := startedScheduler(t, clock)

	armed := s.ScheduleAll([]models.Message{
		ttsMessage("m1", "08:00", "10:00", "25:00", "11:30"),
	})

	assert.Equal(t, 1, armed)
	assert.Equal(t, 1, s.ArmedFor("m1"))
}

func TestScheduleAllDuplicateTimesArmIndependently(t *testing.T) {
	clock := FixedClock{At: time.Date(2024, 3, 14, 7, 0, 0, 0, time.UTC)}
	s, _ := startedScheduler(t, clock)

	armed := s.ScheduleAll([]models.Message{ttsMessage("m5", "08:00", "08:00")})

	assert.Equal(t, 2, armed)
	assert.Equal(t, 2, s.ArmedFor("m5"))
}

func TestScheduleAllIgnoresDisabledAndEmpty(t *testing.T) {
	clock := FixedClock{At: time.Date(2024, 3, 14, 7, 0, 0, 0, time.UTC)}
	s, _ := startedScheduler(t, clock)

	disabled := ttsMessage("off", "08:00")
	disabled.TTSEnabled = false

	armed := s.ScheduleAll([]models.Message{disabled, ttsMessage("empty")})

	assert.Zero(t, armed)
	assert.Zero(t, s.Armed())
}

func TestScheduleAllReplacesPreviousSet(t *testing.T) {
	clock := FixedClock{At: time.Date(2024, 3, 14, 7, 0, 0, 0, time.UTC)}
	s, _ := startedScheduler(t, clock)

	s.ScheduleAll([]models.Message{ttsMessage("a", "08:00", "09:00")})
	require.Equal(t, 2, s.Armed())

	s.ScheduleAll([]models.Message{ttsMessage("b", "10:00")})

	assert.Zero(t, s.ArmedFor("a"))
	assert.Equal(t, 1, s.ArmedFor("b"))
	assert.Equal(t, 1, s.Armed())
}

func TestCancelIsIdempotent(t *testing.T) {
	clock := FixedClock{At: time.Date(2024, 3, 14, 7, 0, 0, 0, time.UTC)}
	s, _ := startedScheduler(t, clock)

	s.ScheduleAll([]models.Message{ttsMessage("a", "08:00")})
	require.Equal(t, 1, s.Armed())

	s.Cancel("a")
	s.Cancel("a")
	s.Cancel("never-existed")

	assert.Zero(t, s.Armed())
}

func TestCancelAllAfterEmptyScheduleIsNoOp(t *testing.T) {
	clock := FixedClock{At: time.Date(2024, 3, 14, 7, 0, 0, 0, time.UTC)}
	s, _ := startedScheduler(t, clock)

	s.ScheduleAll(nil)
	s.CancelAll()

	assert.Zero(t, s.Armed())
}

func TestScheduleAllBeforeStartArmsNothing(t *testing.T) {
	s := NewScheduler(&recordingPlayer{}, FixedClock{At: time.Date(2024, 3, 14, 7, 0, 0, 0, time.UTC)}, zap.NewNop())

	armed := s.ScheduleAll([]models.Message{ttsMessage("a", "08:00")})

	assert.Zero(t, armed)
}

func TestFireDeliversEventAndRemovesAlarm(t *testing.T) {
	s, player := startedScheduler(t, SystemClock())

	msg := ttsMessage("m1", "08:00")
	s.mu.Lock()
	s.arm(msg, "08:00", 5*time.Millisecond)
	s.mu.Unlock()

	require.Eventually(t, func() bool { return player.count() == 1 }, time.Second, 5*time.Millisecond)

	player.mu.Lock()
	ev := player.events[0]
	player.mu.Unlock()
	assert.Equal(t, "m1", ev.Message.ID)
	assert.Equal(t, "08:00", ev.AlarmTime)
	assert.Zero(t, s.Armed())
}

func TestCancelPreventsFiring(t *testing.T) {
	s, player := startedScheduler(t, SystemClock())

	msg := ttsMessage("m1", "08:00")
	s.mu.Lock()
	s.arm(msg, "08:00", 20*time.Millisecond)
	s.mu.Unlock()

	s.Cancel("m1")
	time.Sleep(60 * time.Millisecond)

	assert.Zero(t, player.count())
}

func TestDuplicateAlarmsFireTwice(t *testing.T) {
	s, player := startedScheduler(t, SystemClock())

	msg := ttsMessage("m5", "08:00", "08:00")
	s.mu.Lock()
	s.arm(msg, "08:00", 5*time.Millisecond)
	s.arm(msg, "08:00", 5*time.Millisecond)
	s.mu.Unlock()

	require.Eventually(t, func() bool { return player.count() == 2 }, time.Second, 5*time.Millisecond)
}
