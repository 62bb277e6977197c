package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/famboard/famboard-api/internal/board"
	"github.com/famboard/famboard-api/internal/models"
)

// settableClock is a board.Clock whose instant tests can move forward.
type settableClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *settableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *settableClock) Set(at time.Time) {
	c.mu.Lock()
	c.at = at
	c.mu.Unlock()
}

func boardServer(t *testing.T, messages []models.Message) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer display-token", r.Header.Get("Authorization"))
		require.Equal(t, "/api/v1/display/board", r.URL.Path)
		view := board.Sort(messages, time.Now())
		payload := map[string]interface{}{
			"data": map[string]interface{}{
				"board":    view,
				"settings": models.DefaultDisplaySettings("fam-1"),
			},
		}
		json.NewEncoder(w).Encode(payload)
	}))
}

func TestAgentRefreshArmsAlarms(t *testing.T) {
	clock := board.FixedClock{At: time.Date(2026, 8, 31, 8, 0, 0, 0, time.Local)}
	messages := []models.Message{{
		ID: "m1", FamilyID: "fam-1", Content: "walk the dog",
		Priority: models.PriorityNormal, TTSEnabled: true,
		TTSTimes:  []string{"10:00"},
		UpdatedAt: time.Now(),
	}}
	server := boardServer(t, messages)
	defer server.Close()

	client := NewClient(server.URL, "", "display-token", time.Second)
	agent, err := New(client, clock, zap.NewNop(), Config{PollInterval: time.Hour, PlayerCmd: "cat"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	agent.scheduler.Start(ctx)
	defer agent.scheduler.Stop()

	require.NoError(t, agent.refresh(ctx))
	assert.Equal(t, 1, agent.scheduler.Armed())
	assert.Len(t, agent.View().Order, 1)
}

func TestAgentRefreshRearmsAfterDayRollover(t *testing.T) {
	clock := &settableClock{at: time.Date(2026, 8, 31, 9, 0, 0, 0, time.Local)}
	messages := []models.Message{{
		ID: "m1", FamilyID: "fam-1", Content: "take your pills",
		Priority: models.PriorityNormal, TTSEnabled: true,
		TTSTimes: []string{"08:00"}, DisplayForever: true,
		UpdatedAt: time.Unix(100, 0),
	}}
	server := boardServer(t, messages)
	defer server.Close()

	client := NewClient(server.URL, "", "display-token", time.Second)
	agent, err := New(client, clock, zap.NewNop(), Config{PollInterval: time.Hour, PlayerCmd: "cat"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	agent.scheduler.Start(ctx)
	defer agent.scheduler.Stop()

	// 09:00 on day one: the 08:00 alarm is already past.
	require.NoError(t, agent.refresh(ctx))
	assert.Equal(t, 0, agent.scheduler.Armed())

	// 07:00 the next morning: the unchanged board must re-arm it.
	clock.Set(time.Date(2026, 9, 1, 7, 0, 0, 0, time.Local))
	require.NoError(t, agent.refresh(ctx))
	assert.Equal(t, 1, agent.scheduler.Armed())
}

func TestAgentRefreshAppliesDisplaySettings(t *testing.T) {
	server := boardServer(t, nil)
	defer server.Close()

	client := NewClient(server.URL, "", "display-token", time.Second)
	agent, err := New(client, board.SystemClock(), zap.NewNop(), Config{PlayerCmd: "cat"})
	require.NoError(t, err)

	require.NoError(t, agent.refresh(context.Background()))
	// Defaults from the server: volume 80, voice "default", speed 1.0.
	assert.Equal(t, board.PlaybackSettings{
		DefaultVoice: "default",
		DefaultSpeed: 1.0,
		Volume:       80,
	}, agent.playback.Settings())
}

func TestAgentRefreshSkipsUnchangedBoard(t *testing.T) {
	messages := []models.Message{{ID: "m1", FamilyID: "fam-1", Content: "hello", UpdatedAt: time.Unix(100, 0)}}
	server := boardServer(t, messages)
	defer server.Close()

	client := NewClient(server.URL, "", "display-token", time.Second)
	agent, err := New(client, board.SystemClock(), zap.NewNop(), Config{PlayerCmd: "cat"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, agent.refresh(ctx))
	first := agent.lastHash
	require.NoError(t, agent.refresh(ctx))
	assert.Equal(t, first, agent.lastHash)
}

func TestContentHashChangesOnUpdate(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.Local)
	msgs := []models.Message{{ID: "m1", UpdatedAt: time.Unix(100, 0)}}
	before := contentHash(now, msgs)
	msgs[0].UpdatedAt = time.Unix(200, 0)
	assert.NotEqual(t, before, contentHash(now, msgs))
}

func TestContentHashChangesOnDayRollover(t *testing.T) {
	msgs := []models.Message{{ID: "m1", UpdatedAt: time.Unix(100, 0)}}
	day1 := time.Date(2026, 8, 31, 23, 59, 0, 0, time.Local)
	day2 := time.Date(2026, 9, 1, 0, 1, 0, 0, time.Local)
	assert.NotEqual(t, contentHash(day1, msgs), contentHash(day2, msgs))
}

func TestCueToneIsWAV(t *testing.T) {
	tone := cueTone(board.CueAlert)
	require.Greater(t, len(tone), 44)
	assert.Equal(t, "RIFF", string(tone[:4]))
	assert.Equal(t, "WAVE", string(tone[8:12]))
	// The alert cue is longer than the chime.
	assert.Greater(t, len(tone), len(cueTone(board.CueChime)))
}

func TestNewExecSinkRejectsEmptyCommand(t *testing.T) {
	_, err := NewExecSink("  ", zap.NewNop())
	require.Error(t, err)
}
