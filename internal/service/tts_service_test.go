package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/famboard/famboard-api/pkg/errors"
)

type memoryByteCache struct {
	entries map[string][]byte
}

func newMemoryByteCache() *memoryByteCache {
	return &memoryByteCache{entries: make(map[string][]byte)}
}

func (m *memoryByteCache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	payload, ok := m.entries[key]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return payload, nil
}

func (m *memoryByteCache) SetBytes(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	m.entries[key] = payload
	return nil
}

func TestTTSServiceSynthesize(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte("audio-bytes"))
	}))
	defer server.Close()

	svc := NewTTSService(newMemoryByteCache(), zap.NewNop(), TTSServiceConfig{Endpoint: server.URL})

	audio, err := svc.Synthesize(context.Background(), "dinner at six", "default", 1.0)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio-bytes"), audio)

	// Second identical request is served from cache.
	audio, err = svc.Synthesize(context.Background(), "dinner at six", "default", 1.0)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio-bytes"), audio)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestTTSServiceEngineFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewTTSService(nil, zap.NewNop(), TTSServiceConfig{Endpoint: server.URL})

	_, err := svc.Synthesize(context.Background(), "hello", "default", 1.0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSynthesisFailed.Code, appErrors.FromError(err).Code)
}

func TestTTSServiceRejectsEmptyText(t *testing.T) {
	svc := NewTTSService(nil, zap.NewNop(), TTSServiceConfig{Endpoint: "http://localhost:0"})
	_, err := svc.Synthesize(context.Background(), "", "default", 1.0)
	require.Error(t, err)
}
