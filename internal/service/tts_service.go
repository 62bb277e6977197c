package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/famboard/famboard-api/pkg/errors"
)

const maxSynthesisBytes = 4 << 20

type byteCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// TTSServiceConfig points at the upstream synthesis endpoint.
type TTSServiceConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// TTSService proxies speech synthesis requests to an external engine and
// caches rendered audio in redis. It satisfies board.Synthesizer.
type TTSService struct {
	cache  byteCache
	client *http.Client
	logger *zap.Logger
	config TTSServiceConfig
}

// NewTTSService constructs a TTSService. cache may be nil.
func NewTTSService(cache byteCache, logger *zap.Logger, cfg TTSServiceConfig) *TTSService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &TTSService{
		cache:  cache,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		config: cfg,
	}
}

// Synthesize renders text to audio, serving repeated phrases from cache.
func (s *TTSService) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "text must not be empty")
	}
	if voice == "" {
		voice = "default"
	}
	if speed <= 0 {
		speed = 1.0
	}

	key := synthesisCacheKey(text, voice, speed)
	if s.cache != nil {
		if audio, err := s.cache.GetBytes(ctx, key); err == nil {
			return audio, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("tts cache read failed", zap.Error(err))
		}
	}

	audio, err := s.callEngine(ctx, text, voice, speed)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetBytes(ctx, key, audio, s.config.CacheTTL); err != nil {
			s.logger.Warn("tts cache write failed", zap.Error(err))
		}
	}
	return audio, nil
}

func (s *TTSService) callEngine(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"text":  text,
		"voice": voice,
		"speed": speed,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode synthesis request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build synthesis request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSynthesisFailed.Code, appErrors.ErrSynthesisFailed.Status, "synthesis engine unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, appErrors.Clone(appErrors.ErrSynthesisFailed, fmt.Sprintf("synthesis engine returned %d", resp.StatusCode))
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxSynthesisBytes))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSynthesisFailed.Code, appErrors.ErrSynthesisFailed.Status, "failed to read synthesis response")
	}
	if len(audio) == 0 {
		return nil, appErrors.Clone(appErrors.ErrSynthesisFailed, "synthesis engine returned no audio")
	}
	return audio, nil
}

func synthesisCacheKey(text, voice string, speed float64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.2f", text, voice, speed)))
	return "famboard:tts:" + hex.EncodeToString(sum[:])
}
