package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/famboard/famboard-api/internal/board"
	"github.com/famboard/famboard-api/internal/models"
)

// Client talks to the famboard API on behalf of a display device.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs an API client authenticated with a display token.
// apiPrefix must match the server's route prefix; empty means /api/v1.
func NewClient(baseURL, apiPrefix, token string, timeout time.Duration) *Client {
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + apiPrefix,
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type boardEnvelope struct {
	Data struct {
		Board    board.View              `json:"board"`
		Settings *models.DisplaySettings `json:"settings"`
	} `json:"data"`
}

// FetchBoard retrieves the current sorted board and display settings.
func (c *Client) FetchBoard(ctx context.Context) (*board.View, *models.DisplaySettings, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/display/board", nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build board request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch board: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("board endpoint returned %d", resp.StatusCode)
	}

	var envelope boardEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, nil, fmt.Errorf("decode board response: %w", err)
	}
	return &envelope.Data.Board, envelope.Data.Settings, nil
}

// Synthesize renders text to audio through the API's speech proxy.
// It satisfies board.Synthesizer.
func (c *Client) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"text":  text,
		"voice": voice,
		"speed": speed,
	})
	if err != nil {
		return nil, fmt.Errorf("encode synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis endpoint returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
