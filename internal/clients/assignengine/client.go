package assignengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/ctxutil"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/envutil"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/httpx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

// Client calls the external assignment engine, which proposes GM placements for
// a date range. It never writes anything itself.
type Client interface {
	Propose(ctx context.Context, req ProposeRequest) (*ProposeResponse, error)
}

type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    strings.TrimSpace(os.Getenv("ASSIGNMENT_ENGINE_URL")),
		Token:      strings.TrimSpace(os.Getenv("ASSIGNMENT_ENGINE_TOKEN")),
		Timeout:    envutil.Seconds("ASSIGNMENT_ENGINE_TIMEOUT_SECONDS", 60),
		MaxRetries: envutil.Int("ASSIGNMENT_ENGINE_MAX_RETRIES", 2),
	}
}

// NewFromEnv returns (nil, nil) when ASSIGNMENT_ENGINE_URL is unset.
func NewFromEnv(log *logger.Logger) (Client, error) {
	cfg := ConfigFromEnv()
	if cfg.BaseURL == "" {
		if log != nil {
			log.Warn("ASSIGNMENT_ENGINE_URL not set; auto-assign disabled")
		}
		return nil, nil
	}
	return New(log, cfg)
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing ASSIGNMENT_ENGINE_URL")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "AssignmentEngineClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type ActivityInput struct {
	ID              uuid.UUID   `json:"id"`
	Title           string      `json:"title"`
	Date            string      `json:"date"`
	StartTime       string      `json:"start_time"`
	EndTime         string      `json:"end_time"`
	DurationMinutes int         `json:"duration_minutes,omitempty"`
	ActivityType    string      `json:"activity_type,omitempty"`
	RequiredSkills  []string    `json:"required_skills,omitempty"`
	AssignedGMIDs   []uuid.UUID `json:"assigned_gm_ids"`
}

type GMInput struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Skills []string  `json:"skills,omitempty"`
}

type ProposeRequest struct {
	WindowStart time.Time       `json:"window_start"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Activities  []ActivityInput `json:"activities"`
	GMs         []GMInput       `json:"gms"`
}

type Proposal struct {
	ActivityID      uuid.UUID `json:"activity_id"`
	GMID            uuid.UUID `json:"gm_id"`
	AssignmentOrder *int      `json:"assignment_order,omitempty"`
}

type ProposeResponse struct {
	Proposals             []Proposal  `json:"proposals"`
	UnassignedActivityIDs []uuid.UUID `json:"unassigned_activity_ids"`
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 500 {
		msg = msg[:500] + "..."
	}
	return fmt.Sprintf("assignment engine http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) Propose(ctx context.Context, req ProposeRequest) (*ProposeResponse, error) {
	ctx = ctxutil.Default(ctx)
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	backoff := time.Second
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		out, resp, err := c.doOnce(ctx, body)
		if err == nil {
			return out, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}
		sleepFor := httpx.Jitter(httpx.RetryAfterDuration(resp, backoff, 30*time.Second))
		c.log.Warn("assignment engine retrying",
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, errors.New("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, body []byte) (*ProposeResponse, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/propose", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	if td := ctxutil.GetTraceData(ctx); td != nil && td.RequestID != "" {
		req.Header.Set("X-Request-Id", td.RequestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	var out ProposeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp, fmt.Errorf("decode assignment engine response: %w", err)
	}
	return &out, resp, nil
}
