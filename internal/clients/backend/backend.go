package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"studio_site/internal/models"
)

const (
	DBPath           = "/db"
	HeaderAdminEmail = "X-Admin-Email"

	maxBody = 8 << 20
)

var (
	ErrNoBackend = errors.New("backend url is not configured")
	ErrStatus    = errors.New("unexpected status")
	ErrEmptyBody = errors.New("document body holds no content categories")
)

var documentKeys = []string{"games", "studios", "partners", "news", "blogPosts", "about"}

// Client talks to the /db endpoint. It never retries.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *Client) Fetch(ctx context.Context) (*models.Document, error) {
	const op = "clients.backend.Fetch"

	if c.baseURL == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoBackend)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+DBPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: %d %s", op, ErrStatus, resp.StatusCode, errorMessage(body))
	}

	if json.Valid(body) && !hasContent(body) {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyBody)
	}

	doc, err := models.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.log.Debug("document fetched", slog.Int("bytes", len(body)))

	return doc, nil
}

func (c *Client) Push(ctx context.Context, doc models.Document, adminEmail string) error {
	const op = "clients.backend.Push"

	if c.baseURL == "" {
		return fmt.Errorf("%s: %w", op, ErrNoBackend)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+DBPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAdminEmail, adminEmail)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%s: %w: %d %s", op, ErrStatus, resp.StatusCode, errorMessage(body))
	}

	c.log.Debug("document pushed", slog.Int("bytes", len(payload)), slog.String("admin", adminEmail))

	return nil
}

// hasContent reports whether body is a JSON object carrying at least one
// document category.
func hasContent(body []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return false
	}
	for _, k := range documentKeys {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

// errorMessage pulls the error out of a {error, message} envelope.
func errorMessage(body []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Error == "" {
		return ""
	}
	if env.Message != "" {
		return env.Error + ": " + env.Message
	}
	return env.Error
}
