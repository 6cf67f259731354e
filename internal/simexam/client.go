package simexam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// agentClient drives one exam session against the agent: lifecycle
// calls over HTTP, frames and browser events over the bridge.
type agentClient struct {
	baseURL string
	http    *http.Client

	mu   sync.Mutex
	conn *websocket.Conn

	// push carries warning and termination messages from the agent.
	push chan pushMessage
}

// pushMessage is one message from the agent's bridge.
type pushMessage struct {
	Type     string `json:"type"`
	Category string `json:"category,omitempty"`
	Count    int    `json:"count,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// statusResponse mirrors the agent's /status payload.
type statusResponse struct {
	Phase      string         `json:"phase"`
	Warnings   map[string]int `json:"warnings"`
	Fullscreen bool           `json:"fullscreen"`
	Blocked    bool           `json:"blocked"`
	RemainingS int            `json:"remaining_s"`
}

// alertsResponse mirrors the agent's /alerts payload.
type alertsResponse struct {
	Alerts []json.RawMessage `json:"alerts"`
}

// errorResponse mirrors the agent's error payload.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newAgentClient(baseURL string, timeout time.Duration) *agentClient {
	return &agentClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		push:    make(chan pushMessage, 16),
	}
}

// connect dials the bridge and starts the read loop.
func (c *agentClient) connect(ctx context.Context) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial bridge: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	c.conn = conn

	go func() {
		defer close(c.push)
		for {
			var msg pushMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case c.push <- msg:
			default:
			}
		}
	}()
	return nil
}

// sendFrame pushes one camera frame over the bridge.
func (c *agentClient) sendFrame(jpeg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(map[string]any{
		"type":   "frame",
		"jpeg":   jpeg,
		"width":  frameWidth,
		"height": frameHeight,
	})
}

// sendBrowserEvent pushes one browser state change over the bridge.
func (c *agentClient) sendBrowserEvent(kind string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(map[string]any{
		"type":  "browser",
		"event": map[string]string{"kind": kind},
	})
}

func (c *agentClient) closeBridge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// health verifies the agent is up.
func (c *agentClient) health(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to agent: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// verify runs the identity check.
func (c *agentClient) verify(ctx context.Context) error {
	return c.lifecycle(ctx, "/verify", nil)
}

// activate starts the exam.
func (c *agentClient) activate(ctx context.Context) error {
	return c.lifecycle(ctx, "/activate", nil)
}

// submit ends the exam.
func (c *agentClient) submit(ctx context.Context, reason string) error {
	return c.lifecycle(ctx, "/submit", map[string]string{"reason": reason})
}

// status fetches the session snapshot.
func (c *agentClient) status(ctx context.Context) (*statusResponse, error) {
	resp, err := c.get(ctx, "/status")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status: %w", err)
	}
	defer resp.Body.Close()

	var st statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &st, nil
}

// alerts fetches the retained violation events.
func (c *agentClient) alerts(ctx context.Context) (int, error) {
	resp, err := c.get(ctx, "/alerts")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch alerts: %w", err)
	}
	defer resp.Body.Close()

	var body alertsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode alerts: %w", err)
	}
	return len(body.Alerts), nil
}

func (c *agentClient) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

// lifecycle posts to a lifecycle endpoint and turns error payloads into
// errors.
func (c *agentClient) lifecycle(ctx context.Context, path string, body any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var e errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Code == "" {
		return fmt.Errorf("%s failed with status %d", path, resp.StatusCode)
	}
	return fmt.Errorf("%s refused: %s", path, e.Code)
}
