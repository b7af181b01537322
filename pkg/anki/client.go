// Package anki is a client for the AnkiConnect HTTP bridge.
//
// Every action performs a version handshake before its first request. The
// handshake is shared by concurrent callers and cached once it succeeds.
// Responses are validated before they are converted to Go values.
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/singleflight"

	"github.com/japaniel/cardsmith/pkg/apierr"
)

// APIVersion is the AnkiConnect API version this client speaks.
const APIVersion = 2

// DefaultServer is the default AnkiConnect address.
const DefaultServer = "http://127.0.0.1:8765"

const (
	msgConnectionFailure = "Anki connection failure"
	msgInvalidResponse   = "Invalid Anki response"
)

// Config configures a Client.
type Config struct {
	Server  string
	APIKey  string
	Enabled bool
	Timeout time.Duration
	// HandshakeAttempts bounds retries of the version handshake on
	// connection failures.
	HandshakeAttempts uint
	HandshakeDelay    time.Duration
}

// Client talks to AnkiConnect. A disabled client never touches the network
// and returns zero values.
type Client struct {
	server  string
	apiKey  string
	enabled bool

	HTTPClient *http.Client
	Logger     *slog.Logger

	attempts uint
	delay    time.Duration

	handshake singleflight.Group
	mu        sync.Mutex
	checked   bool
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	server := cfg.Server
	if server == "" {
		server = DefaultServer
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attempts := cfg.HandshakeAttempts
	if attempts == 0 {
		attempts = 3
	}
	delay := cfg.HandshakeDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Client{
		server:     server,
		apiKey:     cfg.APIKey,
		enabled:    cfg.Enabled,
		HTTPClient: &http.Client{Timeout: timeout},
		attempts:   attempts,
		delay:      delay,
	}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Enabled reports whether the client talks to the network.
func (c *Client) Enabled() bool { return c.enabled }

// Server returns the AnkiConnect address.
func (c *Client) Server() string { return c.server }

// invoke performs the handshake if needed, then the action.
func (c *Client) invoke(ctx context.Context, action string, params any) (any, error) {
	if err := c.checkVersion(ctx); err != nil {
		return nil, err
	}
	return c.rawInvoke(ctx, action, params)
}

func (c *Client) checkVersion(ctx context.Context) error {
	c.mu.Lock()
	checked := c.checked
	c.mu.Unlock()
	if checked {
		return nil
	}

	// The flight outlives the caller that started it; each caller stops
	// waiting when its own ctx is done.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.handshake.DoChan("version", func() (any, error) {
		err := retry.Do(
			func() error { return c.verifyVersion(flightCtx) },
			retry.Context(flightCtx),
			retry.Attempts(c.attempts),
			retry.Delay(c.delay),
			retry.LastErrorOnly(true),
			retry.RetryIf(isConnectionFailure),
		)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.checked = true
		c.mu.Unlock()
		return nil, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			c.logger().Debug("anki handshake failed", "server", c.server, "shared", res.Shared, "error", res.Err)
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) verifyVersion(ctx context.Context) error {
	result, err := c.rawInvoke(ctx, "version", nil)
	if err != nil {
		return err
	}
	version, err := asInt(result, "version")
	if err != nil {
		return err
	}
	if version < APIVersion {
		return apierr.Wrap(apierr.ErrVersionTooOld,
			fmt.Sprintf("Client Anki-Connect version %d is newer than server version %d", APIVersion, version)).
			With("version", version)
	}
	return nil
}

func isConnectionFailure(err error) bool {
	var e *apierr.Error
	return errors.As(err, &e) && e.Message == msgConnectionFailure
}

type request struct {
	Action  string `json:"action"`
	Params  any    `json:"params,omitempty"`
	Version int    `json:"version"`
	Key     string `json:"key,omitempty"`
}

// rawInvoke sends one action without a handshake.
func (c *Client) rawInvoke(ctx context.Context, action string, params any) (any, error) {
	body, err := json.Marshal(request{Action: action, Params: params, Version: APIVersion, Key: c.apiKey})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apierr.Wrap(err, msgConnectionFailure).
			With("action", action).
			With("params", params).
			With("originalError", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apierr.Newf("Anki connection error: %d", resp.StatusCode).
			With("action", action).
			With("params", params).
			With("status", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Wrap(err, msgConnectionFailure).
			With("action", action).
			With("params", params)
	}

	var result any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return nil, apierr.Wrap(err, msgInvalidResponse).
			With("action", action).
			With("params", params).
			With("status", resp.StatusCode).
			With("responseText", string(raw))
	}

	if obj, ok := result.(map[string]any); ok {
		if apiError, ok := obj["error"]; ok && apiError != nil {
			return nil, apierr.Newf("Anki error: %v", apiError).
				With("action", action).
				With("params", params).
				With("status", resp.StatusCode).
				With("apiError", apiError)
		}
	}
	c.logger().Debug("anki action", "action", action)
	return result, nil
}
