package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/logger"
	"github.com/bnema/displaytoggle/internal/state"
)

// ErrNotRunning is returned when no daemon listens on the socket
var ErrNotRunning = errors.New("displaytoggle is not running")

// Client handles IPC communication with a running displaytoggle daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the per-user socket
func NewClient() (*Client, error) {
	socketPath, err := GetSocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get socket path: %w", err)
	}
	return NewClientAt(socketPath), nil
}

// NewClientAt creates a client for the socket at socketPath
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// NewClientWithTimeout creates a new IPC client with custom timeout
func NewClientWithTimeout(timeout time.Duration) (*Client, error) {
	client, err := NewClient()
	if err != nil {
		return nil, err
	}
	client.timeout = timeout
	return client, nil
}

// Snapshot returns the daemon's display snapshot and preferences
func (c *Client) Snapshot(ctx context.Context) (state.State, error) {
	msg, err := NewListMessage()
	if err != nil {
		return state.State{}, err
	}
	return c.requestState(ctx, msg)
}

// SetDisplay powers a display on or off through the daemon
func (c *Client) SetDisplay(ctx context.Context, id display.ID, enabled bool) error {
	msg, err := NewSetMessage(id, enabled)
	if err != nil {
		return err
	}
	_, err = c.requestState(ctx, msg)
	return err
}

// RestoreAll turns every display on through the daemon
func (c *Client) RestoreAll(ctx context.Context) error {
	msg, err := NewRestoreMessage()
	if err != nil {
		return err
	}
	_, err = c.requestState(ctx, msg)
	return err
}

// SetAutoDisable updates the auto-disable preference of the daemon
func (c *Client) SetAutoDisable(ctx context.Context, enabled bool) error {
	return c.setPrefs(ctx, PrefsCommand{AutoDisableBuiltin: &enabled})
}

// SetLaunchAtLogin registers or removes the login item through the daemon
func (c *Client) SetLaunchAtLogin(ctx context.Context, enabled bool) error {
	return c.setPrefs(ctx, PrefsCommand{LaunchAtLogin: &enabled})
}

func (c *Client) setPrefs(ctx context.Context, cmd PrefsCommand) error {
	msg, err := NewPrefsMessage(cmd)
	if err != nil {
		return err
	}
	_, err = c.requestState(ctx, msg)
	return err
}

// Status queries the daemon status
func (c *Client) Status(ctx context.Context) (Status, error) {
	msg, err := NewStatusMessage()
	if err != nil {
		return Status{}, err
	}

	response, err := c.sendMessage(ctx, msg)
	if err != nil {
		return Status{}, err
	}
	if remote, err := GetErrorResponse(response); err == nil {
		return Status{}, remote
	}
	return GetStatusResponse(response)
}

// IsRunning reports whether a daemon answers on the socket
func (c *Client) IsRunning(ctx context.Context) bool {
	_, err := c.Status(ctx)
	return err == nil
}

func (c *Client) requestState(ctx context.Context, msg *Message) (state.State, error) {
	response, err := c.sendMessage(ctx, msg)
	if err != nil {
		return state.State{}, err
	}

	switch TypeOf(response) {
	case MessageTypeState:
		return GetState(response)
	case MessageTypeError:
		remote, err := GetErrorResponse(response)
		if err != nil {
			return state.State{}, err
		}
		return state.State{}, remote
	default:
		return state.State{}, fmt.Errorf("unexpected response type: %q", TypeOf(response))
	}
}

// sendMessage sends a message and returns the response
func (c *Client) sendMessage(ctx context.Context, msg *Message) (*Message, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		if isNotListening(err) {
			return nil, ErrNotRunning
		}
		return nil, fmt.Errorf("failed to connect to displaytoggle: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Errorf("Failed to close IPC connection: %v", err)
		}
	}()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		logger.Warnf("Failed to set connection deadline: %v", err)
	}

	if err := writeMessage(conn, msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	response, err := readMessage(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return response, nil
}

// isNotListening reports whether dialing failed because nobody listens
func isNotListening(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ENOENT)
}

// Close closes the client connection
func (c *Client) Close() error {
	// Nothing to close as we create connections per request
	return nil
}
