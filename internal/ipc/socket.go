package ipc

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/proto"

	"github.com/bnema/displaytoggle/internal/display"
	"github.com/bnema/displaytoggle/internal/logger"
	"github.com/bnema/displaytoggle/internal/state"
)

// maxMessageSize bounds the length prefix accepted from a peer
const maxMessageSize = 1 << 20

// Handler serves IPC commands. The display manager implements it.
type Handler interface {
	Snapshot(ctx context.Context) (state.State, error)
	SetDisplay(ctx context.Context, id display.ID, enabled bool) error
	RestoreAll(ctx context.Context) error
	SetAutoDisable(ctx context.Context, enabled bool) error
	SetLaunchAtLogin(ctx context.Context, enabled bool) error
	BackendName() string
	LastError() error
}

// SocketServer handles incoming IPC connections
type SocketServer struct {
	mu         sync.Mutex
	listener   net.Listener
	socketPath string
	handler    Handler
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	running    bool
}

// NewSocketServer creates a socket server at the per-user socket path
func NewSocketServer(handler Handler) (*SocketServer, error) {
	socketPath, err := getSocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get socket path: %w", err)
	}

	return NewSocketServerAt(socketPath, handler), nil
}

// NewSocketServerAt creates a socket server listening on socketPath
func NewSocketServerAt(socketPath string, handler Handler) *SocketServer {
	return &SocketServer{
		socketPath: socketPath,
		handler:    handler,
	}
}

// SocketPath returns the path the server listens on
func (s *SocketServer) SocketPath() string {
	return s.socketPath
}

// Start starts the socket server
func (s *SocketServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	// Remove existing socket file if it exists
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}

	// Set socket permissions (user only)
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.listener = listener
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.acceptConnections(ctx)

	logger.Infof("IPC socket server started at %s", s.socketPath)
	return nil
}

// Stop stops the socket server
func (s *SocketServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	if s.cancel != nil {
		s.cancel()
	}

	if s.listener != nil {
		s.listener.Close()
	}

	s.wg.Wait()

	// Clean up socket file
	os.RemoveAll(s.socketPath)

	logger.Info("IPC socket server stopped")
}

// acceptConnections accepts and handles incoming connections
func (s *SocketServer) acceptConnections(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Errorf("Failed to accept connection: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

// handleConnection serves requests on one connection until the peer hangs
// up or the server stops
func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	logger.Debug("New IPC connection established")

	for {
		msg, err := readMessage(conn)
		if err != nil {
			logger.Debugf("Connection closed or read error: %v", err)
			return
		}

		response := s.handleMessage(ctx, msg)
		if err := writeMessage(conn, response); err != nil {
			logger.Errorf("Failed to send response: %v", err)
			return
		}
	}
}

// handleMessage processes a single message and returns a response
func (s *SocketServer) handleMessage(ctx context.Context, msg *Message) *Message {
	response, err := s.dispatch(ctx, msg)
	if err != nil {
		logger.Debugf("IPC %s failed: %v", TypeOf(msg), err)
		errMsg, merr := NewErrorMessage(err)
		if merr != nil {
			logger.Errorf("Failed to build error response: %v", merr)
		}
		return errMsg
	}
	return response
}

func (s *SocketServer) dispatch(ctx context.Context, msg *Message) (*Message, error) {
	switch t := TypeOf(msg); t {
	case MessageTypeList:
		return s.stateResponse(ctx)

	case MessageTypeSet:
		cmd, err := GetSetCommand(msg)
		if err != nil {
			return nil, fmt.Errorf("invalid set command: %w", err)
		}
		if err := s.handler.SetDisplay(ctx, cmd.ID, cmd.Enabled); err != nil {
			return nil, err
		}
		return s.stateResponse(ctx)

	case MessageTypeRestore:
		if err := s.handler.RestoreAll(ctx); err != nil {
			return nil, err
		}
		return s.stateResponse(ctx)

	case MessageTypePrefs:
		cmd, err := GetPrefsCommand(msg)
		if err != nil {
			return nil, fmt.Errorf("invalid prefs command: %w", err)
		}
		if cmd.AutoDisableBuiltin != nil {
			if err := s.handler.SetAutoDisable(ctx, *cmd.AutoDisableBuiltin); err != nil {
				return nil, err
			}
		}
		if cmd.LaunchAtLogin != nil {
			if err := s.handler.SetLaunchAtLogin(ctx, *cmd.LaunchAtLogin); err != nil {
				return nil, err
			}
		}
		return s.stateResponse(ctx)

	case MessageTypeStatus:
		snapshot, err := s.handler.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		status := Status{Backend: s.handler.BackendName(), State: snapshot}
		if lastErr := s.handler.LastError(); lastErr != nil {
			status.LastError = lastErr.Error()
		}
		return NewStatusResponseMessage(status)

	default:
		return nil, fmt.Errorf("unknown message type: %q", t)
	}
}

func (s *SocketServer) stateResponse(ctx context.Context) (*Message, error) {
	snapshot, err := s.handler.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return NewStateMessage(snapshot)
}

// readMessage reads a length-prefixed protobuf message
func readMessage(r io.Reader) (*Message, error) {
	// Read message length (4 bytes, big endian)
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to read message length: %w", err)
	}
	if length > maxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read message data: %w", err)
	}

	var msg Message
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}

// writeMessage writes a length-prefixed protobuf message
func writeMessage(w io.Writer, msg *Message) error {
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// Write message length (4 bytes, big endian)
	length := uint32(len(data)) //nolint:gosec // bounded by maxMessageSize on read
	if err := binary.Write(w, binary.BigEndian, length); err != nil {
		return fmt.Errorf("failed to write message length: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write message data: %w", err)
	}

	return nil
}

// getSocketPath returns the path for the Unix socket. DISPLAYTOGGLE_SOCKET
// overrides the per-user default.
func getSocketPath() (string, error) {
	if path := os.Getenv("DISPLAYTOGGLE_SOCKET"); path != "" {
		return path, nil
	}

	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}

	// Use /tmp/displaytoggle-{username}.sock
	socketPath := filepath.Join("/tmp", fmt.Sprintf("displaytoggle-%s.sock", currentUser.Username))
	return socketPath, nil
}

// GetSocketPath returns the socket path (for use by clients)
func GetSocketPath() (string, error) {
	return getSocketPath()
}
