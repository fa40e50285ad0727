// Package remote serves the display menu over SSH so displays can be
// switched from another machine when every local screen is dark
package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	bm "github.com/charmbracelet/wish/bubbletea"
	gossh "golang.org/x/crypto/ssh"

	"github.com/bnema/displaytoggle/internal/logger"
	"github.com/bnema/displaytoggle/internal/ui"
)

// Config describes where the SSH menu listens and who may use it
type Config struct {
	Address            string
	HostKeyPath        string
	AuthorizedKeysPath string
	ToggleDelay        time.Duration
}

// Server handles incoming SSH sessions, each one running its own menu
type Server struct {
	cfg  Config
	ctrl ui.Controller
	keys *AuthorizedKeys

	sshServer *ssh.Server
	listener  net.Listener

	mu       sync.Mutex
	sessions map[string]ssh.Session

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer creates an SSH menu server driving ctrl
func NewServer(cfg Config, ctrl ui.Controller) *Server {
	return &Server{
		cfg:      cfg,
		ctrl:     ctrl,
		keys:     NewAuthorizedKeys(cfg.AuthorizedKeysPath),
		sessions: make(map[string]ssh.Session),
	}
}

// Start begins listening for SSH connections
func (s *Server) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.cfg.HostKeyPath), 0700); err != nil {
		return fmt.Errorf("failed to create host key directory: %w", err)
	}

	server, err := wish.NewServer(
		wish.WithAddress(s.cfg.Address),
		wish.WithHostKeyPath(s.cfg.HostKeyPath),
		wish.WithPublicKeyAuth(s.publicKeyAuth),
		wish.WithMiddleware(
			bm.Middleware(s.teaHandler),
			activeterm.Middleware(),
			s.sessionMiddleware(),
			s.loggingMiddleware(),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create SSH server: %w", err)
	}

	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}

	s.sshServer = server
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		logger.Infof("Remote menu listening on %s", listener.Addr())
		if err := server.Serve(listener); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Errorf("SSH server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Addr returns the address the server is listening on
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts down the SSH server and closes open sessions
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.sshServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.sshServer.Shutdown(ctx)
		}

		s.mu.Lock()
		for _, sess := range s.sessions {
			_ = sess.Close()
		}
		s.sessions = make(map[string]ssh.Session)
		s.mu.Unlock()

		s.wg.Wait()
	})
}

// publicKeyAuth accepts keys listed in the authorized keys file. The file is
// read on every attempt so edits apply without a restart.
func (s *Server) publicKeyAuth(ctx ssh.Context, key ssh.PublicKey) bool {
	fingerprint := gossh.FingerprintSHA256(key)
	addr := ctx.RemoteAddr().String()

	if err := s.keys.Load(); err != nil {
		logger.Errorf("Failed to read authorized keys: %v", err)
		return false
	}

	if s.keys.Allowed(key) {
		logger.Infof("SSH key accepted user=%s addr=%s key=%s", ctx.User(), addr, fingerprint)
		return true
	}

	logger.Warnf("SSH key denied user=%s addr=%s key=%s", ctx.User(), addr, fingerprint)
	return false
}

// loggingMiddleware provides custom logging using our internal logger
func (s *Server) loggingMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			logger.Debugf("SSH session started: user=%s addr=%s", sess.User(), sess.RemoteAddr())
			h(sess)
			logger.Debugf("SSH session ended: addr=%s", sess.RemoteAddr())
		}
	}
}

// sessionMiddleware tracks open sessions so Stop can close them
func (s *Server) sessionMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			id := sess.Context().SessionID()

			s.mu.Lock()
			s.sessions[id] = sess
			s.mu.Unlock()

			defer func() {
				s.mu.Lock()
				delete(s.sessions, id)
				s.mu.Unlock()
			}()

			h(sess)
		}
	}
}

// teaHandler creates the menu of one session. Leaving a remote menu never
// touches the displays.
func (s *Server) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	opts := ui.DefaultMenuOptions()
	opts.ExitLabel = "Disconnect"
	opts.RestoreOnExit = false
	if s.cfg.ToggleDelay > 0 {
		opts.ToggleDelay = s.cfg.ToggleDelay
	}

	menu := ui.NewMenuModel(s.ctrl, opts)
	go func() {
		<-sess.Context().Done()
		menu.Close()
	}()

	return menu, []tea.ProgramOption{tea.WithAltScreen()}
}
