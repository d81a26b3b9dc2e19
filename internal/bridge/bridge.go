// Package bridge serves the command surface over the local Unix domain
// socket named in §6 "Command surface": one JSON object per line in,
// one JSON object per line out, the same request/response shape as the
// original's IPC layer but carried over net.Conn instead of a desktop
// framework's bindings.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"sync"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/logging"
)

// Handler answers one command's raw JSON args, returning a JSON-marshalable
// result or an error (ideally a *dberrors.Error, so the client gets a code).
type Handler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// Request is the wire shape of one line read from a client connection.
type Request struct {
	ID      string          `json:"id"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args"`
}

// Response is the wire shape of one line written back to a client.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  *dberrors.Error `json:"error,omitempty"`
}

// Server dispatches newline-delimited JSON requests arriving on a Unix
// socket to registered Handlers.
type Server struct {
	socketPath string
	log        *logging.Logger

	mu       sync.RWMutex
	handlers map[string]Handler

	listener net.Listener
	wg       sync.WaitGroup
}

func NewServer(socketPath string, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default
	}
	return &Server{
		socketPath: socketPath,
		log:        log,
		handlers:   make(map[string]Handler),
	}
}

// Register binds a command name to the handler invoked for it. Not safe to
// call concurrently with Serve once the listener has started accepting.
func (s *Server) Register(command string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[command] = handler
}

// Serve listens on the configured socket path until ctx is cancelled. It
// removes any stale socket file left by a prior, uncleanly-terminated run
// before binding.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return dberrors.Database("failed to clear stale socket", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return dberrors.Database("failed to bind command socket", err)
	}
	s.listener = listener

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return dberrors.Database("command socket accept failed", err)
			}
		}
		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	reader := bufio.NewScanner(conn)
	reader.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	encoder := json.NewEncoder(conn)

	for reader.Scan() {
		var req Request
		line := reader.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := json.Unmarshal(line, &req); err != nil {
			_ = encoder.Encode(Response{Error: dberrors.Serialization("malformed request", err)})
			continue
		}
		s.dispatch(ctx, encoder, req)
	}
}

func (s *Server) dispatch(ctx context.Context, encoder *json.Encoder, req Request) {
	s.mu.RLock()
	handler, ok := s.handlers[req.Command]
	s.mu.RUnlock()

	if !ok {
		_ = encoder.Encode(Response{ID: req.ID, Error: dberrors.UnsupportedOperation("unknown command: " + req.Command)})
		return
	}

	result, err := handler(ctx, req.Args)
	if err != nil {
		dbErr, ok := dberrors.As(err)
		if !ok {
			dbErr = dberrors.Database(err.Error(), err)
		}
		s.log.WithField("command", req.Command).Warnf("command failed: %v", err)
		_ = encoder.Encode(Response{ID: req.ID, Error: dbErr})
		return
	}
	_ = encoder.Encode(Response{ID: req.ID, Result: result})
}
