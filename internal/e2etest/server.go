package e2etest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/fitfocus/internal/logging"
)

// LogAddrKey is the attribute the application logs its listen address under. StartServer reads the address from it
// so that tests can listen on localhost:0.
const LogAddrKey = "addr"

// RunFunc has the signature of the application's run function.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

// Server is a running application instance for end-to-end tests.
type Server struct {
	url    string
	client *Client
	stop   context.CancelCauseFunc
	done   chan struct{}
}

// StartServer runs the application in the background and returns once it answers health checks. The server is
// shut down when the test ends.
//
// logSink receives the application logs, usually testhelpers.NewWriter.
func StartServer(t *testing.T, logSink io.Writer, lookupEnv func(string) (string, bool), run RunFunc) (*Server, error) {
	t.Helper()
	ctx, stop := context.WithCancelCause(t.Context())
	server := &Server{url: "", client: nil, stop: stop, done: make(chan struct{})}
	t.Cleanup(server.Shutdown)

	addrCh := make(chan string, 1)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == LogAddrKey {
				select {
				case addrCh <- a.Value.String():
				default:
				}
			}
			return a
		},
	})))

	go func() {
		defer close(server.done)
		if err := run(ctx, logger, lookupEnv); err != nil {
			stop(err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("server exited before listening: %w", context.Cause(ctx))
	case addr := <-addrCh:
		server.url = "http://" + addr
	}

	var err error
	if server.client, err = server.NewDevice(); err != nil {
		return nil, err
	}
	if err = server.client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return nil, fmt.Errorf("wait for ready: %w", err)
	}
	return server, nil
}

// Client returns the default device's client.
func (s *Server) Client() *Client {
	return s.client
}

// NewDevice returns a client with an empty cookie jar, which the application treats as another device.
func (s *Server) NewDevice() (*Client, error) {
	client, err := NewClient(s.url)
	if err != nil {
		return nil, fmt.Errorf("new client: %w", err)
	}
	return client, nil
}

func (s *Server) URL() string {
	return s.url
}

// Shutdown stops the application and waits for run to return. It is safe to call more than once.
func (s *Server) Shutdown() {
	s.stop(nil)
	<-s.done
}
