package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/flush"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names emitted by SocketIO.
const (
	EventElementUpdated = "element_updated"
	EventSceneUpdated   = "scene_updated"
)

const defaultDialTimeout = 15 * time.Second

// SocketIOOptions configures Dial.
type SocketIOOptions struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	// Timeout bounds the wait for the connection. Zero means 15s.
	Timeout time.Duration
}

// emitFunc sends one event with its payload.
type emitFunc func(event string, args ...any)

// SocketIO streams editor updates to a socket.io server.
type SocketIO struct {
	client *socket.Socket
	emit   emitFunc
}

// Dial connects to a socket.io server over websocket and waits until the
// connection is established.
func Dial(ctx context.Context, opts SocketIOOptions) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("notifier", "socketio", "url", opts.URL)
	logger.Info("Connecting editor notifier...")

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid notifier URL %q: scheme and host are required", opts.URL)
	}

	sopts := socket.DefaultOptions()
	sopts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Editor notifier connected.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})
	io.Connect()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", timeout)
	}

	return &SocketIO{
		client: io,
		emit:   func(event string, args ...any) { io.Emit(event, args...) },
	}, nil
}

// Callbacks returns editor callbacks that emit one event per update.
func (s *SocketIO) Callbacks() flush.Callbacks {
	return flush.Callbacks{
		Element: func(ctx context.Context, u flush.ElementUpdate) {
			s.emit(EventElementUpdated, elementPayload(u))
		},
		Graph: func(ctx context.Context, u flush.GraphUpdate) {
			s.emit(EventSceneUpdated, graphPayload(u))
		},
	}
}

// Close disconnects from the server.
func (s *SocketIO) Close(ctx context.Context) {
	if s.client == nil {
		return
	}
	ctxlog.FromContext(ctx).Info("Disconnecting editor notifier.", "sid", s.client.Id())
	s.client.Disconnect()
}

func elementPayload(u flush.ElementUpdate) map[string]any {
	return map[string]any{
		"instance": u.Instance,
		"element":  string(u.Element),
		"mask":     uint32(u.Mask),
		"reasons":  u.Mask.String(),
	}
}

func graphPayload(u flush.GraphUpdate) map[string]any {
	return map[string]any{
		"instance":    u.Instance,
		"time":        u.Time,
		"any_changed": u.AnyChanged,
	}
}
