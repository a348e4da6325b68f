package dump

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SnapshotEvent is the socket.io event name carrying a Document.
const SnapshotEvent = "snapshot"

// DialTimeout bounds the wait for the initial socket.io connection.
var DialTimeout = 15 * time.Second

// SocketIOSink streams snapshots to a socket.io server for live inspection.
type SocketIOSink struct {
	client *socket.Socket
}

// DialSocketIO connects to rawURL, e.g. "http://localhost:3000/socket.io/".
// The URL path is the socket.io path; the namespace is "/".
func DialSocketIO(ctx context.Context, rawURL string) (*SocketIOSink, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", rawURL)
	logger.Debug("Connecting dump sink...")

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("socket.io URL %q needs a scheme and host", rawURL)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Dump sink connected.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, ok := errs[0].(error)
		if !ok {
			err = errors.New("connection refused")
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &SocketIOSink{client: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(DialTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", DialTimeout)
	}
}

// Dump emits a SnapshotEvent carrying the snapshot Document.
func (s *SocketIOSink) Dump(ctx context.Context, snap Snapshot) error {
	if !s.client.Connected() {
		return errors.New("socket.io client is not connected")
	}
	s.client.Emit(SnapshotEvent, NewDocument(snap))
	return nil
}

// Close disconnects the client.
func (s *SocketIOSink) Close() error {
	s.client.Disconnect()
	return nil
}
