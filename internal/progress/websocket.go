package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const wsWriteTimeout = 5 * time.Second

// WebsocketReporter streams progress events as JSON text frames to a
// websocket endpoint, typically a UI that shows a live progress bar.
// Delivery is best effort: a failed write logs a warning and drops the
// event rather than failing the pipeline.
type WebsocketReporter struct {
	conn *websocket.Conn
	log  *slog.Logger

	mu sync.Mutex // serializes writes
}

var _ Reporter = (*WebsocketReporter)(nil)

// DialWebsocket connects to wsURL and returns a reporter over the
// connection. The caller owns the reporter and must Close it.
func DialWebsocket(ctx context.Context, wsURL string, log *slog.Logger) (*WebsocketReporter, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("progress: dial %s: %w", wsURL, err)
	}
	return &WebsocketReporter{conn: conn, log: log}, nil
}

// Report sends the event as a JSON text frame. Errors are logged, not
// returned.
func (r *WebsocketReporter) Report(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.log.WarnContext(ctx, "progress event marshal failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.conn.Write(ctx, websocket.MessageText, data); err != nil {
		r.log.WarnContext(ctx, "progress event dropped", "stage", ev.Stage, "error", err)
	}
}

// Close closes the websocket with a normal status.
func (r *WebsocketReporter) Close() error {
	return r.conn.Close(websocket.StatusNormalClosure, "done")
}
