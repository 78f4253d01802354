package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"crossborder/internal/sequencer"
)

const streamWriteTimeout = 5 * time.Second

// streamFrame is what /ws clients receive. The first frame is "ready" and
// carries the current snapshot; every later frame carries one event.
type streamFrame struct {
	Type     string              `json:"type"`
	Snapshot *sequencer.Snapshot `json:"snapshot,omitempty"`
	Event    *sequencer.Event    `json:"event,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "stream unavailable")
		return
	}
	opts := &websocket.AcceptOptions{}
	if len(h.originPatterns) > 0 {
		opts.OriginPatterns = h.originPatterns
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)
	h.metrics.StreamClients.Inc()
	defer h.metrics.StreamClients.Dec()

	snap := h.seq.Snapshot()
	if err := writeFrame(ctx, conn, streamFrame{Type: "ready", Snapshot: &snap}); err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
		return
	}

	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case evt, ok := <-sub.C:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			if err := writeFrame(ctx, conn, streamFrame{Type: "event", Event: &evt}); err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame streamFrame) error {
	writeCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, frame)
}
