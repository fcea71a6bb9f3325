package livestatus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// writeTimeout bounds how long a single snapshot push may block a
// subscriber's connection.
const writeTimeout = 5 * time.Second

// ChangeFeed fans live-status snapshots out to WebSocket subscribers, one
// subscription per suiteId. Grounded on pkg/events/manager.go's
// ConnectionManager: a connections map plus a per-channel subscriber-set map,
// both behind their own mutex.
type ChangeFeed struct {
	tracker *Tracker

	mu      sync.RWMutex
	subs    map[string]*subscriber // connID -> subscriber

	channelMu sync.RWMutex
	channels  map[string]map[string]bool // suiteID -> set of connID
}

type subscriber struct {
	id     string
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// NewChangeFeed wraps tracker with a WebSocket broadcast layer.
func NewChangeFeed(tracker *Tracker) *ChangeFeed {
	return &ChangeFeed{
		tracker:  tracker,
		subs:     make(map[string]*subscriber),
		channels: make(map[string]map[string]bool),
	}
}

// HandleConnection registers conn as a live subscriber to suiteID's updates,
// sends the current snapshot immediately, and blocks until the connection
// closes or ctx is cancelled.
func (f *ChangeFeed) HandleConnection(ctx context.Context, suiteID string, conn *websocket.Conn) {
	connID := uuid.NewString()
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscriber{id: connID, conn: conn, cancel: cancel}

	f.mu.Lock()
	f.subs[connID] = sub
	f.mu.Unlock()

	f.channelMu.Lock()
	if f.channels[suiteID] == nil {
		f.channels[suiteID] = make(map[string]bool)
	}
	f.channels[suiteID][connID] = true
	f.channelMu.Unlock()

	defer f.unregister(suiteID, connID)

	f.push(sub, f.tracker.Snapshot(suiteID))

	for {
		if _, _, err := conn.Read(subCtx); err != nil {
			return
		}
	}
}

// Broadcast pushes suiteID's current snapshot to every subscriber. Callers
// (cmd/autoheal's trigger dispatch and pkg/api's suite-run handler) invoke
// this once a suite run has finished.
func (f *ChangeFeed) Broadcast(suiteID string) {
	f.channelMu.RLock()
	connIDs := make([]string, 0, len(f.channels[suiteID]))
	for id := range f.channels[suiteID] {
		connIDs = append(connIDs, id)
	}
	f.channelMu.RUnlock()

	if len(connIDs) == 0 {
		return
	}
	snap := f.tracker.Snapshot(suiteID)

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, id := range connIDs {
		if sub, ok := f.subs[id]; ok {
			f.push(sub, snap)
		}
	}
}

func (f *ChangeFeed) push(sub *subscriber, snap SuiteState) {
	payload, err := json.Marshal(snap)
	if err != nil {
		slog.Warn("livestatus: marshal snapshot failed", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := sub.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		slog.Warn("livestatus: push to subscriber failed", "connId", sub.id, "error", err)
		sub.cancel()
	}
}

func (f *ChangeFeed) unregister(suiteID, connID string) {
	f.mu.Lock()
	delete(f.subs, connID)
	f.mu.Unlock()

	f.channelMu.Lock()
	delete(f.channels[suiteID], connID)
	f.channelMu.Unlock()
}
