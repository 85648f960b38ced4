package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftengine/go/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is the window in which notifications for one session coalesce.
const DefaultDebounce = 300 * time.Millisecond

// Handler is called once per debounce window with the session that changed.
type Handler func(sessionID uuid.UUID)

type pending struct {
	timer     clockwork.Timer
	coalesced int
}

// Notifier fans out pick notifications to per-session subscribers. Bursts inside the
// debounce window collapse into a single call after the window closes.
type Notifier struct {
	clock  clockwork.Clock
	window time.Duration

	mu      sync.Mutex
	subs    map[uuid.UUID]map[uint64]Handler
	nextID  uint64
	pending map[uuid.UUID]*pending
}

func NewNotifier(window time.Duration, clock clockwork.Clock) *Notifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Notifier{
		clock:   clock,
		window:  window,
		subs:    make(map[uuid.UUID]map[uint64]Handler),
		pending: make(map[uuid.UUID]*pending),
	}
}

// Subscribe registers h for sessionID. The returned func removes it and is safe to call
// more than once.
func (n *Notifier) Subscribe(sessionID uuid.UUID, h Handler) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	if n.subs[sessionID] == nil {
		n.subs[sessionID] = make(map[uint64]Handler)
	}
	n.subs[sessionID][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs[sessionID], id)
			if len(n.subs[sessionID]) == 0 {
				delete(n.subs, sessionID)
				n.dropPending(sessionID)
			}
		})
	}
}

// Notify schedules a call to the session's subscribers at the end of the current
// debounce window.
func (n *Notifier) Notify(sessionID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.subs[sessionID]) == 0 {
		return
	}
	if p, ok := n.pending[sessionID]; ok {
		p.coalesced++
		return
	}
	p := &pending{}
	p.timer = n.clock.AfterFunc(n.window, func() { n.fire(sessionID, p) })
	n.pending[sessionID] = p
}

// Reset drops the pending window for the session and notifies right away.
func (n *Notifier) Reset(sessionID uuid.UUID) {
	n.mu.Lock()
	n.dropPending(sessionID)
	n.mu.Unlock()
	n.deliver(sessionID, 0)
}

// PickCommitted notifies the session of every committed pick.
func (n *Notifier) PickCommitted(ctx context.Context, p models.Pick, complete bool) {
	n.Notify(p.SessionID)
}

// Close cancels every pending window.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id := range n.pending {
		n.dropPending(id)
	}
}

// Must be called with n.mu held.
func (n *Notifier) dropPending(sessionID uuid.UUID) {
	if p, ok := n.pending[sessionID]; ok {
		p.timer.Stop()
		delete(n.pending, sessionID)
	}
}

// fire ends the window p. A window that was dropped or replaced in the meantime is
// ignored.
func (n *Notifier) fire(sessionID uuid.UUID, p *pending) {
	n.mu.Lock()
	if n.pending[sessionID] != p {
		n.mu.Unlock()
		return
	}
	delete(n.pending, sessionID)
	coalesced := p.coalesced
	n.mu.Unlock()
	n.deliver(sessionID, coalesced)
}

func (n *Notifier) deliver(sessionID uuid.UUID, coalesced int) {
	n.mu.Lock()
	handlers := make([]Handler, 0, len(n.subs[sessionID]))
	for _, h := range n.subs[sessionID] {
		handlers = append(handlers, h)
	}
	n.mu.Unlock()

	if coalesced > 0 {
		log.Debug().
			Str("session_id", sessionID.String()).
			Int("coalesced", coalesced).
			Msg("coalesced pick notifications")
	}
	for _, h := range handlers {
		h(sessionID)
	}
}
