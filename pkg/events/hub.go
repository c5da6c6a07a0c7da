package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Handler receives one delivered payload. Handlers run synchronously on
// the publisher's goroutine; the hub provides no isolation, so a panic
// in a handler propagates to the publisher.
type Handler func(kind Kind, payload *Payload)

// subscription scopes. A subscription matches exactly one of: a single
// kind, every kind in a namespace, or every kind.
type scope int

const (
	scopeExact scope = iota
	scopeNamespace
	scopeGlobal
)

// Subscription is the handle returned by the subscribe methods. Pass
// it to [Hub.Unsubscribe] to stop deliveries.
type Subscription struct {
	scope     scope
	kind      Kind
	namespace Namespace
	handler   Handler
	once      bool
	removed   bool
}

// Options configures a Hub at construction.
type Options struct {
	// Strict controls the fate of a contract violation during publish:
	// strict hubs (development, tests) return the violation to the
	// publisher, non-strict hubs (production) log it and drop the
	// publish. Set explicitly by the host application, never inferred
	// from ambient process state.
	Strict bool

	// Debug enables redacted payload logging on every publish.
	Debug bool

	// MaxSubscribers caps live subscriptions as a leak tripwire.
	// Exceeding it logs a warning; it never rejects a subscription.
	// Zero means no cap.
	MaxSubscribers int

	// Logger receives diagnostic output. Nil falls back to
	// slog.Default().
	Logger *slog.Logger
}

// Hub is an in-process multicast of Payloads keyed by Kind, with
// namespace and global wildcard subscriptions. Delivery is synchronous
// and non-persistent: a publish invokes the handlers registered at that
// instant and stores nothing, so a subscriber registered afterwards
// never sees it.
//
// Construct one Hub per process run and pass it to every component
// that needs it; tests construct, use, and discard their own.
type Hub struct {
	mu   sync.Mutex
	subs []*Subscription

	validate bool
	debug    bool
	strict   bool
	maxSubs  int

	logger  *slog.Logger
	nowFunc func() time.Time
}

// New creates a Hub with validation enabled.
func New(opts Options) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		validate: true,
		debug:    opts.Debug,
		strict:   opts.Strict,
		maxSubs:  opts.MaxSubscribers,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Subscribe registers handler for exactly kind.
func (h *Hub) Subscribe(kind Kind, handler Handler) *Subscription {
	return h.add(&Subscription{scope: scopeExact, kind: kind, handler: handler})
}

// SubscribeOnce registers handler for exactly kind; the subscription is
// removed after its first delivery.
func (h *Hub) SubscribeOnce(kind Kind, handler Handler) *Subscription {
	return h.add(&Subscription{scope: scopeExact, kind: kind, handler: handler, once: true})
}

// SubscribeNamespace registers handler for every kind in namespace.
func (h *Hub) SubscribeNamespace(namespace Namespace, handler Handler) *Subscription {
	return h.add(&Subscription{scope: scopeNamespace, namespace: namespace, handler: handler})
}

// SubscribeAny registers handler for every kind.
func (h *Hub) SubscribeAny(handler Handler) *Subscription {
	return h.add(&Subscription{scope: scopeGlobal, handler: handler})
}

func (h *Hub) add(sub *Subscription) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, sub)
	if h.maxSubs > 0 && h.live() > h.maxSubs {
		h.logger.Warn("subscriber cap exceeded, possible subscription leak",
			"live", h.live(), "max", h.maxSubs)
	}
	return sub
}

// live counts subscriptions not yet removed.
func (h *Hub) live() int {
	n := 0
	for _, sub := range h.subs {
		if !sub.removed {
			n++
		}
	}
	return n
}

// Unsubscribe removes sub. The handler receives zero further
// deliveries for that subscription. Unsubscribing twice is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	sub.removed = true
	h.compact()
}

// ClearAll removes every subscription. A cleared hub behaves
// identically to a freshly constructed one.
func (h *Hub) ClearAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		sub.removed = true
	}
	h.subs = nil
}

// SetValidationEnabled toggles contract validation on publish.
func (h *Hub) SetValidationEnabled(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.validate = enabled
}

// SetDebugMode toggles redacted payload logging on publish.
func (h *Hub) SetDebugMode(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.debug = enabled
}

// SetMaxSubscribers sets the leak-tripwire cap. Zero disables it.
func (h *Hub) SetMaxSubscribers(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.maxSubs = n
}

// Publish delivers payload to the subscribers of kind: first exact-kind
// subscriptions, then namespace wildcards, then global wildcards, each
// in registration order, synchronously on the calling goroutine.
//
// Before delivery Publish stamps a missing Timestamp, validates the
// payload contract when validation is enabled, and in debug mode logs a
// redacted copy. A contract violation is returned to the caller on a
// strict hub and logged-and-swallowed (false, nil) otherwise.
//
// The delivered result is true when at least one of the three
// subscriber groups had a registered subscription.
func (h *Hub) Publish(kind Kind, payload *Payload) (delivered bool, err error) {
	if payload != nil && payload.Timestamp.IsZero() {
		payload.Timestamp = h.nowFunc()
	}

	h.mu.Lock()
	validate, debug, strict := h.validate, h.debug, h.strict
	h.mu.Unlock()

	if validate {
		if violation := Validate(kind, payload); violation != nil {
			if strict {
				return false, violation
			}
			h.logger.Error("dropping event with invalid payload",
				"kind", string(kind), "error", violation)
			return false, nil
		}
	}

	if debug {
		encoded, err := json.Marshal(Redacted(payload))
		if err != nil {
			encoded = []byte(err.Error())
		}
		h.logger.Debug("publish", "kind", string(kind), "payload", string(encoded))
	}

	// Snapshot matching subscriptions before invoking any handler, so
	// a handler that subscribes or unsubscribes does not affect this
	// delivery. Once-subscriptions are consumed by the snapshot.
	h.mu.Lock()
	var run []*Subscription
	groups := 0
	for _, sc := range []scope{scopeExact, scopeNamespace, scopeGlobal} {
		matched := false
		for _, sub := range h.subs {
			if sub.removed || sub.scope != sc {
				continue
			}
			if sc == scopeExact && sub.kind != kind {
				continue
			}
			if sc == scopeNamespace && sub.namespace != kind.Namespace() {
				continue
			}
			matched = true
			run = append(run, sub)
			if sub.once {
				sub.removed = true
			}
		}
		if matched {
			groups++
		}
	}
	h.compact()
	h.mu.Unlock()

	for _, sub := range run {
		sub.handler(kind, payload)
	}

	return groups > 0, nil
}

// compact drops removed subscriptions from the registry.
func (h *Hub) compact() {
	kept := h.subs[:0]
	for _, sub := range h.subs {
		if !sub.removed {
			kept = append(kept, sub)
		}
	}
	h.subs = kept
}
