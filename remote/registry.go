// Package remote maps identifiers to receivers so that calls arriving from
// outside the process can be routed to delegates. It defines no wire format:
// payload decoding is supplied by the caller.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Swind/go-delegate/core"
)

var (
	ErrNotRegistered  = errors.New("remote: no receiver registered")
	ErrDuplicateID    = errors.New("remote: identifier already registered")
	ErrRegistryClosed = errors.New("remote: registry closed")
)

// Receiver handles one inbound payload.
type Receiver interface {
	Receive(ctx context.Context, payload []byte) error
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(ctx context.Context, payload []byte) error

func (f ReceiverFunc) Receive(ctx context.Context, payload []byte) error { return f(ctx, payload) }

// Registry is an explicit identifier to receiver table guarded by one lock.
// There is no process-wide instance; embedders create and pass their own.
type Registry struct {
	mu        sync.RWMutex
	receivers map[uuid.UUID]Receiver
	closed    bool
	logger    core.Logger
}

// NewRegistry returns an empty registry. A nil logger discards output.
func NewRegistry(logger core.Logger) *Registry {
	if logger == nil {
		logger = core.NewNoOpLogger()
	}
	return &Registry{
		receivers: make(map[uuid.UUID]Receiver),
		logger:    logger,
	}
}

// Register stores r under a fresh identifier.
func (r *Registry) Register(rcv Receiver) (uuid.UUID, error) {
	id := uuid.New()
	if err := r.RegisterWithID(id, rcv); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// RegisterWithID stores rcv under a caller-chosen identifier, for peers that
// agreed on identifiers in advance.
func (r *Registry) RegisterWithID(id uuid.UUID, rcv Receiver) error {
	if rcv == nil {
		return fmt.Errorf("remote: nil receiver for %s", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if _, ok := r.receivers[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	r.receivers[id] = rcv
	r.logger.Debug("Receiver registered", core.F("id", id.String()))
	return nil
}

// Unregister removes id. It reports whether anything was removed.
func (r *Registry) Unregister(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rcv, ok := r.receivers[id]
	if !ok {
		return false
	}
	delete(r.receivers, id)
	releaseReceiver(rcv)
	r.logger.Debug("Receiver unregistered", core.F("id", id.String()))
	return true
}

func (r *Registry) Lookup(id uuid.UUID) (Receiver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rcv, ok := r.receivers[id]
	return rcv, ok
}

// Dispatch routes payload to the receiver registered under id. The receiver
// runs on the calling goroutine, outside the registry lock.
func (r *Registry) Dispatch(ctx context.Context, id uuid.UUID, payload []byte) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrRegistryClosed
	}
	rcv, ok := r.receivers[id]
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("Dispatch to unknown receiver", core.F("id", id.String()))
		return fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	if err := rcv.Receive(ctx, payload); err != nil {
		return fmt.Errorf("remote %s: %w", id, err)
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.receivers)
}

// Close drops every receiver and refuses further registrations and dispatches.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for _, rcv := range r.receivers {
		releaseReceiver(rcv)
	}
	clear(r.receivers)
}

// releaseReceiver releases receivers that hold delegate clones.
func releaseReceiver(rcv Receiver) {
	if rel, ok := rcv.(interface{ Release() }); ok {
		rel.Release()
	}
}
