package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/Swind/go-delegate/core"
)

// Decoder turns an inbound payload into delegate arguments.
type Decoder[A any] func(payload []byte) (A, error)

// delegateReceiver invokes a delegate with decoded arguments.
type delegateReceiver[A, R any] struct {
	mu       sync.RWMutex
	released bool
	d        core.Delegate[A, R]
	decode   Decoder[A]
}

// NewReceiver adapts d to Receiver. The receiver holds a clone of d until the
// registry drops it; results are discarded since there is no reply channel.
func NewReceiver[A, R any](d core.Delegate[A, R], decode Decoder[A]) Receiver {
	if d == nil || d.Empty() {
		panic("remote: cannot build a receiver from an empty delegate")
	}
	if decode == nil {
		panic("remote: nil decoder")
	}
	return &delegateReceiver[A, R]{d: d.Clone(), decode: decode}
}

func (r *delegateReceiver[A, R]) Receive(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	args, err := r.decode(payload)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.released {
		return ErrNotRegistered
	}
	_, err = r.d.Invoke(args)
	return err
}

// Release drops the receiver's clone, releasing a shared owner it retained.
// It waits for in-flight invocations and makes later ones fail.
func (r *delegateReceiver[A, R]) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	r.d.Release()
}
