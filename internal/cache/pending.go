package cache

import (
	"context"
	"sync"
)

// Pending is a caller's handle on an in-flight fetch. Several handles may
// share one fetch; the fetch is cancelled only after every handle cancels.
type Pending[T any] struct {
	c   *Cache[T]
	key string
	f   *flight[T]

	once sync.Once
}

func failedPending[T any](err error) *Pending[T] {
	f := &flight[T]{done: make(chan struct{}), err: err}
	close(f.done)
	return &Pending[T]{f: f}
}

// Done is closed when the fetch finishes, fails or is discarded.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.f.done
}

// Wait blocks until the fetch finishes or ctx ends. Abandoning ctx does not
// cancel the fetch; call Cancel for that.
func (p *Pending[T]) Wait(ctx context.Context) (Entry[T], error) {
	select {
	case <-p.f.done:
		return p.f.entry, p.f.err
	case <-ctx.Done():
		return Entry[T]{Key: p.key}, ctx.Err()
	}
}

// Err returns the fetch error once Done is closed, nil before.
func (p *Pending[T]) Err() error {
	select {
	case <-p.f.done:
		return p.f.err
	default:
		return nil
	}
}

// Cancel withdraws this handle's interest. Safe to call more than once.
func (p *Pending[T]) Cancel() {
	p.once.Do(func() {
		if p.c == nil {
			return
		}
		select {
		case <-p.f.done:
			return
		default:
		}
		p.c.release(p.key, p.f)
	})
}
