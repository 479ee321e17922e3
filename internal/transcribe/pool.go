package transcribe

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// EnginePool bounds concurrent engine invocations.
type EnginePool struct {
	size  int64
	sem   *semaphore.Weighted
	inUse atomic.Int64
}

// NewEnginePool creates a pool with size slots; size < 1 is treated as 1.
func NewEnginePool(size int) *EnginePool {
	if size < 1 {
		size = 1
	}
	return &EnginePool{size: int64(size), sem: semaphore.NewWeighted(int64(size))}
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// func is idempotent.
func (p *EnginePool) Acquire(ctx context.Context) (func(), error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return func() {}, err
	}
	p.inUse.Add(1)
	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			p.inUse.Add(-1)
			p.sem.Release(1)
		}
	}, nil
}

// Size returns the slot count.
func (p *EnginePool) Size() int { return int(p.size) }

// InUse returns the number of held slots.
func (p *EnginePool) InUse() int { return int(p.inUse.Load()) }
