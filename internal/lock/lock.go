// Package lock provides exclusive per-account locks. Every implementation
// acquires the requested ids in ascending order, so two operations touching
// the same pair of accounts cannot deadlock.
package lock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Locker blocks until every id is held or ctx is done. The returned
// function releases all of them and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, ids ...uuid.UUID) (func(), error)
}

// Ordered returns ids deduplicated and sorted ascending.
func Ordered(ids ...uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// Keyed is an in-process Locker. Entries are reference counted and removed
// once nobody holds or waits on them.
type Keyed struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[uuid.UUID]*entry)}
}

func (k *Keyed) Lock(ctx context.Context, ids ...uuid.UUID) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("Lock: %w", err)
	}
	ordered := Ordered(ids...)
	held := make([]uuid.UUID, 0, len(ordered))

	for _, id := range ordered {
		if err := k.acquire(ctx, id); err != nil {
			k.releaseAll(held)
			return nil, fmt.Errorf("Lock: %s: %w", id, err)
		}
		held = append(held, id)
	}

	var once sync.Once
	return func() { once.Do(func() { k.releaseAll(held) }) }, nil
}

func (k *Keyed) acquire(ctx context.Context, id uuid.UUID) error {
	k.mu.Lock()
	e, ok := k.entries[id]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.entries[id] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.mu.Lock()
		k.unref(id, e)
		k.mu.Unlock()
		return ctx.Err()
	}
}

func (k *Keyed) releaseAll(ids []uuid.UUID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i := len(ids) - 1; i >= 0; i-- {
		e := k.entries[ids[i]]
		<-e.ch
		k.unref(ids[i], e)
	}
}

func (k *Keyed) unref(id uuid.UUID, e *entry) {
	e.refs--
	if e.refs == 0 {
		delete(k.entries, id)
	}
}

// Held reports how many ids have a holder or a waiter.
func (k *Keyed) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
