package itembank

import (
	"context"
	"slices"
	"sync"
)

// MemoryRepository is a Repository over an in-process item slice.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Item
	order []string
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns a repository holding items in insertion order.
func NewMemoryRepository(items ...Item) *MemoryRepository {
	r := &MemoryRepository{items: make(map[string]Item, len(items))}
	for _, it := range items {
		r.Put(it)
	}
	return r
}

// Put inserts or replaces an item.
func (r *MemoryRepository) Put(it Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[it.ID]; !ok {
		r.order = append(r.order, it.ID)
	}
	r.items[it.ID] = it
}

// All returns every item in insertion order.
func (r *MemoryRepository) All() []Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Item, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out
}

func (r *MemoryRepository) QueryCandidates(_ context.Context, filter Filter, exclude []string) ([]Item, error) {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Item
	for _, id := range r.order {
		it := r.items[id]
		if skip[id] || !filter.Matches(it) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, itemID string) (Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[itemID]
	if !ok {
		return Item{}, &ErrItemNotFound{ItemID: itemID}
	}
	it.Subjects = slices.Clone(it.Subjects)
	it.Skills = slices.Clone(it.Skills)
	it.Choices = slices.Clone(it.Choices)
	return it, nil
}

func (r *MemoryRepository) Content(ctx context.Context, itemID string) (Content, error) {
	it, err := r.Get(ctx, itemID)
	if err != nil {
		return Content{}, err
	}
	return ContentOf(it), nil
}
