package cascade

import (
	"context"
	"sync"

	"github.com/dalemusser/orgdirectory/internal/domain/models"
)

// Roster is an unscoped "all members" collection kept by screens that show
// members across teams. Created members are merged into it regardless of
// any team selection.
type Roster struct {
	mu      sync.Mutex
	level   Level[models.Member]
	seq     uint64
	loading bool
	merged  []models.Member // merged while a load is in flight
}

// NewRoster returns an Unloaded roster.
func NewRoster() *Roster { return &Roster{} }

// Load replaces the roster with the result of fetch. Members merged while
// the load is in flight survive it. When loads overlap only the latest one
// is applied; an earlier one returns nil without touching the roster.
func (r *Roster) Load(ctx context.Context, fetch func(context.Context) ([]models.Member, error)) error {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.level.Status = Loading
	r.level.Err = nil
	if !r.loading {
		r.merged = nil
	}
	r.loading = true
	r.mu.Unlock()

	items, err := fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		return nil
	}
	next := append([]models.Member(nil), items...)
	for _, m := range r.merged {
		next = upsert(next, m)
	}
	r.loading = false
	r.merged = nil
	if err != nil {
		r.level = Level[models.Member]{Status: Failed, Items: next, Err: err}
		return err
	}
	r.level = Level[models.Member]{Status: Loaded, Items: next}
	return nil
}

// Merge inserts m, replacing any member with the same id. A nil roster is
// ignored.
func (r *Roster) Merge(m models.Member) {
	if r == nil || m.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.level.Items = upsert(r.level.Items, m)
	if r.loading {
		r.merged = append(r.merged, m)
	}
}

// Level returns a snapshot of the roster.
func (r *Roster) Level() Level[models.Member] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level.clone()
}

// Items returns a copy of the members.
func (r *Roster) Items() []models.Member {
	return r.Level().Items
}

func upsert(items []models.Member, m models.Member) []models.Member {
	for i := range items {
		if items[i].ID == m.ID {
			items[i] = m
			return items
		}
	}
	return append(items, m)
}
