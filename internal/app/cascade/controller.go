// Package cascade implements the Organization → Team → Member selection
// cascade shared by the explore, teams and profile screens.
//
// A Controller owns the selection state and the three dependent
// collections. Changing an upstream selection resets everything below it
// before any fetch is dispatched, and every fetch carries a Scope so a late
// response for an abandoned selection is dropped instead of overwriting
// newer state.
package cascade

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/orgdirectory/internal/app/system/apperr"
	"github.com/dalemusser/orgdirectory/internal/app/system/timeouts"
	"github.com/dalemusser/orgdirectory/internal/domain/models"
	"go.uber.org/zap"
)

// Level names used in logs and discard notifications.
const (
	LevelOrganizations = "organizations"
	LevelTeams         = "teams"
	LevelMembers       = "members"
)

// Fetchers load each level. Members may be nil for a two-level cascade
// (organizations and teams only).
type Fetchers struct {
	Organizations func(ctx context.Context) ([]models.Organization, error)
	Teams         func(ctx context.Context, organizationID string) ([]models.Team, error)
	Members       func(ctx context.Context, teamID string) ([]models.Member, error)
}

// Dispatcher runs a fetch task asynchronously. The default starts a
// goroutine per task.
type Dispatcher func(task func())

// Option configures a Controller.
type Option func(*Controller)

// WithDispatcher replaces the default goroutine dispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Controller) {
		if d != nil {
			c.dispatch = d
		}
	}
}

// WithTimeout bounds each fetch. Defaults to timeouts.Fetch().
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDiscardHook is called with the level name whenever a stale
// completion is dropped.
func WithDiscardHook(fn func(level string)) Option {
	return func(c *Controller) { c.onDiscard = fn }
}

// Controller is safe for concurrent use.
type Controller struct {
	fetch     Fetchers
	log       *zap.Logger
	dispatch  Dispatcher
	timeout   time.Duration
	onDiscard func(level string)

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	seq      uint64
	orgs     Level[models.Organization]
	teams    Level[models.Team]
	members  Level[models.Member]
	orgID    string
	teamID   string
	inflight int
	changed  chan struct{}
	closed   bool
}

// New builds a controller and immediately starts loading organizations.
func New(fetch Fetchers, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		fetch:    fetch,
		log:      logger,
		dispatch: func(task func()) { go task() },
		timeout:  timeouts.Fetch(),
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.mu.Lock()
	launch := c.loadOrganizationsLocked()
	c.mu.Unlock()
	c.run(launch)
	return c
}

// HasMembers reports whether this cascade has a member level.
func (c *Controller) HasMembers() bool { return c.fetch.Members != nil }

// ReloadOrganizations refetches the organization list unless a load is
// already in flight. Selections are kept.
func (c *Controller) ReloadOrganizations() {
	c.mu.Lock()
	if c.closed || c.orgs.Status == Loading {
		c.mu.Unlock()
		return
	}
	launch := c.loadOrganizationsLocked()
	c.mu.Unlock()
	c.run(launch)
}

// SelectOrganization changes the organization selection. The team
// selection and the member level are always cleared. An empty id resets the
// team level to Unloaded without fetching.
//
// Re-selecting the current organization does not refetch a level that is
// Loading or Loaded; a Failed level is retried.
func (c *Controller) SelectOrganization(id string) {
	id = strings.TrimSpace(id)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.teamID = ""
	c.members = Level[models.Member]{}

	var launch func()
	switch {
	case id == "":
		c.orgID = ""
		c.teams = Level[models.Team]{}
	case id == c.orgID && (c.teams.Status == Loading || c.teams.Status == Loaded):
		// selection unchanged; downstream already cleared
	default:
		c.orgID = id
		c.teams = Level[models.Team]{Status: Loading, Scope: c.nextScopeLocked(id)}
		launch = c.loadTeamsLocked(c.teams.Scope)
	}
	c.notifyLocked()
	c.mu.Unlock()
	c.run(launch)
}

// SelectTeam changes the team selection and loads its members. An empty id
// resets the member level. The team must belong to the loaded teams of the
// selected organization, otherwise InvalidState is returned and nothing
// changes.
func (c *Controller) SelectTeam(id string) error {
	const op = "cascade.SelectTeam"
	id = strings.TrimSpace(id)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return apperr.State(op, "this screen has been closed")
	}
	if id == "" {
		c.teamID = ""
		c.members = Level[models.Member]{}
		c.notifyLocked()
		c.mu.Unlock()
		return nil
	}
	if c.orgID == "" {
		c.mu.Unlock()
		return apperr.State(op, "select an organization first")
	}
	if !containsTeam(c.teams, id) {
		c.mu.Unlock()
		return apperr.State(op, "team does not belong to the selected organization")
	}
	if c.fetch.Members == nil {
		c.teamID = id
		c.notifyLocked()
		c.mu.Unlock()
		return nil
	}
	if id == c.teamID && (c.members.Status == Loading || c.members.Status == Loaded) {
		c.mu.Unlock()
		return nil
	}

	c.teamID = id
	c.members = Level[models.Member]{Status: Loading, Scope: c.nextScopeLocked(id)}
	launch := c.loadMembersLocked(c.members.Scope)
	c.notifyLocked()
	c.mu.Unlock()
	c.run(launch)
	return nil
}

// MergeCreatedTeam appends team to the loaded team collection when it
// belongs to the selected organization. Selection is not altered. It
// reports whether the collection changed.
func (c *Controller) MergeCreatedTeam(team models.Team) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || team.ID == "" || c.teams.Status != Loaded || team.OrganizationID != c.orgID {
		return false
	}
	if containsTeam(c.teams, team.ID) {
		return false
	}
	c.teams.Items = append(c.teams.Items, team)
	c.notifyLocked()
	return true
}

// MergeCreatedMember appends m to every roster given and, when m belongs
// to the selected team, to the loaded member collection. It reports
// whether the member collection changed.
func (c *Controller) MergeCreatedMember(m models.Member, rosters ...*Roster) bool {
	for _, r := range rosters {
		r.Merge(m)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || m.ID == "" || c.members.Status != Loaded || m.TeamID != c.teamID {
		return false
	}
	for _, existing := range c.members.Items {
		if existing.ID == m.ID {
			return false
		}
	}
	c.members.Items = append(c.members.Items, m)
	c.notifyLocked()
	return true
}

// CurrentView returns a snapshot of the selection and the three levels.
// The returned slices are copies.
func (c *Controller) CurrentView() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Organizations:  c.orgs.clone(),
		OrganizationID: c.orgID,
		Teams:          c.teams.clone(),
		TeamID:         c.teamID,
		Members:        c.members.clone(),
		Pending:        c.inflight,
	}
}

// Changed returns a channel closed at the next state change.
func (c *Controller) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// WaitIdle blocks until no fetch is in flight or ctx is done.
func (c *Controller) WaitIdle(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.inflight == 0 {
			c.mu.Unlock()
			return nil
		}
		ch := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Close tears the controller down: in-flight fetches are cancelled and
// their results dropped, and every level returns to Unloaded. Close is
// idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.orgID, c.teamID = "", ""
	c.orgs = Level[models.Organization]{}
	c.teams = Level[models.Team]{}
	c.members = Level[models.Member]{}
	c.notifyLocked()
}

/*──────────────────────────── internals ────────────────────────────*/

func (c *Controller) nextScopeLocked(id string) Scope {
	c.seq++
	return Scope{ID: id, Seq: c.seq}
}

func (c *Controller) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// run hands launch to the dispatcher outside the lock so a synchronous
// dispatcher cannot deadlock.
func (c *Controller) run(launch func()) {
	if launch != nil {
		c.dispatch(launch)
	}
}

func (c *Controller) loadOrganizationsLocked() func() {
	scope := c.nextScopeLocked("")
	c.orgs = Level[models.Organization]{Status: Loading, Items: c.orgs.Items, Scope: scope}
	c.inflight++
	return task(c, LevelOrganizations, scope, func(ctx context.Context) ([]models.Organization, error) {
		return c.fetch.Organizations(ctx)
	}, func() *Level[models.Organization] { return &c.orgs })
}

func (c *Controller) loadTeamsLocked(scope Scope) func() {
	c.inflight++
	return task(c, LevelTeams, scope, func(ctx context.Context) ([]models.Team, error) {
		return c.fetch.Teams(ctx, scope.ID)
	}, func() *Level[models.Team] { return &c.teams })
}

func (c *Controller) loadMembersLocked(scope Scope) func() {
	c.inflight++
	return task(c, LevelMembers, scope, func(ctx context.Context) ([]models.Member, error) {
		return c.fetch.Members(ctx, scope.ID)
	}, func() *Level[models.Member] { return &c.members })
}

// task builds the fetch-and-apply closure for one level. The result is
// applied only if the level is still Loading under the same scope.
func task[T any](c *Controller, name string, scope Scope,
	fetch func(ctx context.Context) ([]T, error),
	level func() *Level[T],
) func() {
	return func() {
		ctx, cancel := timeouts.WithTimeout(c.ctx, c.timeout, c.log, "cascade fetch "+name)
		items, err := fetch(ctx)
		cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		c.inflight--
		defer c.notifyLocked()

		lv := level()
		if c.closed || lv.Status != Loading || lv.Scope != scope {
			c.log.Debug("discarding stale response",
				zap.String("level", name),
				zap.String("scope", scope.ID),
				zap.Uint64("seq", scope.Seq))
			if c.onDiscard != nil {
				c.onDiscard(name)
			}
			return
		}
		if err != nil {
			c.log.Warn("cascade fetch failed",
				zap.String("level", name),
				zap.String("scope", scope.ID),
				zap.Error(err))
			if apperr.KindOf(err) == "" {
				err = apperr.Network("cascade."+name, err)
			}
			*lv = Level[T]{Status: Failed, Err: err, Scope: scope}
			return
		}
		if items == nil {
			items = []T{}
		}
		*lv = Level[T]{Status: Loaded, Items: items, Scope: scope}
	}
}

func containsTeam(l Level[models.Team], id string) bool {
	if l.Status != Loaded {
		return false
	}
	for _, t := range l.Items {
		if t.ID == id {
			return true
		}
	}
	return false
}
