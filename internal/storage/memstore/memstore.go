// Package memstore is an in-memory storage.Store. It keeps the same dedup and
// counting semantics as the Postgres store and is used by tests and dry runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloud-gov/pages-core-sub005/internal/core"
	"github.com/cloud-gov/pages-core-sub005/internal/storage"
)

// Store is a mutex-guarded in-memory storage.Store.
type Store struct {
	mu sync.Mutex

	nextID        int64
	sites         map[int64]*core.Site
	orgs          map[int64]*core.Organization
	users         map[int64]*core.User
	roles         map[int64]map[int64]string // org -> user -> role
	builds        map[int64]*core.Build
	taskTypes     map[int64]*core.BuildTaskType
	tasks         map[int64]*core.BuildTask
	branchConfigs []*core.SiteBranchConfig
	events        []core.AuditEvent

	// DeleteSiteErr, when set, is returned by DeleteSite for that site.
	DeleteSiteErr map[int64]error
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		sites:         map[int64]*core.Site{},
		orgs:          map[int64]*core.Organization{},
		users:         map[int64]*core.User{},
		roles:         map[int64]map[int64]string{},
		builds:        map[int64]*core.Build{},
		taskTypes:     map[int64]*core.BuildTaskType{},
		tasks:         map[int64]*core.BuildTask{},
		DeleteSiteErr: map[int64]error{},
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddOrganization stores org, assigning an ID when it has none.
func (s *Store) AddOrganization(org *core.Organization) *core.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ID == 0 {
		org.ID = s.id()
	}
	c := *org
	s.orgs[org.ID] = &c
	return org
}

// AddSite stores site, assigning an ID when it has none.
func (s *Store) AddSite(site *core.Site) *core.Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	if site.ID == 0 {
		site.ID = s.id()
	}
	c := *site
	s.sites[site.ID] = &c
	return site
}

// AddUser stores user, assigning an ID when it has none.
func (s *Store) AddUser(user *core.User) *core.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = s.id()
	}
	user.Username = core.NormalizeUsername(user.Username)
	c := *user
	s.users[user.ID] = &c
	return user
}

// AddRole grants user a role in org.
func (s *Store) AddRole(orgID, userID int64, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roles[orgID] == nil {
		s.roles[orgID] = map[int64]string{}
	}
	s.roles[orgID][userID] = role
}

// AddBuildTaskType stores a task type.
func (s *Store) AddBuildTaskType(t *core.BuildTaskType) *core.BuildTaskType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.id()
	}
	c := *t
	s.taskTypes[t.ID] = &c
	return t
}

// AddBuild stores a build as-is, bypassing dedup.
func (s *Store) AddBuild(b *core.Build) *core.Build {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		b.ID = s.id()
	}
	c := *b
	s.builds[b.ID] = &c
	return b
}

// AddBuildTask stores a task in status created unless a status is set.
func (s *Store) AddBuildTask(t *core.BuildTask) *core.BuildTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.id()
	}
	if t.Status == "" {
		t.Status = core.TaskCreated
	}
	c := *t
	s.tasks[t.ID] = &c
	return t
}

// SetBuildTaskStatus overwrites a task status, as a worker would.
func (s *Store) SetBuildTaskStatus(id int64, status core.BuildTaskStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		t.Status = status
	}
}

// SetBuildState overwrites a build state, as a worker would.
func (s *Store) SetBuildState(id int64, state core.BuildState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.builds[id]; ok {
		b.State = state
	}
}

// AddBranchConfig stores a branch config.
func (s *Store) AddBranchConfig(cfg *core.SiteBranchConfig) *core.SiteBranchConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.ID == 0 {
		cfg.ID = s.id()
	}
	c := *cfg
	s.branchConfigs = append(s.branchConfigs, &c)
	return cfg
}

// Builds returns copies of every stored build ordered by ID.
func (s *Store) Builds() []core.Build {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Build, 0, len(s.builds))
	for _, b := range s.builds {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Events returns the recorded audit events.
func (s *Store) Events() []core.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.AuditEvent(nil), s.events...)
}

// Task returns a copy of a stored task.
func (s *Store) Task(id int64) (core.BuildTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return core.BuildTask{}, false
	}
	return *t, true
}

// User returns a copy of a stored user.
func (s *Store) User(id int64) (core.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, false
	}
	return *u, true
}

func (s *Store) withOrg(site *core.Site) *core.Site {
	c := *site
	c.OrganizationActive = nil
	if site.OrganizationID != nil {
		if org, ok := s.orgs[*site.OrganizationID]; ok {
			active := org.IsActive
			c.OrganizationActive = &active
		}
	}
	return &c
}

func (s *Store) FindSiteByRepository(_ context.Context, owner, repository string) (*core.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, site := range s.sites {
		if strings.EqualFold(site.Owner, owner) && strings.EqualFold(site.Repository, repository) {
			return s.withOrg(site), nil
		}
	}
	return nil, fmt.Errorf("site %s/%s: %w", owner, repository, core.ErrNotFound)
}

func (s *Store) GetSite(_ context.Context, id int64) (*core.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[id]
	if !ok {
		return nil, fmt.Errorf("site %d: %w", id, core.ErrNotFound)
	}
	return s.withOrg(site), nil
}

func (s *Store) ListSitesByOrganization(_ context.Context, organizationID int64) ([]*core.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sitesOf(organizationID), nil
}

func (s *Store) sitesOf(organizationID int64) []*core.Site {
	var out []*core.Site
	for _, site := range s.sites {
		if site.OrganizationID != nil && *site.OrganizationID == organizationID {
			out = append(out, s.withOrg(site))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) DeleteSite(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.DeleteSiteErr[id]; err != nil {
		return err
	}
	if _, ok := s.sites[id]; !ok {
		return fmt.Errorf("delete site %d: %w", id, core.ErrNotFound)
	}
	delete(s.sites, id)
	return nil
}

func (s *Store) GetOrganization(_ context.Context, id int64) (*core.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, fmt.Errorf("organization %d: %w", id, core.ErrNotFound)
	}
	c := *org
	return &c, nil
}

func (s *Store) sandboxOrgs(match func(at time.Time) bool) []*core.Organization {
	var out []*core.Organization
	for _, org := range s.orgs {
		if !org.IsSandbox || org.SandboxNextCleaningAt == nil {
			continue
		}
		if !match(*org.SandboxNextCleaningAt) || len(s.sitesOf(org.ID)) == 0 {
			continue
		}
		c := *org
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) ListSandboxOrganizationsForNotice(_ context.Context, day time.Time) ([]*core.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, end := storage.DayBounds(day)
	return s.sandboxOrgs(func(at time.Time) bool {
		return !at.Before(start) && at.Before(end)
	}), nil
}

func (s *Store) ListSandboxOrganizationsDue(_ context.Context, asOf time.Time) ([]*core.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, end := storage.DayBounds(asOf)
	return s.sandboxOrgs(func(at time.Time) bool {
		return at.Before(end)
	}), nil
}

func (s *Store) UpdateSandboxNextCleaningAt(_ context.Context, organizationID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[organizationID]
	if !ok {
		return fmt.Errorf("reschedule organization %d: %w", organizationID, core.ErrNotFound)
	}
	if org.IsSandbox {
		org.SandboxNextCleaningAt = &at
	}
	return nil
}

func (s *Store) ListOrganizationManagers(_ context.Context, organizationID int64) ([]*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.User
	for userID, role := range s.roles[organizationID] {
		if role != core.RoleManager {
			continue
		}
		if u, ok := s.users[userID]; ok {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := core.NormalizeUsername(username)
	for _, u := range s.users {
		if u.Username == name {
			c := *u
			return &c, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
}

func (s *Store) CreateUser(_ context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Username = core.NormalizeUsername(user.Username)
	for _, u := range s.users {
		if u.Username == user.Username {
			return fmt.Errorf("create user %q: already exists", user.Username)
		}
	}
	user.ID = s.id()
	user.CreatedAt = time.Now().UTC()
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *Store) UpdateUserPushedAt(_ context.Context, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("update pushed_at of user %d: %w", userID, core.ErrNotFound)
	}
	u.PushedAt = &at
	return nil
}

func (s *Store) RecordEvent(_ context.Context, event *core.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *event
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, e)
	return nil
}

func (s *Store) FindOrCreateActiveBuild(_ context.Context, build *core.Build) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.builds {
		if existing.SiteID != build.SiteID || existing.Branch != build.Branch || !existing.State.IsActive() {
			continue
		}
		if build.RequestedCommitSHA != "" {
			existing.RequestedCommitSHA = build.RequestedCommitSHA
		}
		existing.UserID = build.UserID
		existing.Username = build.Username
		*build = *existing
		return false, nil
	}
	build.ID = s.id()
	build.State = core.BuildCreated
	build.CreatedAt = time.Now().UTC()
	c := *build
	s.builds[build.ID] = &c
	return true, nil
}

func (s *Store) GetBuild(_ context.Context, id int64) (*core.Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.builds[id]
	if !ok {
		return nil, fmt.Errorf("build %d: %w", id, core.ErrNotFound)
	}
	c := *b
	return &c, nil
}

func (s *Store) TransitionBuildState(_ context.Context, id int64, from, to core.BuildState, message string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.builds[id]
	if !ok {
		return false, fmt.Errorf("build %d: %w", id, core.ErrNotFound)
	}
	if b.State != from {
		return false, nil
	}
	b.State = to
	b.Error = message
	if to.IsTerminal() {
		now := time.Now().UTC()
		b.CompletedAt = &now
	}
	return true, nil
}

func (s *Store) GetBuildTask(_ context.Context, id int64) (*core.BuildTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("build task %d: %w", id, core.ErrNotFound)
	}
	c := *t
	if b, ok := s.builds[t.BuildID]; ok {
		c.SiteID = b.SiteID
	}
	if tt, ok := s.taskTypes[t.BuildTaskTypeID]; ok {
		c.TypeName = tt.Name
	}
	return &c, nil
}

func (s *Store) CountPendingBuildTasksForSite(_ context.Context, siteID, excludeTaskID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if t.ID == excludeTaskID || t.Status.IsTerminal() {
			continue
		}
		if b, ok := s.builds[t.BuildID]; ok && b.SiteID == siteID {
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkBuildTaskQueued(_ context.Context, id int64, priority int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false, fmt.Errorf("build task %d: %w", id, core.ErrNotFound)
	}
	if t.Status != core.TaskCreated {
		return false, nil
	}
	t.Status = core.TaskQueued
	t.Priority = &priority
	return true, nil
}

func (s *Store) ListBranchConfigsWithBranch(_ context.Context) ([]*core.SiteBranchConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.SiteBranchConfig
	for _, cfg := range s.branchConfigs {
		if cfg.Branch == nil || *cfg.Branch == "" {
			continue
		}
		site, ok := s.sites[cfg.SiteID]
		if !ok {
			continue
		}
		c := *cfg
		c.Site = s.withOrg(site)
		out = append(out, &c)
	}
	return out, nil
}
