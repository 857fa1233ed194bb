package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/cloud-gov/pages-core-sub005/internal/core"
)

// Store defines the interface for all database operations.
type Store interface {
	// FindSiteByRepository matches owner and repository case-insensitively.
	FindSiteByRepository(ctx context.Context, owner, repository string) (*core.Site, error)
	GetSite(ctx context.Context, id int64) (*core.Site, error)
	ListSitesByOrganization(ctx context.Context, organizationID int64) ([]*core.Site, error)
	DeleteSite(ctx context.Context, id int64) error

	GetOrganization(ctx context.Context, id int64) (*core.Organization, error)
	// ListSandboxOrganizationsForNotice returns sandbox organizations with at
	// least one site whose next cleaning falls on the given UTC day.
	ListSandboxOrganizationsForNotice(ctx context.Context, day time.Time) ([]*core.Organization, error)
	// ListSandboxOrganizationsDue returns sandbox organizations with at least
	// one site whose next cleaning falls on or before the UTC day of asOf.
	ListSandboxOrganizationsDue(ctx context.Context, asOf time.Time) ([]*core.Organization, error)
	UpdateSandboxNextCleaningAt(ctx context.Context, organizationID int64, at time.Time) error
	ListOrganizationManagers(ctx context.Context, organizationID int64) ([]*core.User, error)

	GetUserByUsername(ctx context.Context, username string) (*core.User, error)
	CreateUser(ctx context.Context, user *core.User) error
	UpdateUserPushedAt(ctx context.Context, userID int64, at time.Time) error
	RecordEvent(ctx context.Context, event *core.AuditEvent) error

	// FindOrCreateActiveBuild inserts build in state created unless the site
	// branch already has an active build, in which case that build's commit
	// and user are replaced. build is filled with the stored row either way.
	FindOrCreateActiveBuild(ctx context.Context, build *core.Build) (created bool, err error)
	GetBuild(ctx context.Context, id int64) (*core.Build, error)
	// TransitionBuildState moves the build from state from to state to. It
	// reports false, without error, when the build has already left from.
	TransitionBuildState(ctx context.Context, id int64, from, to core.BuildState, message string) (bool, error)

	// GetBuildTask returns the task joined with its build's site and its type name.
	GetBuildTask(ctx context.Context, id int64) (*core.BuildTask, error)
	// CountPendingBuildTasksForSite counts non-terminal tasks of the site,
	// not counting excludeTaskID.
	CountPendingBuildTasksForSite(ctx context.Context, siteID, excludeTaskID int64) (int, error)
	// MarkBuildTaskQueued records the priority and moves a created task to
	// queued. It reports false, without error, when a worker has already
	// advanced the task.
	MarkBuildTaskQueued(ctx context.Context, id int64, priority int) (bool, error)

	// ListBranchConfigsWithBranch returns branch configs that name a branch,
	// each with its Site loaded.
	ListBranchConfigsWithBranch(ctx context.Context) ([]*core.SiteBranchConfig, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// DayBounds returns the start of t's UTC day and the start of the next one.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := t.UTC().Truncate(24 * time.Hour)
	return start, start.AddDate(0, 0, 1)
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

const siteColumns = `
	s.id, s.owner, s.repository, s.organization_id, s.is_active, s.default_branch,
	s.demo_branch, s.bucket_name, s.service_name, s.created_at,
	o.is_active AS organization_active`

const siteFrom = `FROM site s LEFT JOIN organization o ON o.id = s.organization_id`

func (s *postgresStore) FindSiteByRepository(ctx context.Context, owner, repository string) (*core.Site, error) {
	query := `SELECT ` + siteColumns + ` ` + siteFrom + `
		WHERE LOWER(s.owner) = LOWER($1) AND LOWER(s.repository) = LOWER($2)`
	var site core.Site
	if err := s.db.GetContext(ctx, &site, query, owner, repository); err != nil {
		return nil, notFound(err, "site %s/%s", owner, repository)
	}
	return &site, nil
}

func (s *postgresStore) GetSite(ctx context.Context, id int64) (*core.Site, error) {
	query := `SELECT ` + siteColumns + ` ` + siteFrom + ` WHERE s.id = $1`
	var site core.Site
	if err := s.db.GetContext(ctx, &site, query, id); err != nil {
		return nil, notFound(err, "site %d", id)
	}
	return &site, nil
}

func (s *postgresStore) ListSitesByOrganization(ctx context.Context, organizationID int64) ([]*core.Site, error) {
	query := `SELECT ` + siteColumns + ` ` + siteFrom + ` WHERE s.organization_id = $1 ORDER BY s.id`
	var sites []*core.Site
	if err := s.db.SelectContext(ctx, &sites, query, organizationID); err != nil {
		return nil, fmt.Errorf("list sites of organization %d: %w", organizationID, err)
	}
	return sites, nil
}

func (s *postgresStore) DeleteSite(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM site WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete site %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete site %d: %w", id, core.ErrNotFound)
	}
	return nil
}

const orgColumns = `o.id, o.name, o.is_active, o.is_sandbox, o.sandbox_next_cleaning_at, o.created_at`

func (s *postgresStore) GetOrganization(ctx context.Context, id int64) (*core.Organization, error) {
	var org core.Organization
	err := s.db.GetContext(ctx, &org, `SELECT `+orgColumns+` FROM organization o WHERE o.id = $1`, id)
	if err != nil {
		return nil, notFound(err, "organization %d", id)
	}
	return &org, nil
}

func (s *postgresStore) ListSandboxOrganizationsForNotice(ctx context.Context, day time.Time) ([]*core.Organization, error) {
	start, end := DayBounds(day)
	query := `SELECT ` + orgColumns + ` FROM organization o
		WHERE o.is_sandbox
		  AND o.sandbox_next_cleaning_at >= $1 AND o.sandbox_next_cleaning_at < $2
		  AND EXISTS (SELECT 1 FROM site s WHERE s.organization_id = o.id)
		ORDER BY o.id`
	var orgs []*core.Organization
	if err := s.db.SelectContext(ctx, &orgs, query, start, end); err != nil {
		return nil, fmt.Errorf("list sandbox organizations for notice on %s: %w", start.Format(time.DateOnly), err)
	}
	return orgs, nil
}

func (s *postgresStore) ListSandboxOrganizationsDue(ctx context.Context, asOf time.Time) ([]*core.Organization, error) {
	_, end := DayBounds(asOf)
	query := `SELECT ` + orgColumns + ` FROM organization o
		WHERE o.is_sandbox
		  AND o.sandbox_next_cleaning_at < $1
		  AND EXISTS (SELECT 1 FROM site s WHERE s.organization_id = o.id)
		ORDER BY o.id`
	var orgs []*core.Organization
	if err := s.db.SelectContext(ctx, &orgs, query, end); err != nil {
		return nil, fmt.Errorf("list sandbox organizations due by %s: %w", asOf.Format(time.DateOnly), err)
	}
	return orgs, nil
}

func (s *postgresStore) UpdateSandboxNextCleaningAt(ctx context.Context, organizationID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE organization SET sandbox_next_cleaning_at = $2 WHERE id = $1 AND is_sandbox`,
		organizationID, at)
	if err != nil {
		return fmt.Errorf("reschedule organization %d: %w", organizationID, err)
	}
	return nil
}

const userColumns = `u.id, u.username, u.email, u.uaa_email, u.pushed_at, u.created_at`

func (s *postgresStore) ListOrganizationManagers(ctx context.Context, organizationID int64) ([]*core.User, error) {
	query := `SELECT ` + userColumns + ` FROM "user" u
		JOIN organization_role r ON r.user_id = u.id
		WHERE r.organization_id = $1 AND r.role = $2
		ORDER BY u.id`
	var users []*core.User
	if err := s.db.SelectContext(ctx, &users, query, organizationID, core.RoleManager); err != nil {
		return nil, fmt.Errorf("list managers of organization %d: %w", organizationID, err)
	}
	return users, nil
}

func (s *postgresStore) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	var user core.User
	err := s.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM "user" u WHERE u.username = $1`,
		core.NormalizeUsername(username))
	if err != nil {
		return nil, notFound(err, "user %q", username)
	}
	return &user, nil
}

func (s *postgresStore) CreateUser(ctx context.Context, user *core.User) error {
	user.Username = core.NormalizeUsername(user.Username)
	row := s.db.QueryRowxContext(ctx,
		`INSERT INTO "user" (username, email, uaa_email) VALUES ($1, $2, $3) RETURNING id, created_at`,
		user.Username, user.Email, user.UAAEmail)
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		return fmt.Errorf("create user %q: %w", user.Username, err)
	}
	return nil
}

func (s *postgresStore) UpdateUserPushedAt(ctx context.Context, userID int64, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE "user" SET pushed_at = $2 WHERE id = $1`, userID, at); err != nil {
		return fmt.Errorf("update pushed_at of user %d: %w", userID, err)
	}
	return nil
}

func (s *postgresStore) RecordEvent(ctx context.Context, event *core.AuditEvent) error {
	body, err := json.Marshal(event.Body)
	if err != nil {
		return fmt.Errorf("encode event body: %w", err)
	}
	var modelID sql.NullInt64
	if event.ModelID != 0 {
		modelID = sql.NullInt64{Int64: event.ModelID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO event (type, label, model, model_id, body) VALUES ($1, $2, $3, $4, $5)`,
		event.Type, event.Label, event.Model, modelID, body)
	if err != nil {
		return fmt.Errorf("record %s event: %w", event.Label, err)
	}
	return nil
}
