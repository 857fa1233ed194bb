package storage

import (
	"context"
	"fmt"

	"github.com/cloud-gov/pages-core-sub005/internal/core"
)

// The conflict target matches the partial unique index on active builds, so
// the insert and the dedup check are one statement.
const findOrCreateActiveBuildQuery = `
	INSERT INTO build (site_id, branch, requested_commit_sha, user_id, username, state, token)
	VALUES ($1, $2, $3, $4, $5, 'created', $6)
	ON CONFLICT (site_id, branch) WHERE state IN ('created', 'queued')
	DO UPDATE SET
		requested_commit_sha = COALESCE(NULLIF(EXCLUDED.requested_commit_sha, ''), build.requested_commit_sha),
		user_id = EXCLUDED.user_id,
		username = EXCLUDED.username
	RETURNING id, requested_commit_sha, state, token, created_at, (xmax = 0) AS inserted`

func (s *postgresStore) FindOrCreateActiveBuild(ctx context.Context, build *core.Build) (bool, error) {
	var created bool
	row := s.db.QueryRowxContext(ctx, findOrCreateActiveBuildQuery,
		build.SiteID, build.Branch, build.RequestedCommitSHA, build.UserID, build.Username, build.Token)
	err := row.Scan(&build.ID, &build.RequestedCommitSHA, &build.State, &build.Token, &build.CreatedAt, &created)
	if err != nil {
		return false, fmt.Errorf("find or create build for site %d branch %q: %w", build.SiteID, build.Branch, err)
	}
	return created, nil
}

const buildColumns = `id, site_id, branch, requested_commit_sha, user_id, username, state, token,
	error, created_at, started_at, completed_at`

func (s *postgresStore) GetBuild(ctx context.Context, id int64) (*core.Build, error) {
	var build core.Build
	if err := s.db.GetContext(ctx, &build, `SELECT `+buildColumns+` FROM build WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "build %d", id)
	}
	return &build, nil
}

func (s *postgresStore) TransitionBuildState(ctx context.Context, id int64, from, to core.BuildState, message string) (bool, error) {
	query := `UPDATE build SET state = $3, error = $4,
		completed_at = CASE WHEN $5 THEN NOW() ELSE completed_at END
		WHERE id = $1 AND state = $2`
	res, err := s.db.ExecContext(ctx, query, id, from, to, message, to.IsTerminal())
	if err != nil {
		return false, fmt.Errorf("move build %d from %s to %s: %w", id, from, to, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	return false, s.mustExist(ctx, "build", id)
}

// mustExist distinguishes a conditional update that matched nothing because
// the row moved on from one whose row is missing.
func (s *postgresStore) mustExist(ctx context.Context, table string, id int64) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("look up %s %d: %w", table, id, err)
	}
	if !exists {
		return fmt.Errorf("%s %d: %w", table, id, core.ErrNotFound)
	}
	return nil
}

func (s *postgresStore) GetBuildTask(ctx context.Context, id int64) (*core.BuildTask, error) {
	query := `SELECT t.id, t.build_id, t.build_task_type_id, t.status, t.priority, t.artifact,
			t.count, t.message, t.created_at, b.site_id, tt.name AS type_name
		FROM build_task t
		JOIN build b ON b.id = t.build_id
		JOIN build_task_type tt ON tt.id = t.build_task_type_id
		WHERE t.id = $1`
	var task core.BuildTask
	if err := s.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, notFound(err, "build task %d", id)
	}
	return &task, nil
}

func (s *postgresStore) CountPendingBuildTasksForSite(ctx context.Context, siteID, excludeTaskID int64) (int, error) {
	query := `SELECT COUNT(*) FROM build_task t
		JOIN build b ON b.id = t.build_id
		WHERE b.site_id = $1 AND t.id <> $2
		  AND t.status NOT IN ($3, $4, $5)`
	var n int
	err := s.db.GetContext(ctx, &n, query, siteID, excludeTaskID,
		core.TaskSuccess, core.TaskError, core.TaskCancelled)
	if err != nil {
		return 0, fmt.Errorf("count pending build tasks for site %d: %w", siteID, err)
	}
	return n, nil
}

func (s *postgresStore) MarkBuildTaskQueued(ctx context.Context, id int64, priority int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE build_task SET status = $2, priority = $3 WHERE id = $1 AND status = $4`,
		id, core.TaskQueued, priority, core.TaskCreated)
	if err != nil {
		return false, fmt.Errorf("queue build task %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	return false, s.mustExist(ctx, "build_task", id)
}

type branchConfigRow struct {
	core.SiteBranchConfig
	Site core.Site `db:"site"`
}

func (s *postgresStore) ListBranchConfigsWithBranch(ctx context.Context) ([]*core.SiteBranchConfig, error) {
	query := `SELECT c.id, c.site_id, c.branch, c.s3_key, c.config,
			s.id AS "site.id", s.owner AS "site.owner", s.repository AS "site.repository",
			s.organization_id AS "site.organization_id", s.is_active AS "site.is_active",
			s.default_branch AS "site.default_branch", s.demo_branch AS "site.demo_branch",
			s.bucket_name AS "site.bucket_name", s.service_name AS "site.service_name",
			s.created_at AS "site.created_at", o.is_active AS "site.organization_active"
		FROM site_branch_config c
		JOIN site s ON s.id = c.site_id
		LEFT JOIN organization o ON o.id = s.organization_id
		WHERE c.branch IS NOT NULL AND c.branch <> ''
		ORDER BY c.id`
	var rows []branchConfigRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list branch configs: %w", err)
	}
	configs := make([]*core.SiteBranchConfig, 0, len(rows))
	for i := range rows {
		cfg := rows[i].SiteBranchConfig
		site := rows[i].Site
		cfg.Site = &site
		configs = append(configs, &cfg)
	}
	return configs, nil
}
