package core

import (
	"strings"
	"time"
)

// Organization role names.
const (
	RoleManager = "manager"
	RoleUser    = "user"
)

// Site binds a tenant-owned repository to the hosting platform.
type Site struct {
	ID             int64  `db:"id"`
	Owner          string `db:"owner"`
	Repository     string `db:"repository"`
	OrganizationID *int64 `db:"organization_id"`
	IsActive       bool   `db:"is_active"`
	DefaultBranch  string `db:"default_branch"`
	DemoBranch     string `db:"demo_branch"`
	// BucketName is the site's dedicated storage bucket. Empty means the
	// shared bucket from configuration.
	BucketName string `db:"bucket_name"`
	// ServiceName names the provisioned platform service instance backing
	// the site, if any.
	ServiceName string `db:"service_name"`

	// OrganizationActive is joined from the owning organization and is nil
	// when the site has no organization.
	OrganizationActive *bool     `db:"organization_active"`
	CreatedAt          time.Time `db:"created_at"`
}

// FullName returns "owner/repository".
func (s *Site) FullName() string {
	return s.Owner + "/" + s.Repository
}

// CanBuild reports whether pushes to this site should produce builds.
func (s *Site) CanBuild() bool {
	if !s.IsActive {
		return false
	}
	return s.OrganizationActive == nil || *s.OrganizationActive
}

// Organization is the billing and ownership boundary for sites and users.
type Organization struct {
	ID                    int64      `db:"id"`
	Name                  string     `db:"name"`
	IsActive              bool       `db:"is_active"`
	IsSandbox             bool       `db:"is_sandbox"`
	SandboxNextCleaningAt *time.Time `db:"sandbox_next_cleaning_at"`
	CreatedAt             time.Time  `db:"created_at"`
}

// User is a platform account, shadowed from the code host when needed.
type User struct {
	ID       int64  `db:"id"`
	Username string `db:"username"`
	Email    string `db:"email"`
	// UAAEmail is the verified external identity. Users that have one are
	// managed by the identity provider, not by GitHub organization events.
	UAAEmail  string     `db:"uaa_email"`
	PushedAt  *time.Time `db:"pushed_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// HasVerifiedIdentity reports whether the user is linked to the identity provider.
func (u *User) HasVerifiedIdentity() bool {
	return strings.TrimSpace(u.UAAEmail) != ""
}

// NormalizeUsername lowercases and trims a code-host login.
func NormalizeUsername(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// AuditEvent records an administrative side effect for later review.
type AuditEvent struct {
	Type      string
	Label     string
	Model     string
	ModelID   int64
	Body      map[string]any
	CreatedAt time.Time
}

// Audit event types and labels.
const (
	EventTypeAudit = "audit"
	EventTypeError = "error"

	EventLabelFederalistUsers = "federalist-users membership"
	EventLabelSiteTeardown    = "site teardown"
)
