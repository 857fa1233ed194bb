package core

// ScheduleNightly marks a branch for a rebuild every night.
const ScheduleNightly = "nightly"

// BranchConfig is the user-authored configuration document attached to a
// site branch.
type BranchConfig struct {
	// Schedule opts the branch into periodic rebuilding, e.g. "nightly".
	Schedule string `yaml:"schedule"`

	// Headers are served with every response for the branch. They are
	// carried for the build worker and not interpreted here.
	Headers []map[string]string `yaml:"headers"`
}

// DefaultBranchConfig returns a config with default values.
func DefaultBranchConfig() *BranchConfig {
	return &BranchConfig{
		Headers: []map[string]string{},
	}
}

// SiteBranchConfig is the per-branch configuration record of a site.
type SiteBranchConfig struct {
	ID     int64   `db:"id"`
	SiteID int64   `db:"site_id"`
	Branch *string `db:"branch"`
	S3Key  string  `db:"s3_key"`
	// Config is the raw YAML or JSON document.
	Config string `db:"config"`

	Site *Site `db:"-"`
}
