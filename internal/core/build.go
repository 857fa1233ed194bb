package core

import "time"

// BuildState is the lifecycle state of a Build.
type BuildState string

// Build states. created and queued are the only active states; success,
// error, skipped and timeout are terminal.
const (
	BuildCreated    BuildState = "created"
	BuildQueued     BuildState = "queued"
	BuildTasked     BuildState = "tasked"
	BuildProcessing BuildState = "processing"
	BuildSuccess    BuildState = "success"
	BuildError      BuildState = "error"
	BuildSkipped    BuildState = "skipped"
	BuildTimeout    BuildState = "timeout"
)

// ActiveBuildStates lists the states considered for push deduplication.
var ActiveBuildStates = []BuildState{BuildCreated, BuildQueued}

// IsActive reports whether a build has not yet been picked up by a worker.
func (s BuildState) IsActive() bool {
	return s == BuildCreated || s == BuildQueued
}

// IsTerminal reports whether no further transition will occur.
func (s BuildState) IsTerminal() bool {
	switch s {
	case BuildSuccess, BuildError, BuildSkipped, BuildTimeout:
		return true
	default:
		return false
	}
}

// Build is one build attempt of one branch of one site.
type Build struct {
	ID                 int64      `db:"id"`
	SiteID             int64      `db:"site_id"`
	Branch             string     `db:"branch"`
	RequestedCommitSHA string     `db:"requested_commit_sha"`
	UserID             *int64     `db:"user_id"`
	Username           string     `db:"username"`
	State              BuildState `db:"state"`
	Token              string     `db:"token"`
	Error              string     `db:"error"`
	CreatedAt          time.Time  `db:"created_at"`
	StartedAt          *time.Time `db:"started_at"`
	CompletedAt        *time.Time `db:"completed_at"`
}

// BuildTaskStatus is the lifecycle status of a BuildTask.
type BuildTaskStatus string

// Build task statuses. success, error and cancelled are terminal.
const (
	TaskCreated    BuildTaskStatus = "created"
	TaskQueued     BuildTaskStatus = "queued"
	TaskProcessing BuildTaskStatus = "processing"
	TaskSuccess    BuildTaskStatus = "success"
	TaskError      BuildTaskStatus = "error"
	TaskCancelled  BuildTaskStatus = "cancelled"
)

// TerminalTaskStatuses are excluded from fairness priority counts.
var TerminalTaskStatuses = []BuildTaskStatus{TaskSuccess, TaskError, TaskCancelled}

// IsTerminal reports whether the task has finished.
func (s BuildTaskStatus) IsTerminal() bool {
	switch s {
	case TaskSuccess, TaskError, TaskCancelled:
		return true
	default:
		return false
	}
}

// BuildTaskType describes a class of post-build task such as a scan.
type BuildTaskType struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Runner      string `db:"runner"`
	StartsWhen  string `db:"starts_when"`
}

// BuildTask is one run of a BuildTaskType against a Build.
type BuildTask struct {
	ID              int64           `db:"id"`
	BuildID         int64           `db:"build_id"`
	BuildTaskTypeID int64           `db:"build_task_type_id"`
	Status          BuildTaskStatus `db:"status"`
	// Priority is assigned once when the task is queued.
	Priority  *int      `db:"priority"`
	Artifact  string    `db:"artifact"`
	Count     int       `db:"count"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`

	// Joined from the build and the task type.
	SiteID   int64  `db:"site_id"`
	TypeName string `db:"type_name"`
}
