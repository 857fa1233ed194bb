// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-github/v73/github"
)

const branchRefPrefix = "refs/heads/"

// Organization membership actions.
const (
	MemberAdded   = "member_added"
	MemberRemoved = "member_removed"
)

// PushEvent is the internal view of a code-host push.
type PushEvent struct {
	RepoOwner string `validate:"required"`
	RepoName  string `validate:"required"`
	Ref       string `validate:"required"`
	// HeadSHA is empty only for branch deletions.
	HeadSHA  string `validate:"required_if=Deleted false"`
	Pusher   string `validate:"required"`
	PushedAt time.Time
	Deleted  bool
}

// Branch returns the pushed branch name, or "" when the ref is not a branch.
func (e *PushEvent) Branch() string {
	if !strings.HasPrefix(e.Ref, branchRefPrefix) {
		return ""
	}
	return strings.TrimPrefix(e.Ref, branchRefPrefix)
}

// MembershipEvent is the internal view of an organization membership change.
type MembershipEvent struct {
	Action       string `validate:"required"`
	Organization string `validate:"required"`
	Username     string `validate:"required"`
}

var validate = validator.New()

// Validate checks required fields and reports the missing ones.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Reason: err.Error()}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Fields: fields, Reason: "missing required fields"}
}

// EventFromPush transforms a raw GitHub PushEvent into the application's
// internal PushEvent. The returned event has passed validation.
func EventFromPush(event *github.PushEvent) (*PushEvent, error) {
	owner, name, _ := strings.Cut(event.GetRepo().GetFullName(), "/")
	if owner == "" {
		owner = event.GetRepo().GetOwner().GetLogin()
		name = event.GetRepo().GetName()
	}

	pusher := event.GetSender().GetLogin()
	if pusher == "" {
		pusher = event.GetPusher().GetName()
	}

	headSHA := event.GetHeadCommit().GetID()
	if headSHA == "" && !event.GetDeleted() {
		headSHA = event.GetAfter()
	}

	pushedAt := event.GetHeadCommit().GetTimestamp().Time
	if pushedAt.IsZero() {
		pushedAt = time.Now().UTC()
	}

	e := &PushEvent{
		RepoOwner: owner,
		RepoName:  name,
		Ref:       event.GetRef(),
		HeadSHA:   headSHA,
		Pusher:    pusher,
		PushedAt:  pushedAt,
		Deleted:   event.GetDeleted(),
	}
	if err := Validate(e); err != nil {
		return nil, err
	}
	return e, nil
}

// EventFromOrganization transforms a raw GitHub OrganizationEvent into a
// MembershipEvent. Non-membership actions are returned as-is for the caller
// to ignore.
func EventFromOrganization(event *github.OrganizationEvent) (*MembershipEvent, error) {
	e := &MembershipEvent{
		Action:       event.GetAction(),
		Organization: event.GetOrganization().GetLogin(),
		Username:     event.GetMembership().GetUser().GetLogin(),
	}
	if err := Validate(e); err != nil {
		return nil, err
	}
	return e, nil
}
