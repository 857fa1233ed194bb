package builds

import (
	"context"
	"errors"
	"strings"

	"github.com/cloud-gov/pages-core-sub005/internal/core"
)

// IngestOrganizationMembership shadows members of the federalist users
// organization as local users and audits every change. Users linked to the
// identity provider are managed there and ignored here.
func (s *Service) IngestOrganizationMembership(ctx context.Context, ev *core.MembershipEvent) error {
	if err := core.Validate(ev); err != nil {
		return err
	}
	if !strings.EqualFold(ev.Organization, s.cfg.FederalistUsersOrg) {
		return nil
	}
	if ev.Action != core.MemberAdded && ev.Action != core.MemberRemoved {
		return nil
	}

	username := core.NormalizeUsername(ev.Username)
	user, err := s.store.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, core.ErrNotFound):
		user = nil
	case err != nil:
		return err
	}
	if user != nil && user.HasVerifiedIdentity() {
		s.logger.Debug("ignoring membership change for verified user", "username", username)
		return nil
	}

	if ev.Action == core.MemberAdded && user == nil {
		user = &core.User{Username: username}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return err
		}
		s.logger.Info("created user from organization membership", "user_id", user.ID, "username", username)
	}

	event := &core.AuditEvent{
		Type:  core.EventTypeAudit,
		Label: core.EventLabelFederalistUsers,
		Model: "User",
		Body: map[string]any{
			"action":       ev.Action,
			"organization": ev.Organization,
			"username":     username,
		},
		CreatedAt: s.now(),
	}
	if user != nil {
		event.ModelID = user.ID
	}
	return s.store.RecordEvent(ctx, event)
}
