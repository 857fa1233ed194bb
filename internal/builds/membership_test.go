package builds_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/pages-core-sub005/internal/core"
)

func TestIngestOrganizationMembership(t *testing.T) {
	tests := []struct {
		name       string
		seed       *core.User
		event      core.MembershipEvent
		wantUser   bool
		wantEvents int
	}{
		{
			name:       "member added creates shadow user",
			event:      core.MembershipEvent{Action: core.MemberAdded, Organization: "federalist-users", Username: "NewUser"},
			wantUser:   true,
			wantEvents: 1,
		},
		{
			name:       "member added for existing user only audits",
			seed:       &core.User{Username: "newuser"},
			event:      core.MembershipEvent{Action: core.MemberAdded, Organization: "federalist-users", Username: "newuser"},
			wantUser:   true,
			wantEvents: 1,
		},
		{
			name:       "member removed audits",
			seed:       &core.User{Username: "newuser"},
			event:      core.MembershipEvent{Action: core.MemberRemoved, Organization: "Federalist-Users", Username: "newuser"},
			wantUser:   true,
			wantEvents: 1,
		},
		{
			name:  "verified identity is ignored",
			seed:  &core.User{Username: "newuser", UAAEmail: "newuser@agency.gov"},
			event: core.MembershipEvent{Action: core.MemberRemoved, Organization: "federalist-users", Username: "newuser"},
			// the seeded user still exists
			wantUser: true,
		},
		{
			name:  "other organization is ignored",
			event: core.MembershipEvent{Action: core.MemberAdded, Organization: "someone-else", Username: "newuser"},
		},
		{
			name:  "other action is ignored",
			event: core.MembershipEvent{Action: "member_invited", Organization: "federalist-users", Username: "newuser"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.seed != nil {
				f.store.AddUser(tt.seed)
			}

			require.NoError(t, f.svc.IngestOrganizationMembership(context.Background(), &tt.event))

			_, err := f.store.GetUserByUsername(context.Background(), "newuser")
			if tt.wantUser {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, core.ErrNotFound)
			}

			events := f.store.Events()
			require.Len(t, events, tt.wantEvents)
			for _, e := range events {
				assert.Equal(t, core.EventTypeAudit, e.Type)
				assert.Equal(t, core.EventLabelFederalistUsers, e.Label)
				assert.Equal(t, "newuser", e.Body["username"])
			}
		})
	}
}
