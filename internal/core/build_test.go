package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildState(t *testing.T) {
	tests := []struct {
		state    BuildState
		active   bool
		terminal bool
	}{
		{BuildCreated, true, false},
		{BuildQueued, true, false},
		{BuildTasked, false, false},
		{BuildProcessing, false, false},
		{BuildSuccess, false, true},
		{BuildError, false, true},
		{BuildSkipped, false, true},
		{BuildTimeout, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.active, tt.state.IsActive())
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
		})
	}
	for _, s := range ActiveBuildStates {
		assert.True(t, s.IsActive())
	}
}

func TestBuildTaskStatus(t *testing.T) {
	for _, s := range []BuildTaskStatus{TaskCreated, TaskQueued, TaskProcessing} {
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range TerminalTaskStatuses {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestSite_CanBuild(t *testing.T) {
	active, inactive := true, false
	tests := []struct {
		name string
		site Site
		want bool
	}{
		{"active without organization", Site{IsActive: true}, true},
		{"active in active organization", Site{IsActive: true, OrganizationActive: &active}, true},
		{"active in inactive organization", Site{IsActive: true, OrganizationActive: &inactive}, false},
		{"inactive", Site{OrganizationActive: &active}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.site.CanBuild())
		})
	}
}

func TestUser(t *testing.T) {
	assert.Equal(t, "octocat", NormalizeUsername("  OctoCat "))
	assert.False(t, (&User{}).HasVerifiedIdentity())
	assert.False(t, (&User{UAAEmail: "  "}).HasVerifiedIdentity())
	assert.True(t, (&User{UAAEmail: "a@example.gov"}).HasVerifiedIdentity())
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Fields: []string{"Pusher"}, Reason: "missing required fields"}
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "validation failed: missing required fields [Pusher]", err.Error())
	assert.Equal(t, "validation failed: bad", (&ValidationError{Reason: "bad"}).Error())
}
