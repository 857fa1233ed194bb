package gitutil

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchHead(t *testing.T) {
	mainHash := plumbing.NewHash("1111111111111111111111111111111111111111")
	demoHash := plumbing.NewHash("2222222222222222222222222222222222222222")
	refs := []*plumbing.Reference{
		plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main")),
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), mainHash),
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("demo"), demoHash),
		plumbing.NewHashReference(plumbing.NewTagReferenceName("v1"), mainHash),
	}

	sha, err := branchHead(refs, "demo")
	require.NoError(t, err)
	assert.Equal(t, demoHash.String(), sha)

	_, err = branchHead(refs, "v1")
	assert.ErrorIs(t, err, ErrBranchNotFound, "tags are not branches")
}
