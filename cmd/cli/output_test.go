package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/pages-core-sub005/internal/batch"
)

func TestReportJob(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	summary := batch.Summary{Name: "sandbox-clean", Succeeded: 2, Failed: 1, Reasons: []string{"organization 3 (demo): locked"}}
	jobErr := summary.Err()

	err := reportJob(&buf, summary, jobErr)

	require.ErrorIs(t, err, jobErr)
	out := buf.String()
	assert.Contains(t, out, "sandbox-clean")
	assert.Contains(t, out, "2 succeeded")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "- organization 3 (demo): locked")
}

func TestReportJob_StartFailure(t *testing.T) {
	var buf bytes.Buffer
	err := reportJob(&buf, batch.Summary{}, errors.New("store down"))
	assert.EqualError(t, err, "store down")
	assert.Empty(t, buf.String())
}

func TestParseID(t *testing.T) {
	id, err := parseID("site", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-1", "abc"} {
		_, err := parseID("site", raw)
		assert.Error(t, err, raw)
	}
}
