package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloud-gov/pages-core-sub005/internal/core"
)

var ErrConfigParsing = errors.New("branch config parsing failed")

// ParseBranchConfig decodes a site branch configuration document. The
// document may be YAML or JSON; JSON is a subset of YAML so both decode the
// same way. An empty document yields the default config.
func ParseBranchConfig(raw string) (*core.BranchConfig, error) {
	config := core.DefaultBranchConfig()
	if strings.TrimSpace(raw) == "" {
		return config, nil
	}
	if err := yaml.Unmarshal([]byte(raw), config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}
	return config, nil
}

// IsNightly reports whether the branch config opts into nightly rebuilds.
func IsNightly(raw string) bool {
	config, err := ParseBranchConfig(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(config.Schedule), core.ScheduleNightly)
}
