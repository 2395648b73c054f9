package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeUnitIDs trims unit ids and rewrites them in Unicode NFC, so ids that
// look the same name the same unit. Ids colliding after normalization are
// rejected.
func (c *Config) NormalizeUnitIDs() error {
	if len(c.Units) == 0 {
		return nil
	}

	normalized := make(map[string]UnitConfig, len(c.Units))
	for id, u := range c.Units {
		key := norm.NFC.String(strings.TrimSpace(id))
		if _, dup := normalized[key]; dup {
			return fmt.Errorf("%w: duplicate unit id %q", ErrInvalidUnit, key)
		}
		normalized[key] = u
	}
	c.Units = normalized
	return nil
}
