package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flanksource/pg-autotune/pkg/pgtune"
	"github.com/flanksource/pg-autotune/pkg/types"
)

// parseSizeFlag parses a --ram value such as "16GB" using the shared
// PostgreSQL-compatible Size type, converting straight to bytes for the
// engine's Request (which tracks memory as raw bytes internally).
func parseSizeFlag(s string) (uint64, error) {
	sz, err := types.ParseSize(s)
	if err != nil {
		return 0, err
	}
	return sz.Bytes(), nil
}

// parseKeywordOverrides turns repeated --set key=value flags into the raw
// overrides map MakeTuningKeywords expects, typing each value by the
// catalog's declared Unit for that key.
func parseKeywordOverrides(raw []string, cat *pgtune.Catalog) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", kv)
		}
		key, val := parts[0], parts[1]
		item, ok := cat.Lookup(key)
		if !ok {
			return nil, fmt.Errorf("--set %s: unknown tunable", key)
		}
		v, err := parseKeywordValue(item.Unit, val)
		if err != nil {
			return nil, fmt.Errorf("--set %s: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

// parseKeywordValue converts a raw --set value into the Go type the engine
// stores for the given unit, reusing the shared Size/Duration parsers so a
// caller can write "16GB" or "10min" the same way --ram accepts them.
func parseKeywordValue(unit pgtune.Unit, raw string) (any, error) {
	switch unit {
	case pgtune.UnitBytes:
		sz, err := types.ParseSize(raw)
		if err != nil {
			return nil, err
		}
		return sz.Bytes(), nil
	case pgtune.UnitSeconds:
		d, err := types.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		return uint64(d.Seconds()), nil
	case pgtune.UnitMilliseconds:
		d, err := types.ParseDuration(raw)
		if err != nil {
			return nil, err
		}
		return uint64(d.Milliseconds()), nil
	case pgtune.UnitBoolean:
		return strconv.ParseBool(raw)
	case pgtune.UnitFloat:
		return strconv.ParseFloat(raw, 64)
	case pgtune.UnitEnum:
		return raw, nil
	default: // UnitInteger
		return strconv.Atoi(raw)
	}
}
