package pgtune

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/flanksource/pg-autotune/pkg/utils"
)

// scopeDisclaimers are the header comments printed above each scope group.
var scopeDisclaimers = map[Scope]string{
	ScopeConnection:  "Connection budget",
	ScopeMemory:      "Memory budget",
	ScopeFilesystem:  "WAL and checkpoint behavior",
	ScopeMaintenance: "Vacuum, autovacuum, and maintenance workers",
	ScopeVM:          "Worker process and parallelism limits",
	ScopeDiskIOPS:    "Background writer and I/O pacing",
	ScopeQueryTuning: "Query planner tuning",
	ScopeLogging:     "Logging",
	ScopeBackup:      "Replication and backup",
	ScopeNetwork:     "Network",
	ScopeExtra:       "Extra",
	ScopeOthers:      "Other parameters",
}

// scopeRenderOrder fixes the section order in rendered output; scopes not
// listed here render after all listed ones, so output stays deterministic
// even as the catalog grows.
var scopeRenderOrder = []Scope{
	ScopeConnection, ScopeMemory, ScopeFilesystem, ScopeMaintenance,
	ScopeVM, ScopeDiskIOPS, ScopeQueryTuning, ScopeLogging, ScopeBackup,
	ScopeNetwork, ScopeExtra, ScopeOthers,
}

// Render produces postgresql.conf-style text: a header, then one section
// per scope group, each item rendered as `key = display_value<TAB># comment`.
func Render(resp *Response, cat *Catalog, w io.Writer) error {
	bw := &bytes.Buffer{}
	fmt.Fprintf(bw, "# Generated PostgreSQL configuration\n")
	fmt.Fprintf(bw, "# postgresql major version: %d\n\n", resp.Version)

	seen := map[Scope]bool{}
	order := append([]Scope{}, scopeRenderOrder...)
	for _, s := range resp.Scopes() {
		found := false
		for _, o := range order {
			if o == s {
				found = true
				break
			}
		}
		if !found {
			order = append(order, s)
		}
	}

	for _, scope := range order {
		if seen[scope] {
			continue
		}
		seen[scope] = true
		items := resp.ItemsInScope(scope)
		if len(items) == 0 {
			continue
		}

		if disclaimer, ok := scopeDisclaimers[scope]; ok {
			fmt.Fprintf(bw, "# %s\n", disclaimer)
		} else {
			fmt.Fprintf(bw, "# %s\n", scope)
		}

		for _, key := range orderedKeysInScope(cat, scope, items) {
			st := items[key]
			display, err := displayValue(st.Unit, st.After)
			if err != nil {
				return &RenderError{Key: key, Cause: err}
			}
			if st.Comment != "" {
				fmt.Fprintf(bw, "%s = %s\t# %s\n", key, display, st.Comment)
			} else {
				fmt.Fprintf(bw, "%s = %s\n", key, display)
			}
		}
		fmt.Fprintln(bw)
	}

	_, err := w.Write(bw.Bytes())
	return err
}

// RenderString is a convenience wrapper returning Render's output as a string.
func RenderString(resp *Response, cat *Catalog) (string, error) {
	var buf bytes.Buffer
	if err := Render(resp, cat, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// orderedKeysInScope returns items's keys in the catalog's declaration
// order, appending any key the catalog doesn't know at the end (should
// not happen for a well-formed Response).
func orderedKeysInScope(cat *Catalog, scope Scope, items map[string]*ItemState) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(items))
	for _, key := range cat.OrderedKeys() {
		if st, ok := items[key]; ok && st.Scope == scope {
			out = append(out, key)
			seen[key] = true
		}
	}
	for key := range items {
		if !seen[key] {
			out = append(out, key)
		}
	}
	return out
}

// displayValue renders a value according to its declared unit, through the
// shared PostgreSQL-unit formatting helpers (pkg/utils/units.go).
func displayValue(unit Unit, value any) (string, error) {
	switch unit {
	case UnitBytes:
		v, ok := asUint64(value)
		if !ok {
			return "", fmt.Errorf("expected byte-size value, got %T", value)
		}
		return utils.FormatSizePostgreSQL(v), nil
	case UnitSeconds:
		v, ok := asUint64(value)
		if !ok {
			return "", fmt.Errorf("expected seconds value, got %T", value)
		}
		return utils.FormatDurationPostgreSQL(time.Duration(v) * time.Second), nil
	case UnitMilliseconds:
		v, ok := asUint64(value)
		if !ok {
			return "", fmt.Errorf("expected milliseconds value, got %T", value)
		}
		return utils.FormatDurationPostgreSQL(time.Duration(v) * time.Millisecond), nil
	case UnitBoolean:
		v, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("expected boolean value, got %T", value)
		}
		return utils.FormatBoolean(v), nil
	case UnitFloat:
		switch v := value.(type) {
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		case int:
			return strconv.Itoa(v), nil
		default:
			return "", fmt.Errorf("expected float value, got %T", value)
		}
	case UnitEnum:
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("expected string enum value, got %T", value)
		}
		return "'" + s + "'", nil
	default: // UnitInteger
		switch v := value.(type) {
		case int:
			return strconv.Itoa(v), nil
		case uint64:
			return strconv.FormatUint(v, 10), nil
		default:
			return "", fmt.Errorf("expected integer value, got %T", value)
		}
	}
}

func asUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int:
		return uint64(n), true
	default:
		return 0, false
	}
}
