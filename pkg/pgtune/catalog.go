package pgtune

import (
	"fmt"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Unit names how an Item's value should be displayed by the renderer.
type Unit int

const (
	UnitInteger Unit = iota
	UnitFloat
	UnitBoolean
	UnitBytes
	UnitSeconds
	UnitMilliseconds
	UnitEnum
)

// FormulaFunc is the signature shared by initial-tuning and trigger
// formulas: a pure function of the request and the in-progress response
// (which exposes the managed cache for cross-rule reads).
type FormulaFunc func(req *Request, resp *Response) (any, error)

// Item is one catalog entry. Exactly one of Default or TierDefaults must
// resolve to a non-nil value; TuneOp and Trigger are both optional.
type Item struct {
	Key          string
	Scope        Scope
	HWScope      HardwareScope
	Default      any
	TierDefaults map[Tier]any
	TuneOp       FormulaFunc
	Trigger      FormulaFunc
	Unit         Unit
	Comment      string
	PartitionKey string
}

// resolveStaticValue picks the item's value for the given tier, following
// the general tuner's rule order: TuneOp first (handled by the caller),
// else per-tier default, else static default.
func (it *Item) resolveStaticValue(tier Tier) (any, bool) {
	if it.TierDefaults != nil {
		if v, ok := it.TierDefaults[tier]; ok {
			return v, true
		}
	}
	if it.Default != nil {
		return it.Default, true
	}
	return nil, false
}

// clone makes a shallow copy so overlays never mutate the base catalog's items.
func (it *Item) clone() *Item {
	c := *it
	if it.TierDefaults != nil {
		c.TierDefaults = make(map[Tier]any, len(it.TierDefaults))
		for k, v := range it.TierDefaults {
			c.TierDefaults[k] = v
		}
	}
	return &c
}

// Catalog is the resolved, immutable, process-wide rule table for one
// PostgreSQL major version.
type Catalog struct {
	version int
	items   map[string]*Item
	order   []string
}

// Lookup returns the item for key.
func (c *Catalog) Lookup(key string) (*Item, bool) {
	it, ok := c.items[key]
	return it, ok
}

// OrderedKeys returns every catalog key in stable declaration order, used
// by the renderer to keep group ordering deterministic.
func (c *Catalog) OrderedKeys() []string {
	return c.order
}

// rawEntry is how catalog source files declare a rule, before composite
// keys ("a & b & c") are split into one Item per synonym.
type rawEntry struct {
	key string // may be a "&"-joined composite
	Item
}

// overlayAction is the deep-merge verb applied when layering a
// version-specific overlay onto the base catalog.
type overlayAction int

const (
	actionOverride overlayAction = iota
	actionDelete
)

type overlayEntry struct {
	action overlayAction
	item   rawEntry
}

// overlay is a version-specific delta over the base catalog. version is
// the lowest PostgreSQL major version the delta applies to; resolving a
// requested version applies every overlay at or below it.
type overlay struct {
	version int
	entries []overlayEntry
}

var (
	catalogMu    sync.Mutex
	catalogCache = map[int]*Catalog{}
)

// ResolveCatalog builds (or returns the cached) catalog for version,
// applying every overlay with version <= the requested one in ascending
// order, then validating that each entry can resolve a value.
func ResolveCatalog(version int) (*Catalog, error) {
	catalogMu.Lock()
	defer catalogMu.Unlock()

	if c, ok := catalogCache[version]; ok {
		return c, nil
	}

	merged := map[string]*rawEntry{}
	order := []string{}

	apply := func(entries []rawEntry) []string {
		var warnings []string
		for _, e := range entries {
			for _, key := range splitCompositeKey(e.key) {
				if _, exists := merged[key]; !exists {
					order = append(order, key)
				}
				item := e.Item
				item.Key = key
				item.PartitionKey = e.key
				re := rawEntry{key: key, Item: item}
				merged[key] = &re
			}
		}
		return warnings
	}
	apply(baseCatalogEntries())

	for _, ov := range overlaysUpTo(version) {
		for _, oe := range ov.entries {
			for _, key := range splitCompositeKey(oe.item.key) {
				switch oe.action {
				case actionDelete:
					if _, exists := merged[key]; !exists {
						logWarnf("catalog: overlay for version %d deletes absent key %q", ov.version, key)
						continue
					}
					delete(merged, key)
					order = removeFromOrder(order, key)
				case actionOverride:
					if _, exists := merged[key]; !exists {
						order = append(order, key)
					}
					item := oe.item.Item
					item.Key = key
					item.PartitionKey = oe.item.key
					re := rawEntry{key: key, Item: item}
					merged[key] = &re
				}
			}
		}
	}

	items := make(map[string]*Item, len(merged))
	for k, re := range merged {
		it := re.Item.clone()
		it.Key = k
		if it.Default == nil && len(it.TierDefaults) == 0 && it.TuneOp == nil {
			return nil, &CatalogEvalError{Key: k, Cause: fmt.Errorf("no resolvable default and no tune_op")}
		}
		items[k] = it
	}

	cat := &Catalog{version: version, items: items, order: order}
	catalogCache[version] = cat
	return cat, nil
}

func removeFromOrder(order []string, key string) []string {
	return lo.Filter(order, func(k string, _ int) bool { return k != key })
}

func splitCompositeKey(composite string) []string {
	parts := strings.Split(composite, "&")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
