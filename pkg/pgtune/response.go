package pgtune

import "fmt"

// ItemState is the per-key record inside a Response: the tunable's before/
// after history plus enough metadata to render it.
type ItemState struct {
	Key     string
	Scope   Scope
	Before  any
	After   any
	Trigger FormulaFunc
	Unit    Unit
	Comment string
}

// Response is the mutable two-level structure produced by the general
// tuner and mutated in place by the correction tuner. `groups` is the
// source of truth; `cache` is a flat key → value projection kept in sync
// on every mutation so formulas get O(1) cross-rule reads.
type Response struct {
	Version int
	groups  map[Scope]map[string]*ItemState
	cache   map[string]any
	log     *logPool
}

// NewResponse creates an empty Response for version, ready for the general
// tuner to populate.
func NewResponse(version int) *Response {
	return &Response{
		Version: version,
		groups:  map[Scope]map[string]*ItemState{},
		cache:   map[string]any{},
		log:     &logPool{},
	}
}

// seed is called only by the general tuner: it establishes before == after
// for a freshly computed initial value.
func (r *Response) seed(key string, scope Scope, value any, trigger FormulaFunc, unit Unit, comment string) {
	if _, ok := r.groups[scope]; !ok {
		r.groups[scope] = map[string]*ItemState{}
	}
	r.groups[scope][key] = &ItemState{
		Key: key, Scope: scope, Before: value, After: value,
		Trigger: trigger, Unit: unit, Comment: comment,
	}
	r.cache[key] = value
}

// findState locates an item's state across every scope group; keys are
// unique across the whole Response.
func (r *Response) findState(key string) (*ItemState, bool) {
	for _, group := range r.groups {
		if st, ok := group[key]; ok {
			return st, true
		}
	}
	return nil, false
}

// ItemTuning is the single mutator every correction phase goes through:
// it updates the item's after value and the flat cache together, refusing
// unknown keys.
func (r *Response) ItemTuning(key string, value any) error {
	st, ok := r.findState(key)
	if !ok {
		return &UnknownTunableError{Key: key}
	}
	st.After = value
	r.cache[key] = value
	return nil
}

// Get reads a tunable's current value from the managed cache.
func (r *Response) Get(key string) (any, bool) {
	v, ok := r.cache[key]
	return v, ok
}

// GetUint64 reads a byte-size/integer tunable; missing or wrong-typed keys
// return 0.
func (r *Response) GetUint64(key string) uint64 {
	v, ok := r.cache[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case uint64:
		return n
	case int:
		return uint64(n)
	case int64:
		return uint64(n)
	case float64:
		return uint64(n)
	default:
		return 0
	}
}

// GetFloat reads a floating-point tunable.
func (r *Response) GetFloat(key string) float64 {
	v, ok := r.cache[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case uint64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

// GetInt reads an integer-valued tunable.
func (r *Response) GetInt(key string) int {
	v, ok := r.cache[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// GetBool reads a boolean-valued tunable.
func (r *Response) GetBool(key string) bool {
	v, ok := r.cache[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Warnf buffers a non-fatal warning for end-of-correction flush.
func (r *Response) Warnf(format string, args ...any) {
	r.log.add(format, args...)
}

// FlushWarnings emits every buffered warning through the structured logger
// and clears the buffer.
func (r *Response) FlushWarnings() {
	r.log.flush()
}

// TriggerTuning re-evaluates each named item's Trigger formula against the
// current cache and commits the result, returning the keys whose after
// value actually changed so callers can detect convergence. A key absent
// from the resolved catalog (a version overlay may have removed it) is
// skipped rather than treated as a fatal UnknownTunable: the phase bundles
// are written once for all versions, not per-version.
func (r *Response) TriggerTuning(keysByScope map[Scope][]string, req *Request) ([]string, error) {
	var changed []string
	for scope, keys := range keysByScope {
		group, ok := r.groups[scope]
		if !ok {
			continue
		}
		for _, key := range keys {
			st, ok := group[key]
			if !ok {
				continue
			}
			if st.Trigger == nil {
				continue
			}
			newVal, err := st.Trigger(req, r)
			if err != nil {
				return nil, &CatalogEvalError{Key: key, Cause: err}
			}
			old := st.After
			st.After = newVal
			r.cache[key] = newVal
			if !valuesEqual(old, newVal) {
				changed = append(changed, key)
			}
		}
	}
	return changed, nil
}

func valuesEqual(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// ItemsInScope returns every item state in scope, used by the renderer.
func (r *Response) ItemsInScope(scope Scope) map[string]*ItemState {
	return r.groups[scope]
}

// Scopes returns every scope group present in the Response.
func (r *Response) Scopes() []Scope {
	scopes := make([]Scope, 0, len(r.groups))
	for s := range r.groups {
		scopes = append(scopes, s)
	}
	return scopes
}
