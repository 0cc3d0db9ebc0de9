package pgtune

import "encoding/json"

// ManagedItemView is the JSON-serializable projection of one ItemState,
// used by RenderJSON and by HTTP front-ends that consume tuned values
// without re-parsing rendered text.
type ManagedItemView struct {
	Key     string `json:"key"`
	Scope   string `json:"scope"`
	Before  any    `json:"before"`
	After   any    `json:"after"`
	Comment string `json:"comment,omitempty"`
}

// RenderJSON serializes the full managed-item cache grouped by scope, so a
// caller can consume the tuned values directly without re-parsing the
// rendered postgresql.conf text.
func RenderJSON(resp *Response, cat *Catalog) ([]byte, error) {
	out := map[string][]ManagedItemView{}
	for _, key := range cat.OrderedKeys() {
		st, ok := resp.findState(key)
		if !ok {
			continue
		}
		view := ManagedItemView{
			Key: st.Key, Scope: string(st.Scope),
			Before: st.Before, After: st.After, Comment: st.Comment,
		}
		out[string(st.Scope)] = append(out[string(st.Scope)], view)
	}
	return json.MarshalIndent(out, "", "  ")
}
