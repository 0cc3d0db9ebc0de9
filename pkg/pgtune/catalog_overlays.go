package pgtune

import "sort"

// overlayDefinitions lists every version-specific delta over the base
// catalog: overlays add, remove, or replace whole entries.
// Versions with no delta are omitted; resolution still works because
// ResolveCatalog only applies overlays with version <= the requested one.
var overlayDefinitions = []overlay{
	{
		version: 17,
		entries: []overlayEntry{
			{
				action: actionOverride,
				item: rawEntry{key: "io_combine_limit", Item: Item{
					Scope: ScopeDiskIOPS, HWScope: HardwareDatabase, Unit: UnitBytes,
					Comment: "maximum size of a combined read/write I/O operation (added in 17)",
					Default: uint64(128 * 1024), // 16 pages, upstream's default of 128kB
				}},
			},
		},
	},
	{
		version: 18,
		entries: []overlayEntry{
			{
				action: actionDelete,
				item:   rawEntry{key: "vacuum_cost_page_dirty"},
			},
		},
	},
}

// overlaysUpTo returns every overlay whose version is <= requested,
// ascending.
func overlaysUpTo(version int) []overlay {
	var out []overlay
	for _, ov := range overlayDefinitions {
		if ov.version <= version {
			out = append(out, ov)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out
}
