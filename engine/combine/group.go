package combine

import (
	"github.com/spaghettifunk/shadowproxy/engine/resources"
	"golang.org/x/exp/slices"
)

/** @brief Every flattened entry that shares one material identity. */
type MaterialGroup struct {
	Material *resources.Material
	Entries  []FlatEntry
}

func (g MaterialGroup) instances() []resources.CombineInstance {
	out := make([]resources.CombineInstance, len(g.Entries))
	for i, e := range g.Entries {
		out[i] = e.instance()
	}
	return out
}

/**
 * @brief Partitions entries by material pointer identity. The material of
 * the first pending entry opens the next group, which takes every pending
 * entry with that material, in their original order. Groups therefore come
 * out in first-seen material order.
 */
func GroupByMaterial(entries []FlatEntry) []MaterialGroup {
	pending := slices.Clone(entries)
	var groups []MaterialGroup
	for len(pending) > 0 {
		material := pending[0].Material
		group := MaterialGroup{Material: material}
		pending = slices.DeleteFunc(pending, func(e FlatEntry) bool {
			if e.Material != material {
				return false
			}
			group.Entries = append(group.Entries, e)
			return true
		})
		groups = append(groups, group)
	}
	return groups
}
