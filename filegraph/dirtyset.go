package filegraph

import "github.com/mgmuesuu/flow/storekey"

// DirtySet is the ordered set of modules whose providers may need
// re-selection, or whose current provider's content changed. Order is
// insertion order (first add wins position), which keeps results
// deterministic for tests and for any caller that logs the dirty set.
type DirtySet struct {
	order []storekey.ModuleName
	seen  map[storekey.ModuleName]bool
}

// NewDirtySet returns an empty DirtySet.
func NewDirtySet() *DirtySet {
	return &DirtySet{seen: make(map[storekey.ModuleName]bool)}
}

// Add inserts name if not already present.
func (d *DirtySet) Add(name storekey.ModuleName) {
	if d.seen[name] {
		return
	}
	d.seen[name] = true
	d.order = append(d.order, name)
}

// Names returns the set's members in insertion order.
func (d *DirtySet) Names() []storekey.ModuleName {
	return d.order
}

// Len reports how many modules are in the set.
func (d *DirtySet) Len() int {
	return len(d.order)
}

// Union adds every member of other into d.
func (d *DirtySet) Union(other *DirtySet) {
	if other == nil {
		return
	}
	for _, n := range other.order {
		d.Add(n)
	}
}
