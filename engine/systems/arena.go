package systems

import (
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
)

// Arena groups the intermediate buffers of one run. Everything created
// through it is destroyed by Release unless handed out with Keep first.
// Release is safe to defer: it runs on early returns and panics alike and
// may be called more than once.
type Arena struct {
	name     string
	gs       *GeometrySystem
	owned    []*resources.Mesh
	released bool
}

func (gs *GeometrySystem) NewArena(name string) *Arena {
	return &Arena{
		name: name,
		gs:   gs,
	}
}

// New creates a buffer owned by the arena.
func (a *Arena) New(name string) (*resources.Mesh, error) {
	if a.released {
		return nil, core.ErrBufferReleased
	}
	g, err := a.gs.Create(name)
	if err != nil {
		return nil, err
	}
	a.owned = append(a.owned, g)
	return g, nil
}

// Keep transfers geometry out of the arena and out of the geometry system.
// The caller becomes its sole owner.
func (a *Arena) Keep(geometry *resources.Mesh) error {
	for i, g := range a.owned {
		if g == geometry {
			a.owned = append(a.owned[:i], a.owned[i+1:]...)
			return a.gs.Detach(geometry)
		}
	}
	return core.ErrBufferReleased
}

// Len returns the number of buffers the arena still owns.
func (a *Arena) Len() int {
	return len(a.owned)
}

// Release destroys every buffer still owned and returns how many went.
func (a *Arena) Release() int {
	if a.released {
		return 0
	}
	a.released = true

	count := 0
	for _, g := range a.owned {
		if err := a.gs.Destroy(g); err != nil {
			core.LogError("arena '%s': %s", a.name, err)
			continue
		}
		count++
	}
	a.owned = nil
	core.LogDebug("arena '%s' released %d buffers.", a.name, count)
	return count
}
