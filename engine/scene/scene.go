package scene

import (
	"fmt"

	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
)

/** @brief A loaded scene: its root nodes plus the assets they reference. */
type Scene struct {
	Name  string
	Roots []*Node

	Meshes    map[string]*resources.Mesh
	Materials map[string]*resources.Material
	// Files the scene was built from besides its own description.
	Dependencies []string
}

func NewScene(name string) *Scene {
	return &Scene{
		Name:      name,
		Meshes:    make(map[string]*resources.Mesh),
		Materials: make(map[string]*resources.Material),
	}
}

// Find returns the first active node called name, searching roots in order.
func (s *Scene) Find(name string) (*Node, error) {
	var found *Node
	for _, root := range s.Roots {
		root.Walk(func(n *Node) bool {
			if found != nil || !n.Active {
				return false
			}
			if n.Name == name {
				found = n
				return false
			}
			return true
		})
		if found != nil {
			return found, nil
		}
	}
	return nil, fmt.Errorf("scene '%s' has no object named '%s': %w", s.Name, name, core.ErrMissingRoot)
}

// NodeCount returns the number of nodes in the scene, active or not.
func (s *Scene) NodeCount() int {
	count := 0
	for _, root := range s.Roots {
		root.Walk(func(*Node) bool {
			count++
			return true
		})
	}
	return count
}
