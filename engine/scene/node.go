package scene

import (
	"fmt"

	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
)

/** @brief Holds the mesh a static renderer draws. */
type MeshFilter struct {
	Mesh *resources.Mesh
}

/** @brief Draws the mesh of the sibling MeshFilter with one material per submesh. */
type MeshRenderer struct {
	Materials []*resources.Material
}

/**
 * @brief Draws a mesh deformed by a set of bone nodes. Bones are in bind
 * pose order: Bones[i] drives the vertices weighted to bone i.
 */
type SkinnedMeshRenderer struct {
	Mesh      *resources.Mesh
	Materials []*resources.Material
	Bones     []*Node
}

/**
 * @brief A named object in the scene hierarchy. The world transform of a
 * node is its local transform applied under every ancestor's.
 */
type Node struct {
	Name string
	/** @brief Inactive nodes and their whole subtree are skipped by Collect. */
	Active    bool
	Transform *math.Transform

	MeshFilter          *MeshFilter
	MeshRenderer        *MeshRenderer
	SkinnedMeshRenderer *SkinnedMeshRenderer

	parent   *Node
	children []*Node
}

func NewNode(name string) *Node {
	return &Node{
		Name:      name,
		Active:    true,
		Transform: math.TransformCreate(),
	}
}

// AddChild re-parents child under n.
func (n *Node) AddChild(child *Node) error {
	if child == nil {
		return fmt.Errorf("cannot add a nil child to '%s'", n.Name)
	}
	for p := n; p != nil; p = p.parent {
		if p == child {
			return fmt.Errorf("adding '%s' under '%s' would create a cycle", child.Name, n.Name)
		}
	}
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = n
	child.Transform.Parent = n.Transform
	n.children = append(n.children, child)
	return nil
}

func (n *Node) removeChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Children() []*Node {
	return n.children
}

// World returns the local-to-world matrix of the node.
func (n *Node) World() math.Mat4 {
	return n.Transform.GetWorld()
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn prunes the subtree below the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}
