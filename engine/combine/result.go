package combine

import "github.com/spaghettifunk/shadowproxy/engine/resources"

// Result is either NotCombined or Combined.
type Result interface {
	// Mesh returns the mesh the run produced or passed through.
	Mesh() *resources.Mesh
	// Combined reports whether Mesh is a new combined buffer.
	Combined() bool

	sealed()
}

/**
 * @brief The run had a single source: its raw mesh is handed back untouched
 * and nothing should be persisted.
 */
type NotCombined struct {
	Original *resources.Mesh
}

func (r NotCombined) Mesh() *resources.Mesh { return r.Original }
func (r NotCombined) Combined() bool         { return false }
func (NotCombined) sealed()                  {}

/**
 * @brief The run merged its sources. Output has one submesh per material
 * identity, in the order Materials lists them. The caller owns Output.
 */
type Combined struct {
	Output    *resources.Mesh
	Materials []*resources.Material
}

func (r Combined) Mesh() *resources.Mesh { return r.Output }
func (r Combined) Combined() bool         { return true }
func (Combined) sealed()                  {}
