package scene

import (
	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
)

/**
 * @brief Gathers every static and skinned renderer under root, root
 * included, in depth-first order. Each component is reported once even if
 * reachable more than once. Static materials come from the MeshRenderer on
 * the same node; a MeshFilter without one gets an empty material list.
 * Inactive subtrees are skipped. The scene is not modified.
 *
 * @param root The object to search under.
 * @return The static and skinned sources, or ErrMissingRoot for a nil root.
 */
func Collect(root *Node) (static, skinned []resources.GeometrySource, err error) {
	if root == nil {
		return nil, nil, core.ErrMissingRoot
	}

	seenFilters := make(map[*MeshFilter]struct{})
	seenSkinned := make(map[*SkinnedMeshRenderer]struct{})

	root.Walk(func(n *Node) bool {
		if !n.Active {
			return false
		}
		if mf := n.MeshFilter; mf != nil {
			if _, dup := seenFilters[mf]; !dup {
				seenFilters[mf] = struct{}{}
				static = append(static, staticSource(n, mf))
			}
		}
		if sr := n.SkinnedMeshRenderer; sr != nil {
			if _, dup := seenSkinned[sr]; !dup {
				seenSkinned[sr] = struct{}{}
				skinned = append(skinned, skinnedSource(n, sr))
			}
		}
		return true
	})

	core.LogDebug("collected %d static and %d skinned sources under '%s'.", len(static), len(skinned), root.Name)
	return static, skinned, nil
}

func staticSource(n *Node, mf *MeshFilter) resources.GeometrySource {
	var materials []*resources.Material
	if n.MeshRenderer != nil {
		materials = n.MeshRenderer.Materials
	}
	return resources.GeometrySource{
		Name:      n.Name,
		Kind:      resources.SourceKindStatic,
		Mesh:      mf.Mesh,
		Transform: n.World(),
		Materials: materials,
	}
}

func skinnedSource(n *Node, sr *SkinnedMeshRenderer) resources.GeometrySource {
	world := n.World()
	pose := resources.SkinPose{BoneWorlds: make([]math.Mat4, len(sr.Bones))}
	for i, bone := range sr.Bones {
		if bone == nil {
			core.LogWarn("skinned renderer '%s' is missing bone %d, using the renderer transform.", n.Name, i)
			pose.BoneWorlds[i] = world
			continue
		}
		pose.BoneWorlds[i] = bone.World()
	}
	return resources.GeometrySource{
		Name:      n.Name,
		Kind:      resources.SourceKindSkinned,
		Mesh:      sr.Mesh,
		Transform: world,
		Materials: sr.Materials,
		Pose:      pose,
	}
}
