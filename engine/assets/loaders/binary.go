package loaders

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/shadowproxy/engine/core"
	"github.com/spaghettifunk/shadowproxy/engine/math"
	"github.com/spaghettifunk/shadowproxy/engine/resources"
)

/** @brief The current version of the binary mesh format. */
const MeshFormatVersion uint8 = 1

// MeshExtension is the file extension of binary mesh assets.
const MeshExtension = ".amesh"

// Caps any single count read from disk so a corrupt file cannot request an
// absurd allocation.
const maxElementCount = 1 << 24

const (
	flagNormals uint8 = 1 << iota
	flagTangents
	flagColours
	flagUV0
)

var byteOrder = binary.LittleEndian

type MeshLoader struct{}

func (ml *MeshLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mesh, err := DecodeMesh(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("mesh asset '%s': %w", path, err)
	}
	return &resources.Resource{
		Name:     mesh.Name,
		FullPath: path,
		Type:     resources.ResourceTypeMesh,
		Data:     mesh,
	}, nil
}

func (ml *MeshLoader) Unload(res *resources.Resource) error {
	if m, ok := res.Data.(*resources.Mesh); ok {
		m.Clear()
	}
	res.Data = nil
	return nil
}

/**
 * @brief Writes mesh to path in the binary mesh format, creating parent
 * directories as needed. The file is replaced atomically.
 */
func WriteMeshFile(path string, mesh *resources.Mesh) error {
	var buf bytes.Buffer
	if err := EncodeMesh(&buf, mesh); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadMeshFile loads a binary mesh asset from path.
func ReadMeshFile(path string) (*resources.Mesh, error) {
	res, err := (&MeshLoader{}).Load(path, resources.ResourceTypeMesh, nil)
	if err != nil {
		return nil, err
	}
	return res.Data.(*resources.Mesh), nil
}

func hasAttribute(length, vertexCount int) (bool, error) {
	switch length {
	case 0:
		return false, nil
	case vertexCount:
		return true, nil
	default:
		return false, fmt.Errorf("attribute has %d entries for %d vertices: %w", length, vertexCount, core.ErrInvalidAsset)
	}
}

/**
 * @brief Encodes mesh in the binary mesh format. Equal meshes always encode
 * to identical bytes.
 */
func EncodeMesh(w io.Writer, mesh *resources.Mesh) error {
	if mesh == nil {
		return core.ErrNilMesh
	}
	n := mesh.VertexCount()

	var flags uint8
	attrs := []struct {
		length int
		flag   uint8
	}{
		{len(mesh.Normals), flagNormals},
		{len(mesh.Tangents), flagTangents},
		{len(mesh.Colours), flagColours},
	}
	for c := 0; c < resources.MaxUVChannels; c++ {
		attrs = append(attrs, struct {
			length int
			flag   uint8
		}{len(mesh.UVs[c]), flagUV0 << c})
	}
	for _, a := range attrs {
		present, err := hasAttribute(a.length, n)
		if err != nil {
			return fmt.Errorf("mesh '%s': %w", mesh.Name, err)
		}
		if present {
			flags |= a.flag
		}
	}
	if len(mesh.BoneWeights) != 0 && len(mesh.BoneWeights) != n {
		return fmt.Errorf("mesh '%s' has %d bone weights for %d vertices: %w", mesh.Name, len(mesh.BoneWeights), n, core.ErrInvalidAsset)
	}

	bw := bufio.NewWriter(w)
	put := func(v interface{}) {
		// bufio.Writer keeps the first error and reports it on Flush.
		_ = binary.Write(bw, byteOrder, v)
	}

	put(resources.ResourceHeader{
		MagicNumber:  resources.ResourceMagic,
		ResourceType: resources.ResourceTypeMesh,
		Version:      MeshFormatVersion,
	})
	put(mesh.GUID)
	put(uint32(len(mesh.Name)))
	put([]byte(mesh.Name))

	put(uint32(n))
	put(mesh.Vertices)
	put(flags)
	if flags&flagNormals != 0 {
		put(mesh.Normals)
	}
	if flags&flagTangents != 0 {
		put(mesh.Tangents)
	}
	if flags&flagColours != 0 {
		put(mesh.Colours)
	}
	for c := 0; c < resources.MaxUVChannels; c++ {
		if flags&(flagUV0<<c) != 0 {
			put(mesh.UVs[c])
		}
	}

	put(uint32(mesh.SubMeshCount()))
	for i := 0; i < mesh.SubMeshCount(); i++ {
		tris, err := mesh.Triangles(i)
		if err != nil {
			return err
		}
		put(uint32(len(tris)))
		put(tris)
	}

	put(uint32(len(mesh.BoneWeights)))
	put(mesh.BoneWeights)
	put(uint32(len(mesh.BindPoses)))
	put(mesh.BindPoses)

	return bw.Flush()
}

type meshReader struct {
	r   io.Reader
	err error
}

func (mr *meshReader) read(v interface{}) {
	if mr.err != nil {
		return
	}
	mr.err = binary.Read(mr.r, byteOrder, v)
}

func (mr *meshReader) count() int {
	var c uint32
	mr.read(&c)
	if mr.err == nil && c > maxElementCount {
		mr.err = fmt.Errorf("element count %d exceeds limit: %w", c, core.ErrInvalidAsset)
	}
	return int(c)
}

// DecodeMesh reads a mesh written by EncodeMesh.
func DecodeMesh(r io.Reader) (*resources.Mesh, error) {
	mr := &meshReader{r: r}

	var header resources.ResourceHeader
	mr.read(&header)
	if mr.err != nil {
		return nil, fmt.Errorf("reading header: %w", mr.err)
	}
	if header.MagicNumber != resources.ResourceMagic {
		return nil, fmt.Errorf("bad magic 0x%x: %w", header.MagicNumber, core.ErrInvalidAsset)
	}
	if header.ResourceType != resources.ResourceTypeMesh {
		return nil, fmt.Errorf("resource type %d is not a mesh: %w", header.ResourceType, core.ErrInvalidAsset)
	}
	if header.Version != MeshFormatVersion {
		return nil, fmt.Errorf("unsupported version %d: %w", header.Version, core.ErrInvalidAsset)
	}

	mesh := resources.NewMesh("")
	mr.read(&mesh.GUID)
	name := make([]byte, mr.count())
	mr.read(name)
	mesh.Name = string(name)

	n := mr.count()
	if mr.err != nil {
		return nil, mr.err
	}
	mesh.Vertices = make([]math.Vec3, n)
	mr.read(mesh.Vertices)

	var flags uint8
	mr.read(&flags)
	if flags&flagNormals != 0 {
		mesh.Normals = make([]math.Vec3, n)
		mr.read(mesh.Normals)
	}
	if flags&flagTangents != 0 {
		mesh.Tangents = make([]math.Vec4, n)
		mr.read(mesh.Tangents)
	}
	if flags&flagColours != 0 {
		mesh.Colours = make([]math.Vec4, n)
		mr.read(mesh.Colours)
	}
	for c := 0; c < resources.MaxUVChannels; c++ {
		if flags&(flagUV0<<c) != 0 {
			mesh.UVs[c] = make([]math.Vec2, n)
			mr.read(mesh.UVs[c])
		}
	}

	subMeshCount := mr.count()
	if mr.err != nil {
		return nil, mr.err
	}
	mesh.SetSubMeshCount(subMeshCount)
	for i := 0; i < subMeshCount; i++ {
		tris := make([]uint32, mr.count())
		mr.read(tris)
		if mr.err != nil {
			return nil, mr.err
		}
		if err := mesh.SetTriangles(tris, i); err != nil {
			return nil, fmt.Errorf("%s: %w", err, core.ErrInvalidAsset)
		}
	}

	if weights := mr.count(); weights > 0 && mr.err == nil {
		mesh.BoneWeights = make([]resources.BoneWeight, weights)
		mr.read(mesh.BoneWeights)
	}
	if poses := mr.count(); poses > 0 && mr.err == nil {
		mesh.BindPoses = make([]math.Mat4, poses)
		mr.read(mesh.BindPoses)
	}
	if mr.err != nil {
		return nil, mr.err
	}
	return mesh, nil
}
