package metadata

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/kiln/engine/core"
)

/**
 * @brief A single vertex as laid out in the vertex buffer.
 */
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	Color    mgl32.Vec4
	/** @brief Bindless slot of the texture sampled by this vertex. */
	Texture uint32
}

/** @brief Size in bytes of one Vertex in the vertex buffer. */
const VertexStride = (3 + 3 + 2 + 4 + 1) * 4

/**
 * @brief CPU side geometry ready to be uploaded.
 */
type MeshData struct {
	Vertices []Vertex
	Indices  []uint32
}

// Validate checks that every index points at a vertex.
func (m MeshData) Validate() error {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return errors.Wrap(core.ErrInvalidFile, "mesh has no geometry")
	}
	for i, idx := range m.Indices {
		if int(idx) >= len(m.Vertices) {
			return errors.Wrapf(core.ErrInvalidFile, "index %d references vertex %d of %d", i, idx, len(m.Vertices))
		}
	}
	return nil
}

// CalculateNormals sets each vertex normal to the normalized sum of the face
// normals it belongs to. Indices must describe a triangle list.
func (m *MeshData) CalculateNormals() {
	if len(m.Indices)%3 != 0 {
		return
	}
	for i := range m.Vertices {
		m.Vertices[i].Normal = mgl32.Vec3{}
	}
	for t := 0; t < len(m.Indices); t += 3 {
		a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		pa, pb, pc := m.Vertices[a].Position, m.Vertices[b].Position, m.Vertices[c].Position
		normal := pb.Sub(pa).Cross(pc.Sub(pa))
		m.Vertices[a].Normal = m.Vertices[a].Normal.Add(normal)
		m.Vertices[b].Normal = m.Vertices[b].Normal.Add(normal)
		m.Vertices[c].Normal = m.Vertices[c].Normal.Add(normal)
	}
	for i := range m.Vertices {
		if m.Vertices[i].Normal.Len() > 0 {
			m.Vertices[i].Normal = m.Vertices[i].Normal.Normalize()
		}
	}
}

// Append merges other into m, rebasing its indices.
func (m *MeshData) Append(other MeshData) {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, other.Vertices...)
	for _, idx := range other.Indices {
		m.Indices = append(m.Indices, base+idx)
	}
}

// Rectangle builds a quad from four corners in drawing order.
func Rectangle(p1, p2, p3, p4 mgl32.Vec3) MeshData {
	white := mgl32.Vec4{1, 1, 1, 1}
	m := MeshData{
		Vertices: []Vertex{
			{Position: p1, UV: mgl32.Vec2{0, 0}, Color: white},
			{Position: p2, UV: mgl32.Vec2{1, 0}, Color: white},
			{Position: p3, UV: mgl32.Vec2{1, 1}, Color: white},
			{Position: p4, UV: mgl32.Vec2{0, 1}, Color: white},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
	m.CalculateNormals()
	return m
}

// Cube builds a unit cube centered on the origin, 24 vertices and 36 indices.
func Cube() MeshData {
	var m MeshData
	// top, bottom, front, back, left, right
	m.Append(Rectangle(mgl32.Vec3{-0.5, 0.5, 0.5}, mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{0.5, 0.5, -0.5}, mgl32.Vec3{-0.5, 0.5, -0.5}))
	m.Append(Rectangle(mgl32.Vec3{0.5, -0.5, 0.5}, mgl32.Vec3{-0.5, -0.5, 0.5}, mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{0.5, -0.5, -0.5}))
	m.Append(Rectangle(mgl32.Vec3{-0.5, 0.5, -0.5}, mgl32.Vec3{0.5, 0.5, -0.5}, mgl32.Vec3{0.5, -0.5, -0.5}, mgl32.Vec3{-0.5, -0.5, -0.5}))
	m.Append(Rectangle(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{-0.5, 0.5, 0.5}, mgl32.Vec3{-0.5, -0.5, 0.5}, mgl32.Vec3{0.5, -0.5, 0.5}))
	m.Append(Rectangle(mgl32.Vec3{-0.5, 0.5, 0.5}, mgl32.Vec3{-0.5, 0.5, -0.5}, mgl32.Vec3{-0.5, -0.5, -0.5}, mgl32.Vec3{-0.5, -0.5, 0.5}))
	m.Append(Rectangle(mgl32.Vec3{0.5, 0.5, -0.5}, mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{0.5, -0.5, 0.5}, mgl32.Vec3{0.5, -0.5, -0.5}))
	return m
}
