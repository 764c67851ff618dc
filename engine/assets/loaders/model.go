package loaders

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

/**
 * @brief Loads Wavefront OBJ files into a single mesh. Every object of the
 * file is merged and polygons are split into triangles.
 */
type ModelLoader struct{}

// Load reads path and the .mtl file next to it, when there is one.
func (ml *ModelLoader) Load(path string) (metadata.MeshData, error) {
	meshFile, err := os.Open(path)
	if err != nil {
		return metadata.MeshData{}, errors.Wrapf(core.ErrInvalidFile, "%s: %s", path, err.Error())
	}
	defer meshFile.Close()

	var matFile io.Reader = strings.NewReader("")
	mtl := strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"
	if f, err := os.Open(mtl); err == nil {
		defer f.Close()
		matFile = f
	}

	data, err := ml.Decode(meshFile, matFile)
	if err != nil {
		return metadata.MeshData{}, errors.Wrapf(err, "failed to load %s", path)
	}
	return data, nil
}

// vertexKey identifies a unique position, uv and normal combination.
type vertexKey struct {
	v, vt, vn int
}

func (ml *ModelLoader) Decode(meshFile, matFile io.Reader) (metadata.MeshData, error) {
	decoder, err := obj.DecodeReader(meshFile, matFile)
	if err != nil {
		return metadata.MeshData{}, errors.Wrap(core.ErrInvalidFile, err.Error())
	}

	var data metadata.MeshData
	uniqueVertices := make(map[vertexKey]uint32)
	missingNormals := false

	addVertex := func(face obj.Face, i int) {
		key := vertexKey{v: face.Vertices[i], vt: -1, vn: -1}
		if i < len(face.Uvs) {
			key.vt = face.Uvs[i]
		}
		if i < len(face.Normals) {
			key.vn = face.Normals[i]
		}
		if index, exists := uniqueVertices[key]; exists {
			data.Indices = append(data.Indices, index)
			return
		}

		vert := metadata.Vertex{Color: mgl32.Vec4{1, 1, 1, 1}}
		if p := key.v * 3; key.v >= 0 && p+2 < len(decoder.Vertices) {
			vert.Position = mgl32.Vec3{decoder.Vertices[p], decoder.Vertices[p+1], decoder.Vertices[p+2]}
		}
		if t := key.vt * 2; key.vt >= 0 && t+1 < len(decoder.Uvs) {
			vert.UV = mgl32.Vec2{decoder.Uvs[t], 1.0 - decoder.Uvs[t+1]}
		}
		if n := key.vn * 3; key.vn >= 0 && n+2 < len(decoder.Normals) {
			vert.Normal = mgl32.Vec3{decoder.Normals[n], decoder.Normals[n+1], decoder.Normals[n+2]}
		} else {
			missingNormals = true
		}

		index := uint32(len(data.Vertices))
		data.Vertices = append(data.Vertices, vert)
		uniqueVertices[key] = index
		data.Indices = append(data.Indices, index)
	}

	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				addVertex(face, 0)
				addVertex(face, i-1)
				addVertex(face, i)
			}
		}
	}

	if missingNormals {
		data.CalculateNormals()
	}
	if err := data.Validate(); err != nil {
		return metadata.MeshData{}, err
	}
	return data, nil
}
