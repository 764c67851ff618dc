package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/kiln/engine/renderer"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
	"github.com/spaghettifunk/kiln/engine/systems"
)

// Resource creation. Asset problems come back as errors, nothing is ever
// replaced by a default.

func (e *Engine) Builtins() renderer.Builtins {
	return e.renderer.Builtins()
}

func (e *Engine) CreateTexture(data metadata.ImageData, opts metadata.TextureOptions) (metadata.Handle, error) {
	return e.renderer.CreateTexture(data, opts)
}

// LoadTexture decodes an image file into a texture.
func (e *Engine) LoadTexture(path string, opts metadata.TextureOptions) (metadata.Handle, error) {
	data, err := e.textureLoader.Load(path)
	if err != nil {
		return metadata.Handle{}, err
	}
	return e.renderer.CreateTexture(data, opts)
}

// TextureSlot returns the image table slot and sampler index to put in draw
// orders or material arguments.
func (e *Engine) TextureSlot(texture metadata.Handle) (uint32, uint32, error) {
	return e.renderer.TextureSlot(texture)
}

// CreateCubemap creates the skybox. Every face must match the top face,
// else core.ErrCubemapFaceSize is returned.
func (e *Engine) CreateCubemap(sides metadata.CubemapSides) (metadata.Handle, error) {
	return e.renderer.CreateCubemap(sides)
}

// LoadCubemap decodes the six face files in parallel, in the order right,
// left, top, bottom, front, back.
func (e *Engine) LoadCubemap(paths [6]string) (metadata.Handle, error) {
	var faces [6]metadata.ImageData
	jobs := make([]systems.Job, len(paths))
	for i := range paths {
		i := i
		jobs[i] = func() error {
			data, err := e.textureLoader.Load(paths[i])
			if err != nil {
				return err
			}
			faces[i] = data
			return nil
		}
	}
	if err := e.jobs.Run(jobs...); err != nil {
		return metadata.Handle{}, errors.Wrap(err, "failed to load cubemap")
	}
	return e.renderer.CreateCubemap(metadata.CubemapSides{
		Right:  faces[0],
		Left:   faces[1],
		Top:    faces[2],
		Bottom: faces[3],
		Front:  faces[4],
		Back:   faces[5],
	})
}

func (e *Engine) CreateMesh(data metadata.MeshData) (metadata.Handle, error) {
	return e.renderer.CreateMesh(data)
}

// LoadModel creates a mesh from an OBJ file.
func (e *Engine) LoadModel(path string) (metadata.Handle, error) {
	data, err := e.modelLoader.Load(path)
	if err != nil {
		return metadata.Handle{}, err
	}
	return e.renderer.CreateMesh(data)
}

// CreateMaterial creates a material with the default phong arguments.
func (e *Engine) CreateMaterial() (metadata.Handle, error) {
	return e.renderer.CreateMaterial(metadata.DefaultMaterialArgs())
}

func (e *Engine) SetMaterial(material metadata.Handle, args metadata.MaterialArgs) error {
	return e.renderer.UpdateMaterial(material, args)
}

// CreateShaderFromBytes creates a shader from an in memory shader binary.
func (e *Engine) CreateShaderFromBytes(data []byte) (metadata.Handle, error) {
	binary, err := metadata.DecodeShader(data)
	if err != nil {
		return metadata.Handle{}, err
	}
	return e.renderer.CreateShader(binary)
}

// CreateShaderFromFile loads a shader binary. With watch set and hot reload
// enabled, the shader is rebuilt whenever the file changes.
func (e *Engine) CreateShaderFromFile(path string, watch bool) (metadata.Handle, error) {
	handle, err := e.renderer.LoadShader(path)
	if err != nil {
		return metadata.Handle{}, err
	}
	if watch && e.config.Assets.Watch {
		if err := e.assetManager.Watch(path, handle); err != nil {
			return handle, errors.Wrapf(err, "shader %s created but not watched", path)
		}
	}
	return handle, nil
}

// CreateFramebuffer creates an offscreen render target whose color output
// can be sampled through FramebufferSlot.
func (e *Engine) CreateFramebuffer(width, height uint32) (metadata.Handle, error) {
	return e.renderer.CreateFramebuffer(width, height)
}

func (e *Engine) FramebufferSlot(framebuffer metadata.Handle) (uint32, error) {
	return e.renderer.FramebufferSlot(framebuffer)
}

func (e *Engine) ResizeFramebuffer(framebuffer metadata.Handle, width, height uint32) error {
	return e.renderer.ResizeFramebuffer(framebuffer, width, height)
}

// The resources are released once no frame in flight uses them.

func (e *Engine) DestroyTexture(h metadata.Handle) error {
	return e.renderer.DestroyTexture(h)
}

func (e *Engine) DestroyCubemap(h metadata.Handle) error {
	return e.renderer.DestroyCubemap(h)
}

func (e *Engine) DestroyMesh(h metadata.Handle) error {
	return e.renderer.DestroyMesh(h)
}

func (e *Engine) DestroyMaterial(h metadata.Handle) error {
	return e.renderer.DestroyMaterial(h)
}

func (e *Engine) DestroyShader(h metadata.Handle) error {
	e.assetManager.Unwatch(h)
	return e.renderer.DestroyShader(h)
}

func (e *Engine) DestroyFramebuffer(h metadata.Handle) error {
	return e.renderer.DestroyFramebuffer(h)
}
