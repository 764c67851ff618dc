//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
)

type Build mg.Namespace

const (
	shaderSourceDir = "shaders"
	shaderOutputDir = "assets/shaders"
)

// Compiles the GLSL sources with glslc and packs them into .ksh binaries.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the testbed binary.
func (Build) Testbed() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/testbed", "."), withStream())
	return err
}

func buildShaders() error {
	if err := requireTool("glslc", "install the Vulkan SDK or shaderc"); err != nil {
		return err
	}
	if err := os.MkdirAll(shaderOutputDir, 0o755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp("", "kiln-shaders")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	for name, modes := range metadata.BuiltinShaderModes {
		vert, err := compileStage(name+".vert", tmp)
		if err != nil {
			return err
		}
		frag, err := compileStage(name+".frag", tmp)
		if err != nil {
			return err
		}
		data, err := metadata.EncodeShader(modes, vert, frag)
		if err != nil {
			return fmt.Errorf("failed to pack shader %s: %w", name, err)
		}
		out := filepath.Join(shaderOutputDir, name+".ksh")
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Packed %s\n", out)
	}
	return nil
}

func compileStage(source, tmp string) ([]byte, error) {
	out := filepath.Join(tmp, source+".spv")
	if _, err := executeCmd("glslc", withArgs("--target-env="+metadata.SpirvTargetEnv, filepath.Join(shaderSourceDir, source), "-o", out)); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}
