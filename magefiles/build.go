//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderOutputs = map[string]string{
	"shaders/shader.vert": "shaders/vert.spv",
	"shaders/shader.frag": "shaders/frag.spv",
}

// Compiles the GLSL shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	for src, dst := range shaderOutputs {
		if _, err := executeCmd("glslc", withArgs(filepath.FromSlash(src), "-o", filepath.FromSlash(dst)), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the simplegfx binary into bin/.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "simplegfx"), "."), withStream())
	return err
}
