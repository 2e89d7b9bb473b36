//go:build mage

package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
)

const shaderDir = "assets/shaders"

type Build mg.Namespace

// Compiles every GLSL stage in assets/shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the playground binary.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/vkplayground", "."), withStream())
	return err
}

func buildShaders() error {
	sources, err := shaderSources()
	if err != nil {
		return err
	}
	for _, src := range sources {
		out := src + ".spv"
		// Skip stages whose binary is newer than the source.
		rebuild, err := target.Path(out, src)
		if err != nil {
			return err
		}
		if !rebuild {
			continue
		}
		if _, err := executeCmd("glslc", withArgs(src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

func shaderSources() ([]string, error) {
	entries, err := os.ReadDir(shaderDir)
	if err != nil {
		return nil, err
	}
	var sources []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || !(strings.EqualFold(ext, ".vert") || strings.EqualFold(ext, ".frag")) {
			continue
		}
		sources = append(sources, filepath.Join(shaderDir, e.Name()))
	}
	return sources, nil
}
