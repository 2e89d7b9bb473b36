//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and then runs the playground with config.toml.
func (Run) Engine() error {
	if err := buildShaders(); err != nil {
		return err
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", "."), withEnv("VKPLAYGROUND_CONFIG", "config.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the unit tests. None of them needs a GPU; ./engine still links GLFW.
func (Run) Tests() error {
	_, err := executeCmd("go", withArgs("test", "./engine/core/...", "./engine/containers/...", "./engine/renderer/frames/...", "./engine/renderer/metadata/...", "./engine/assets/...", "./engine"), withStream())
	return err
}
