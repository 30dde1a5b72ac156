//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Build

var tools = []string{"skelinspect", "skelrender", "atlaspack", "skelexport", "skelview"}

// Builds every command into bin/.
func Build() error {
	mg.Deps(Tidy)
	if err := os.MkdirAll("bin", 0755); err != nil {
		return err
	}
	for _, t := range tools {
		out := filepath.Join("bin", t)
		if err := sh.RunV("go", "build", "-o", out, "./cmd/"+t); err != nil {
			return fmt.Errorf("failed to build %s: %w", t, err)
		}
	}
	return nil
}

// Runs the test suite with the race detector.
func Test() error {
	args := []string{"test", "-race", "./..."}
	if mg.Verbose() {
		args = append(args, "-v")
	}
	return sh.RunV("go", args...)
}

// Runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Runs go mod tidy.
func Tidy() error {
	if err := sh.Run("go", "mod", "tidy"); err != nil {
		return fmt.Errorf("failed to run go mod tidy: %w", err)
	}
	return nil
}

// Removes build output.
func Clean() error {
	return sh.Rm("bin")
}
