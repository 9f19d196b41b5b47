package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
)

const binaryName = "deploy-check"

var (
	buildOnce  sync.Once
	buildErr   error
	binaryPath string
)

// BuildBinary cross-compiles deploy-check for Linux on the host architecture.
// The result is cached for the whole test run.
func BuildBinary() (string, error) {
	buildOnce.Do(func() {
		projectRoot, err := findProjectRoot()
		if err != nil {
			buildErr = fmt.Errorf("failed to find project root: %w", err)
			return
		}

		tmpDir, err := os.MkdirTemp("", "deploy-check-e2e-*")
		if err != nil {
			buildErr = fmt.Errorf("failed to create temp dir: %w", err)
			return
		}

		binaryPath = filepath.Join(tmpDir, binaryName)

		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/deploy-check")
		cmd.Dir = projectRoot
		cmd.Env = append(os.Environ(),
			"GOOS=linux",
			"GOARCH="+runtime.GOARCH,
			"CGO_ENABLED=0",
		)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			buildErr = fmt.Errorf("failed to build %s: %w", binaryName, err)
			return
		}
	})

	return binaryPath, buildErr
}

// CleanupBuild removes the built binary.
func CleanupBuild() {
	if binaryPath != "" {
		os.RemoveAll(filepath.Dir(binaryPath))
	}
}

// findProjectRoot walks up from the working directory to the go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (go.mod)")
		}
		dir = parent
	}
}
