package e2e

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DefaultPort is the port the binary listens on when PORT is unset.
const DefaultPort = "3000"

// AppContainer is a running container with the deploy-check binary.
type AppContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// AppConfig configures the container.
type AppConfig struct {
	// Env is passed to the container. Setting PORT changes the exposed port.
	Env map[string]string
	// Command overrides the default arguments (none).
	Command []string
}

// NewAppContainer builds an image around the binary and waits until GET /
// answers. The caller is responsible for calling Terminate.
func NewAppContainer(ctx context.Context, cfg AppConfig) (*AppContainer, error) {
	binaryPath, err := BuildBinary()
	if err != nil {
		return nil, err
	}

	buildCtx, err := createBuildContext(binaryPath, "Dockerfile.e2e")
	if err != nil {
		return nil, fmt.Errorf("failed to create build context: %w", err)
	}
	defer os.RemoveAll(buildCtx)

	port := DefaultPort
	if p := cfg.Env["PORT"]; p != "" {
		port = p
	}
	containerPort := nat.Port(port + "/tcp")

	req := testcontainers.ContainerRequest{
		FromDockerfile: testcontainers.FromDockerfile{
			Context:    buildCtx,
			Dockerfile: "Dockerfile",
		},
		ExposedPorts: []string{string(containerPort)},
		Cmd:          cfg.Command,
		Env:          cfg.Env,
		WaitingFor: wait.ForHTTP("/").
			WithPort(containerPort).
			WithStatusCodeMatcher(func(status int) bool { return status == 200 }).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, containerPort)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	return &AppContainer{
		Container: container,
		Host:      host,
		Port:      mappedPort.Port(),
	}, nil
}

// URL returns the HTTP URL of the container's mapped port.
func (a *AppContainer) URL() string {
	return fmt.Sprintf("http://%s:%s", a.Host, a.Port)
}

// Terminate stops and removes the container.
func (a *AppContainer) Terminate(ctx context.Context) error {
	if a.Container != nil {
		return a.Container.Terminate(ctx)
	}
	return nil
}

// Logs returns the combined container output.
func (a *AppContainer) Logs(ctx context.Context) (string, error) {
	reader, err := a.Container.Logs(ctx)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// createBuildContext stages the binary and Dockerfile in a temp directory.
func createBuildContext(binaryPath, dockerfileName string) (string, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp("", "deploy-check-docker-ctx-*")
	if err != nil {
		return "", err
	}

	if err := copyFile(binaryPath, filepath.Join(tmpDir, binaryName)); err != nil {
		os.RemoveAll(tmpDir)
		return "", fmt.Errorf("failed to copy binary: %w", err)
	}

	srcDockerfile := filepath.Join(projectRoot, "e2e", dockerfileName)
	if err := copyFile(srcDockerfile, filepath.Join(tmpDir, "Dockerfile")); err != nil {
		os.RemoveAll(tmpDir)
		return "", fmt.Errorf("failed to copy Dockerfile: %w", err)
	}

	return tmpDir, nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, srcInfo.Mode())
}
