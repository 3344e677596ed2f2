package jobwatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/slok/jobwatch/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "jobwatch"
	}

	// go test changes the CWD to the test package directory, relative paths would not work.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("JOBWATCH_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("jobwatch binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "JOBWATCH_INTEGRATION"
		envBinary     = "JOBWATCH_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary: os.Getenv(envBinary),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// NewConfigFile writes a jobwatch configuration file with fast polling and returns its path.
func NewConfigFile(t *testing.T, dbPath string) string {
	t.Helper()

	data := fmt.Sprintf(`
provider:
  type: sqlite
  sqlite:
    db_path: %s
polling:
  interval: 50ms
  max_retries: 40
  grace_window: 50ms
  settle_delay: 50ms
`, dbPath)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("could not write config: %s", err)
	}

	return path
}

// RunJobPut runs `jobwatch job put`.
func RunJobPut(ctx context.Context, config Config, configPath, id, status string, progress int) ([]byte, []byte, error) {
	args := []string{"--config", configPath, "job", "put", id, "--status", status, "--progress", fmt.Sprint(progress)}
	return testutils.RunJobwatchArgs(ctx, nil, config.Binary, args, true)
}

// RunJobList runs `jobwatch job list --format json`.
func RunJobList(ctx context.Context, config Config, configPath string) ([]byte, []byte, error) {
	return testutils.RunJobwatch(ctx, nil, config.Binary, fmt.Sprintf("--config %s job list --format json", configPath), true)
}

// RunWatch runs `jobwatch watch` with extra global flags.
func RunWatch(ctx context.Context, config Config, configPath, id string, extraFlags ...string) ([]byte, []byte, error) {
	args := append([]string{"--config", configPath}, extraFlags...)
	args = append(args, "watch", id, "--format", "json")
	return testutils.RunJobwatchArgs(ctx, nil, config.Binary, args, true)
}
