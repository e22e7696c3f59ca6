package sweattest

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"testing"

	"github.com/ory/dockertest"
)

// ServiceConfig describes a disposable container for one test and how to
// build a typed handle for it once it accepts connections.
type ServiceConfig[T any] struct {
	Image        string
	Tag          string
	InternalPort int
	Environment  map[string]string
	Builder      func(host string, port int) (T, error)
}

func (config ServiceConfig[T]) env() []string {
	env := []string{}
	for key, value := range config.Environment {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}

	return env
}

// StartService runs a container for the duration of the test and returns the
// handle produced by the config's Builder, retrying until the service accepts
// connections. Tests running with -short skip instead.
func StartService[T any](t *testing.T, config ServiceConfig[T]) T {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping long-running test in short mode.")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("Could not construct pool: %s", err)
	}

	if err := pool.Client.Ping(); err != nil {
		t.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.Run(config.Image, config.Tag, config.env())
	if err != nil {
		t.Fatalf("Could not start resource: %s", err)
	}

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Fatalf("Could not purge resource: %s", err)
		}
	})

	host := "localhost"
	if dockerURL := os.Getenv("DOCKER_HOST"); dockerURL != "" {
		parsed, err := url.Parse(dockerURL)
		if err != nil {
			t.Fatalf("Error parsing docker URL: %s", err)
		}

		if parsed.Hostname() != "" {
			host = parsed.Hostname()
		}
	}

	port, err := strconv.Atoi(resource.GetPort(fmt.Sprintf("%d/tcp", config.InternalPort)))
	if err != nil {
		t.Fatalf("Error reading mapped port: %s", err)
	}

	var handle T

	if err := pool.Retry(func() error {
		var err error

		handle, err = config.Builder(host, port)

		return err
	}); err != nil {
		t.Fatalf("Could not connect to service: %s", err)
	}

	return handle
}
