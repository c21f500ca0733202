// Package postgrescontainer starts a throwaway PostgreSQL for integration
// tests through the docker CLI.
package postgrescontainer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

const (
	image         = "postgres:16-alpine"
	containerName = "digitally-postgres-test"
	hostPort      = "55432"
	user          = "digitally"
	password      = "secret"
	dbName        = "digitally_test"
)

// ErrUnavailable means docker is missing; callers skip their tests.
var ErrUnavailable = errors.New("postgrescontainer: docker not available")

var (
	once     sync.Once
	setupErr error
	external string
)

// DSN returns a lib/pq formatted connection string. TEST_DATABASE_URL
// overrides the container.
func DSN() string {
	if external != "" {
		return external
	}
	return fmt.Sprintf("postgres://%s:%s@127.0.0.1:%s/%s?sslmode=disable", user, password, hostPort, dbName)
}

// Setup launches the container unless TEST_DATABASE_URL points elsewhere.
func Setup() error {
	once.Do(func() {
		if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
			external = dsn
			setupErr = waitForPostgres(dsn, 10*time.Second)
			return
		}
		if _, err := exec.LookPath("docker"); err != nil {
			setupErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			return
		}
		_ = stopContainer()
		if err := runDocker(
			"run", "-d", "--rm",
			"--name", containerName,
			"-p", hostPort+":5432",
			"-e", "POSTGRES_USER="+user,
			"-e", "POSTGRES_PASSWORD="+password,
			"-e", "POSTGRES_DB="+dbName,
			image,
		); err != nil {
			setupErr = err
			return
		}
		setupErr = waitForPostgres(DSN(), 30*time.Second)
	})
	return setupErr
}

// Teardown stops the container launched by Setup.
func Teardown() error {
	if setupErr != nil || external != "" {
		return nil
	}
	return stopContainer()
}

func stopContainer() error {
	output, err := exec.Command("docker", "stop", containerName).CombinedOutput()
	if err != nil {
		if strings.Contains(string(output), "No such container") {
			return nil
		}
		return fmt.Errorf("docker stop failed: %w: %s", err, output)
	}
	return nil
}

func runDocker(args ...string) error {
	output, err := exec.Command("docker", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("docker %s failed: %w: %s", args[0], err, output)
	}
	return nil
}

func waitForPostgres(dsn string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		err := func() error {
			db, err := sql.Open("postgres", dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.PingContext(ctx)
		}()
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("postgres did not become ready in time")
}
