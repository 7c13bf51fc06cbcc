package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/cvintake/cvintake-backend/pkg/database"
	"github.com/cvintake/cvintake-backend/pkg/logger"
)

var (
	// shared across every integration test in a package
	globalContainer *PostgresContainer
	globalDB        *database.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite gives integration tests a real PostgreSQL database
type IntegrationSuite struct {
	Container *PostgresContainer
	DB        *database.DB
	Logger    *logger.Logger
}

// NewIntegrationSuite starts (once per process) a PostgreSQL container and
// connects to it. Tests are skipped in -short mode or when Docker is unavailable.
//
// Usage:
//
//	func TestSubmissionRepository_Integration(t *testing.T) {
//	    suite := testutil.NewIntegrationSuite(t)
//	    repo := repository.NewSubmissionRepository(suite.DB)
//	    ...
//	}
func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	t.Helper()
	SkipIfShort(t)

	container, db, err := sharedDatabase(context.Background())
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	return &IntegrationSuite{
		Container: container,
		DB:        db,
		Logger:    logger.Nop(),
	}
}

func sharedDatabase(ctx context.Context) (*PostgresContainer, *database.DB, error) {
	containerOnce.Do(func() {
		// docker host discovery panics when no daemon is reachable
		defer func() {
			if r := recover(); r != nil {
				containerErr = fmt.Errorf("docker unavailable: %v", r)
			}
		}()

		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		db, err := globalContainer.Connect(ctx)
		if err != nil {
			containerErr = err
			return
		}
		globalDB = database.Wrap(db, logger.Nop())
	})
	return globalContainer, globalDB, containerErr
}

// TerminateContainer stops the shared container. Call from TestMain after m.Run.
func TerminateContainer(ctx context.Context) {
	if globalDB != nil {
		globalDB.Close()
	}
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}

// IsCI reports whether the tests run under a CI system
func IsCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}
