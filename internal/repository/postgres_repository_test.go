package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

type postgresRepositorySuite struct {
	suite.Suite

	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	repo      *PostgresRepository
}

// entry point to run the tests in the suite
func TestPostgresRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Postgres container test in short mode")
	}
	suite.Run(t, new(postgresRepositorySuite))
}

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts("./migrations/000001_create_carts.up.sql"),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("pc.ConnectionString: %w", err)
	}

	return postgresContainer, connStr, nil
}

// before all tests in the suite
func (s *postgresRepositorySuite) SetupSuite() {
	ctx := s.T().Context()

	container, connStr, err := startPostgres(ctx)
	s.Require().NoError(err)
	s.container = container

	s.pool, err = pgxpool.New(ctx, connStr)
	s.Require().NoError(err)

	s.repo = NewPostgresRepository(s.pool)
}

// after all tests in the suite
func (s *postgresRepositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		if err := s.container.Terminate(context.Background()); err != nil {
			s.T().Logf("failed to terminate container: %s", err)
		}
	}
}

func (s *postgresRepositorySuite) TestContract() {
	testCartRepository(s.T(), s.repo)
}

func (s *postgresRepositorySuite) TestMigrateURL() {
	assert.Equal(s.T(), "pgx5://u:p@h:5432/db", migrateURL("postgres://u:p@h:5432/db"))
	assert.Equal(s.T(), "pgx5://h/db", migrateURL("postgresql://h/db"))
	assert.Equal(s.T(), "pgx5://h/db", migrateURL("pgx5://h/db"))
}
