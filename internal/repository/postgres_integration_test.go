//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/immxrtalbeast/debatehall/internal/repository/model"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestPostgresRepositories(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("debatehall_test"),
		postgres.WithUsername("debatehall"),
		postgres.WithPassword("debatehall"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	runContract(t, func(t *testing.T) repository.Repositories {
		db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{TranslateError: true})
		require.NoError(t, err)
		require.NoError(t, db.Migrator().DropTable(model.All()...))
		require.NoError(t, db.AutoMigrate(model.All()...))
		return repository.NewPostgresRepositories(db)
	})
}
