//go:build integration

package repository_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"go-auth-api/internal/database"
	"go-auth-api/internal/model"
	"go-auth-api/internal/repository"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("auth"),
		postgres.WithUsername("auth"),
		postgres.WithPassword("auth"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("start postgres container: %v", err)
		return 1
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			log.Printf("terminate postgres container: %v", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Printf("postgres connection string: %v", err)
		return 1
	}

	if err := database.Migrate(dsn, nil); err != nil {
		log.Printf("migrate: %v", err)
		return 1
	}

	db, err := database.New(ctx, database.Options{URL: dsn, MaxConns: 4, MinConns: 1}, nil)
	if err != nil {
		log.Printf("connect: %v", err)
		return 1
	}
	defer db.Close()
	testPool = db.Pool

	return m.Run()
}

func TestUserRepository_Postgres_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(testPool)

	created, err := repo.Create(ctx, model.NewUser{
		Email:        "lifecycle@example.com",
		Phone:        "+15550100",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, created.ID)
	})

	assert.Equal(t, []string{model.RoleUser}, created.Roles)
	assert.Empty(t, created.RefreshToken)

	byPhone, err := repo.FindByPhone(ctx, "+15550100")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byPhone.ID)

	require.NoError(t, repo.SetRefreshToken(ctx, created.ID, "rt-1"))
	bySession, err := repo.FindByRefreshToken(ctx, "rt-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySession.ID)

	require.NoError(t, repo.SetRefreshToken(ctx, created.ID, ""))
	_, err = repo.FindByRefreshToken(ctx, "rt-1")
	require.ErrorIs(t, err, model.ErrUserNotFound)
	_, err = repo.FindByRefreshToken(ctx, "")
	require.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestUserRepository_Postgres_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(testPool)

	first, err := repo.Create(ctx, model.NewUser{Email: "dup@example.com", PasswordHash: "hash"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, first.ID)
	})

	_, err = repo.Create(ctx, model.NewUser{Email: "dup@example.com", PasswordHash: "other"})
	require.ErrorIs(t, err, model.ErrUserAlreadyExists)
}

func TestUserRepository_Postgres_UsersWithoutPhoneDoNotConflict(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(testPool)

	for _, email := range []string{"nophone1@example.com", "nophone2@example.com"} {
		u, err := repo.Create(ctx, model.NewUser{Email: email, PasswordHash: "hash"})
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, u.ID)
		})
	}
}
