package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/datastore/repository"
)

// openMySQLStore starts a throwaway MySQL server. The test is skipped in
// -short mode or when no container runtime is reachable.
func openMySQLStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MySQL integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("plantcare"),
		tcmysql.WithUsername("plantcare"),
		tcmysql.WithPassword("plantcare"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	store, err := Open(ctx, &conf.DatabaseSettings{
		Type: conf.DatabaseMySQL,
		MySQL: conf.MySQLSettings{
			Host:     host,
			Port:     port.Port(),
			Username: "plantcare",
			Password: "plantcare",
			Database: "plantcare",
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMySQLBackend(t *testing.T) {
	store := openMySQLStore(t)
	ctx := context.Background()
	repos := store.Repos

	assert.Equal(t, conf.DatabaseMySQL, store.Kind)
	require.NoError(t, store.Ping(ctx))

	user := &entities.User{Username: "grower", Email: "grower@example.com", Password: "hash"}
	require.NoError(t, repos.Users.Create(ctx, user))
	err := repos.Users.Create(ctx, &entities.User{Username: "grower", Email: "other@example.com", Password: "hash"})
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)

	plant := &entities.Plant{Name: "Tomato", Species: "Tomato", UserID: user.ID}
	require.NoError(t, repos.Plants.Create(ctx, plant))

	inserted, err := repos.DiseaseTypes.CreateBatch(ctx, []string{"Tomato___Bacterial_spot", "Tomato___healthy"})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	unknown, err := repos.DiseaseTypes.GetOrCreate(ctx, "Unknown Disease")
	require.NoError(t, err)
	again, err := repos.DiseaseTypes.GetOrCreate(ctx, "Unknown Disease")
	require.NoError(t, err)
	assert.Equal(t, unknown.ID, again.ID)

	require.NoError(t, repos.Users.Delete(ctx, user.ID))
	_, err = repos.Plants.GetByID(ctx, plant.ID)
	assert.ErrorIs(t, err, repository.ErrPlantNotFound)
}
