package datastore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/datastore/repository"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), &conf.DatabaseSettings{Type: conf.DatabaseSQLite, TestMode: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestParseCSVDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  *time.Time
	}{
		{"iso", "2024-03-15", ptrTime(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))},
		{"day first", "15/03/2024", ptrTime(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))},
		{"surrounding space", " 2024-03-15 ", ptrTime(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))},
		{"empty", "", nil},
		{"month first is rejected", "03/15/2024", nil},
		{"garbage", "yesterday", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseCSVDate(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v", got)
		})
	}
}

func TestParseCSVDateFutureStillParsed(t *testing.T) {
	t.Parallel()

	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	assert.NotNil(t, ParseCSVDate(future))
}

func TestSeedDiseaseTypes(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "disease_types.csv")
	csv := "name\nApple___Apple_scab\nApple___Black_rot\nCorn___Common_rust\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	n, err := SeedDiseaseTypes(ctx, store.Repos.DiseaseTypes, path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// second run is a no-op because the table is populated
	n, err = SeedDiseaseTypes(ctx, store.Repos.DiseaseTypes, path)
	require.NoError(t, err)
	assert.Zero(t, n)

	dt, err := store.Repos.DiseaseTypes.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Apple___Black_rot", dt.Name)
}

func TestSeedDiseaseTypesMissingFile(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	n, err := SeedDiseaseTypes(context.Background(), store.Repos.DiseaseTypes, filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeedDiseaseTypesMissingColumn(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("label\nApple___healthy\n"), 0o600))

	_, err := SeedDiseaseTypes(context.Background(), store.Repos.DiseaseTypes, path)
	require.Error(t, err)
}

func TestImportGrowthLogs(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)
	ctx := context.Background()

	user := &entities.User{Username: "grower", Email: "grower@example.com", Password: "hash"}
	require.NoError(t, store.Repos.Users.Create(ctx, user))
	plant := &entities.Plant{Name: "Tomato", Species: "Tomato", UserID: user.ID}
	require.NoError(t, store.Repos.Plants.Create(ctx, plant))

	data := strings.Join([]string{
		"Plant_ID,Date,Soil_Type,Sunlight_Hours,Water_Frequency,Fertilizer_Type,Temperature,Humidity,Growth_Milestone",
		"1,2024-05-01,Loam,6.5,Daily,Organic,22.5,55,1",
		"1,02/05/2024,Clay,4,Weekly,None,19,60,",
		"99,2024-05-03,Sandy,8,Daily,Chemical,30,40,0",
		"1,2024-05-04,Loam,not-a-number,Daily,Organic,22,50,1",
	}, "\n")

	result, err := ImportGrowthLogs(ctx, store.Repos, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Skipped)

	logs, total, err := store.Repos.GrowthLogs.ListByPlant(ctx, plant.ID, repository.ListOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, logs, 2)
	// newest date first: 2 May before 1 May
	assert.Equal(t, "Clay", logs[0].SoilType)
	assert.Nil(t, logs[0].PredictedMilestone)
	require.NotNil(t, logs[1].PredictedMilestone)
	assert.Equal(t, 1, *logs[1].PredictedMilestone)
}

func TestImportGrowthLogsMissingColumn(t *testing.T) {
	t.Parallel()
	store := openTestStore(t)

	_, err := ImportGrowthLogs(context.Background(), store.Repos, strings.NewReader("plant_id,soil_type\n1,Loam\n"))
	require.Error(t, err)
}

func ptrTime(t time.Time) *time.Time { return &t }
