package disease_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/datastore"
	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/datastore/repository"
	"github.com/plantcare-go/plantcare/internal/disease"
	"github.com/plantcare-go/plantcare/internal/errors"
)

func newTypeRepo(t *testing.T, names ...string) repository.DiseaseTypeRepository {
	t.Helper()
	store, err := datastore.Open(context.Background(), &conf.DatabaseSettings{Type: conf.DatabaseSQLite, TestMode: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	if len(names) > 0 {
		_, err = store.Repos.DiseaseTypes.CreateBatch(context.Background(), names)
		require.NoError(t, err)
	}
	return store.Repos.DiseaseTypes
}

func fixedPredictor(calls *atomic.Int32, probs ...float32) disease.Predictor {
	return func(context.Context) ([]float32, error) {
		calls.Add(1)
		return probs, nil
	}
}

func TestConfidenceBand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		confidence float64
		want       string
	}{
		{0.801, disease.BandHigh},
		{0.99, disease.BandHigh},
		{0.80, disease.BandMedium},
		{0.50, disease.BandMedium},
		{0.65, disease.BandMedium},
		{0.49, disease.BandUnknown},
		{0, disease.BandUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, disease.ConfidenceBand(tt.confidence), "confidence %v", tt.confidence)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	c, err := disease.Classify([]float32{0.1, 0.7, 0.2})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Index)
	assert.InDelta(t, 0.7, c.Confidence, 1e-6)

	// first maximum wins
	c, err = disease.Classify([]float32{0.4, 0.2, 0.4})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Index)

	_, err = disease.Classify(nil)
	assert.ErrorIs(t, err, disease.ErrInvalidInput)
}

func TestCheckSpecies(t *testing.T) {
	t.Parallel()

	types := []entities.DiseaseType{
		{ID: 1, Name: "Apple___Scab"},
		{ID: 2, Name: "Corn___Rust"},
		{ID: 3, Name: "Apple___healthy"},
		{ID: 4, Name: disease.UnknownDiseaseName},
	}

	assert.Equal(t, []string{"Apple", "Corn"}, disease.SupportedSpecies(types))

	for _, species := range []string{"apple", "APPLE", "Apple", "corn", ""} {
		assert.NoError(t, disease.CheckSpecies(species, types), species)
	}

	err := disease.CheckSpecies("Cactus", types)
	require.Error(t, err)
	assert.ErrorIs(t, err, disease.ErrUnsupportedSpecies)

	var unsupported *disease.UnsupportedSpeciesError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "Cactus", unsupported.Species)
	assert.Equal(t, "Disease detection for 'Cactus' is not supported yet. Supported types: ['Apple', 'Corn']", err.Error())
}

func TestDecideRejectsWithoutInvokingModel(t *testing.T) {
	t.Parallel()
	policy := disease.NewPolicy(newTypeRepo(t, "Apple___Scab", "Corn___Rust"), time.Minute)

	var calls atomic.Int32
	_, err := policy.Decide(context.Background(), "Cactus", fixedPredictor(&calls, 0.9, 0.1))

	require.Error(t, err)
	assert.ErrorIs(t, err, disease.ErrUnsupportedSpecies)
	assert.Zero(t, calls.Load())
}

func TestDecideAssignsIndexPlusOne(t *testing.T) {
	t.Parallel()
	policy := disease.NewPolicy(newTypeRepo(t, "Apple___Scab", "Apple___Black_rot", "Corn___Rust"), time.Minute)

	var calls atomic.Int32
	decision, err := policy.Decide(context.Background(), "apple", fixedPredictor(&calls, 0.05, 0.85, 0.10))

	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, uint(2), decision.DiseaseType.ID)
	assert.Equal(t, "Apple___Black_rot", decision.DiseaseType.Name)
	assert.Equal(t, disease.BandHigh, decision.Band)
	assert.False(t, decision.Unknown)
}

func TestDecideLowConfidenceIsUnknown(t *testing.T) {
	t.Parallel()
	repo := newTypeRepo(t, "Apple___Scab", "Corn___Rust")
	policy := disease.NewPolicy(repo, time.Minute)
	ctx := context.Background()

	var calls atomic.Int32
	first, err := policy.Decide(ctx, "", fixedPredictor(&calls, 0.45, 0.40))
	require.NoError(t, err)
	second, err := policy.Decide(ctx, "", fixedPredictor(&calls, 0.30, 0.20))
	require.NoError(t, err)

	assert.True(t, first.Unknown)
	assert.Equal(t, disease.UnknownDiseaseName, first.DiseaseType.Name)
	assert.Equal(t, first.DiseaseType.ID, second.DiseaseType.ID)
	assert.Equal(t, disease.BandUnknown, first.Band)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDecideMissingTypeFallsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("first known type", func(t *testing.T) {
		t.Parallel()
		policy := disease.NewPolicy(newTypeRepo(t, "Apple___Scab"), 0)
		var calls atomic.Int32
		decision, err := policy.Decide(ctx, "", fixedPredictor(&calls, 0.1, 0.1, 0.8))
		require.NoError(t, err)
		assert.Equal(t, "Apple___Scab", decision.DiseaseType.Name)
		assert.False(t, decision.Unknown)
	})

	t.Run("no types at all", func(t *testing.T) {
		t.Parallel()
		policy := disease.NewPolicy(newTypeRepo(t), 0)
		var calls atomic.Int32
		decision, err := policy.Decide(ctx, "", fixedPredictor(&calls, 0.9))
		require.NoError(t, err)
		assert.True(t, decision.Unknown)
		assert.Equal(t, disease.UnknownDiseaseName, decision.DiseaseType.Name)
	})
}

func TestUnknownTypeConcurrent(t *testing.T) {
	t.Parallel()
	repo := newTypeRepo(t, "Apple___Scab")
	policy := disease.NewPolicy(repo, time.Minute)
	ctx := context.Background()

	const workers = 10
	ids := make([]uint, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dt, err := policy.UnknownType(ctx)
			if assert.NoError(t, err) {
				ids[i] = dt.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestKnownTypesCacheInvalidation(t *testing.T) {
	t.Parallel()
	repo := newTypeRepo(t, "Apple___Scab")
	policy := disease.NewPolicy(repo, time.Minute)
	ctx := context.Background()

	types, err := policy.KnownTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 1)

	_, err = repo.GetOrCreate(ctx, "Corn___Rust")
	require.NoError(t, err)

	// served from cache until invalidated
	types, err = policy.KnownTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 1)
	assert.ErrorIs(t, policy.Gate(ctx, "corn"), disease.ErrUnsupportedSpecies)

	policy.InvalidateTypes()
	types, err = policy.KnownTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 2)
	assert.NoError(t, policy.Gate(ctx, "corn"))
}

func TestDecidePropagatesPredictorError(t *testing.T) {
	t.Parallel()
	policy := disease.NewPolicy(newTypeRepo(t, "Apple___Scab"), 0)

	boom := errors.NewStd("interpreter failed")
	_, err := policy.Decide(context.Background(), "apple", func(context.Context) ([]float32, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}
