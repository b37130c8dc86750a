package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantcare-go/plantcare/internal/api/v2/dto"
	"github.com/plantcare-go/plantcare/internal/disease"
	"github.com/plantcare-go/plantcare/internal/inference"
)

var tomatoTypes = []string{"Tomato___Early_blight", "Tomato___healthy", "Tomato___Late_blight"}

func uploadedFiles(t *testing.T, env *testEnv) []string {
	t.Helper()
	entries, err := os.ReadDir(env.files.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCheckDiseaseAssignsPredictedType(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)
	env.seedDiseaseTypes(t, tomatoTypes...)
	_, plant := env.seedUserPlant(t, "Tom", "Tomato")
	env.disease.probs = []float32{0.1, 0.85, 0.05}

	rec := env.upload(t, fmt.Sprint(plant.ID), "leaf.PNG", pngBytes(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decodeJSON[dto.DiseaseCheckResponse](t, rec)
	assert.Equal(t, uint(2), got.DiseaseTypeID)
	assert.Equal(t, "Tomato - healthy", got.DiseaseName)
	assert.InDelta(t, 0.85, got.Confidence, 1e-6)
	assert.Equal(t, disease.BandHigh, got.ConfidenceBand)
	assert.Equal(t, 1, env.disease.callCount())

	files := uploadedFiles(t, env)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(env.files.Dir(), files[0]), got.ImagePath)
	assert.Contains(t, files[0], "leaf.PNG")

	assert.InDelta(t, 1, testutil.ToFloat64(env.metrics.Inference.DecisionTotal.WithLabelValues(disease.BandHigh, "false")), 0)
}

func TestCheckDiseaseLowConfidenceIsUnknown(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)
	env.seedDiseaseTypes(t, tomatoTypes...)
	_, plant := env.seedUserPlant(t, "Tom", "Tomato")
	env.disease.probs = []float32{0.3, 0.3, 0.4}

	rec := env.upload(t, fmt.Sprint(plant.ID), "leaf.jpg", pngBytes(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decodeJSON[dto.DiseaseCheckResponse](t, rec)
	assert.Equal(t, disease.UnknownDiseaseName, got.DiseaseName)
	assert.Equal(t, disease.BandUnknown, got.ConfidenceBand)

	unknown, err := env.repos.DiseaseTypes.GetByName(context.Background(), disease.UnknownDiseaseName)
	require.NoError(t, err)
	assert.Equal(t, unknown.ID, got.DiseaseTypeID)
}

func TestCheckDiseaseRejectsUnsupportedSpecies(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)
	env.seedDiseaseTypes(t, tomatoTypes...)
	_, plant := env.seedUserPlant(t, "Rosie", "Rose")

	rec := env.upload(t, fmt.Sprint(plant.ID), "leaf.png", pngBytes(t))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t,
		"Disease detection for 'Rose' is not supported yet. Supported types: ['Tomato']",
		decodeJSON[ErrorResponse](t, rec).Message)

	assert.Zero(t, env.disease.callCount(), "model must not run for rejected species")
	assert.Empty(t, uploadedFiles(t, env), "rejected uploads are not stored")
	assert.InDelta(t, 1, testutil.ToFloat64(env.metrics.Inference.SpeciesRejections), 0)
}

func TestCheckDiseaseRequestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		plantID  string
		filename string
		content  func(t *testing.T) []byte
		noModel  bool
		code     int
		message  string
	}{
		{name: "model not loaded", plantID: "1", filename: "a.png", noModel: true,
			code: http.StatusServiceUnavailable, message: msgDiseaseModelNotLoaded},
		{name: "missing file", plantID: "1",
			code: http.StatusBadRequest, message: "file is required"},
		{name: "missing plant id", filename: "a.png",
			code: http.StatusBadRequest, message: "plant_id is required"},
		{name: "unsupported extension", plantID: "1", filename: "leaf.gif",
			code: http.StatusBadRequest, message: msgInvalidFileFormat},
		{name: "unknown plant", plantID: "77", filename: "leaf.png",
			code: http.StatusNotFound, message: "plant not found"},
		{name: "undecodable image", plantID: "1", filename: "leaf.png",
			content: func(*testing.T) []byte { return []byte("definitely not an image") },
			code:    http.StatusBadRequest, message: msgInvalidImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := setupTestController(t)
			env.seedDiseaseTypes(t, tomatoTypes...)
			env.seedUserPlant(t, "Tom", "Tomato")
			if tt.noModel {
				env.c.Models = inference.NewModels(env.growth, nil, testSchema, 8)
			}
			content := pngBytes(t)
			if tt.content != nil {
				content = tt.content(t)
			}

			rec := env.upload(t, tt.plantID, tt.filename, content)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Equal(t, tt.message, decodeJSON[ErrorResponse](t, rec).Message)
			assert.Empty(t, uploadedFiles(t, env))
		})
	}
}

func TestUpdateDiseaseCheck(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)
	env.seedDiseaseTypes(t, tomatoTypes...)
	_, plant := env.seedUserPlant(t, "Tom", "Tomato")

	rec := env.upload(t, fmt.Sprint(plant.ID), "leaf.png", pngBytes(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeJSON[dto.DiseaseCheckResponse](t, rec)
	path := fmt.Sprintf("/api/v2/disease-checks/%d", created.ID)

	rec = env.do(t, http.MethodPatch, path, map[string]int{"disease_type_id": 999})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidDiseaseType, decodeJSON[ErrorResponse](t, rec).Message)

	rec = env.do(t, http.MethodPatch, path, map[string]int{"disease_type_id": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeJSON[dto.DiseaseCheckResponse](t, rec)
	assert.Equal(t, uint(3), got.DiseaseTypeID)
	assert.Equal(t, "Tomato - Late blight", got.DiseaseName)
	assert.InDelta(t, created.Confidence, got.Confidence, 1e-9)
}

func TestDeleteDiseaseCheckRemovesImage(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)
	env.seedDiseaseTypes(t, tomatoTypes...)
	_, plant := env.seedUserPlant(t, "Tom", "Tomato")

	rec := env.upload(t, fmt.Sprint(plant.ID), "leaf.png", pngBytes(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeJSON[dto.DiseaseCheckResponse](t, rec)
	require.Len(t, uploadedFiles(t, env), 1)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v2/plants/%d/disease-checks", plant.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[paged[dto.DiseaseCheckResponse]](t, rec).Data, 1)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v2/disease-checks/%d", created.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, uploadedFiles(t, env))

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v2/disease-checks/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDiseaseTypes(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)
	env.seedDiseaseTypes(t, tomatoTypes...)

	for _, path := range []string{"/api/v2/disease-types", "/api/v2/disease-type"} {
		rec := env.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		page := decodeJSON[paged[dto.DiseaseTypeResponse]](t, rec)
		assert.Equal(t, int64(3), page.Total)
		require.Len(t, page.Data, 3)
		assert.Equal(t, "Tomato - Early blight", page.Data[0].Name)
		assert.Equal(t, "Tomato___Early_blight", page.Data[0].RawName)
	}

	rec := env.do(t, http.MethodGet, "/api/v2/disease-types?limit=1&offset=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeJSON[paged[dto.DiseaseTypeResponse]](t, rec).Data)
}
