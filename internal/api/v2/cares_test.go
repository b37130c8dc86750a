package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantcare-go/plantcare/internal/api/v2/dto"
	"github.com/plantcare-go/plantcare/internal/datastore/entities"
)

func TestPlantCareLifecycle(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)
	ctx := context.Background()
	_, plant := env.seedUserPlant(t, "Tom", "Tomato")
	log := &entities.GrowthLog{PlantID: plant.ID, SoilType: "loam"}
	require.NoError(t, env.repos.GrowthLogs.Create(ctx, log))

	rec := env.do(t, http.MethodPost, "/api/v2/plant-cares", map[string]any{
		"plant_id":      plant.ID,
		"medicine_name": "Copper fungicide",
		"notes":         "sprayed lower leaves",
		"growth_log_id": log.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeJSON[dto.PlantCareResponse](t, rec)
	assert.Equal(t, "Copper fungicide", created.MedicineName)
	require.NotNil(t, created.RelatedGrowthLog)
	assert.Equal(t, log.ID, *created.RelatedGrowthLog)
	assert.Nil(t, created.RelatedDiseaseCheck)
	assert.False(t, created.AppliedAt.IsZero())

	path := fmt.Sprintf("/api/v2/plant-cares/%d", created.ID)
	rec = env.do(t, http.MethodPatch, path, map[string]string{"notes": "repeat in a week"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeJSON[dto.PlantCareResponse](t, rec)
	assert.Equal(t, "repeat in a week", updated.Notes)
	assert.Equal(t, "Copper fungicide", updated.MedicineName)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v2/plants/%d/cares", plant.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeJSON[paged[dto.PlantCareResponse]](t, rec)
	require.Len(t, history.Data, 1)
	assert.Equal(t, created.ID, history.Data[0].ID)

	rec = env.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePlantCareErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    map[string]any
		code    int
		message string
	}{
		{
			name:    "missing medicine",
			body:    map[string]any{"plant_id": 1},
			code:    http.StatusBadRequest,
			message: "medicine_name is required",
		},
		{
			name:    "unknown plant",
			body:    map[string]any{"plant_id": 9, "medicine_name": "Neem oil"},
			code:    http.StatusNotFound,
			message: "plant not found",
		},
		{
			name:    "unknown growth log",
			body:    map[string]any{"plant_id": 1, "medicine_name": "Neem oil", "growth_log_id": 5},
			code:    http.StatusBadRequest,
			message: "invalid growth log id",
		},
		{
			name:    "unknown disease check",
			body:    map[string]any{"plant_id": 1, "medicine_name": "Neem oil", "disease_check_id": 5},
			code:    http.StatusBadRequest,
			message: "invalid disease check id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := setupTestController(t)
			env.seedUserPlant(t, "Tom", "Tomato")

			rec := env.do(t, http.MethodPost, "/api/v2/plant-cares", tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Equal(t, tt.message, decodeJSON[ErrorResponse](t, rec).Message)
		})
	}
}

func TestPlantCareHistoryUnknownPlant(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)

	rec := env.do(t, http.MethodGet, "/api/v2/plants/5/cares", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
