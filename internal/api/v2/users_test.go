package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/plantcare-go/plantcare/internal/api/v2/dto"
)

func TestCreateUser(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)

	rec := env.do(t, http.MethodPost, "/api/v2/users", map[string]string{
		"username": "ada",
		"email":    "ada@example.com",
		"password": "Str0ng!pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	got := decodeJSON[dto.UserResponse](t, rec)
	assert.Equal(t, "ada", got.Username)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.NotZero(t, got.ID)

	stored, err := env.repos.Users.GetByID(context.Background(), got.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng!pass", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("Str0ng!pass")))
}

func TestCreateUserValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{
			name:    "bad email",
			body:    map[string]string{"username": "bob", "email": "bob-at-example", "password": "Str0ng!pass"},
			message: msgInvalidEmail,
		},
		{
			name:    "weak password",
			body:    map[string]string{"username": "bob", "email": "bob@example.com", "password": "weakpass"},
			message: msgWeakPassword,
		},
		{
			name:    "missing username",
			body:    map[string]string{"email": "bob@example.com", "password": "Str0ng!pass"},
			message: "username is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := setupTestController(t)

			rec := env.do(t, http.MethodPost, "/api/v2/users", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decodeJSON[ErrorResponse](t, rec).Message)
		})
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)

	body := map[string]string{"username": "ada", "email": "ada@example.com", "password": "Str0ng!pass"}
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v2/users", body).Code)

	body["email"] = "other@example.com"
	rec := env.do(t, http.MethodPost, "/api/v2/users", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgDuplicateUser, decodeJSON[ErrorResponse](t, rec).Message)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)
	user, plant := env.seedUserPlant(t, "Fern", "")

	rec := env.do(t, http.MethodPatch, "/api/v2/users/1", map[string]string{"email": "new@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeJSON[dto.UserResponse](t, rec)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, user.Username, got.Username)

	rec = env.do(t, http.MethodPatch, "/api/v2/users/1", map[string]string{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v2/users/1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := env.repos.Plants.GetByID(context.Background(), plant.ID)
	assert.Error(t, err, "plants are removed with their owner")

	rec = env.do(t, http.MethodGet, "/api/v2/users/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListUserPlantsFiltersBySpecies(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)
	user, _ := env.seedUserPlant(t, "Tom", "Tomato")
	ctx := context.Background()
	require.NoError(t, env.repos.Plants.Create(ctx, newPlant("Basil One", "Basil", user.ID)))

	rec := env.do(t, http.MethodGet, "/api/v2/users/1/plants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[paged[dto.PlantResponse]](t, rec).Data, 2)

	rec = env.do(t, http.MethodGet, "/api/v2/users/1/plants?species=Basil", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeJSON[paged[dto.PlantResponse]](t, rec)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Basil One", page.Data[0].Name)

	rec = env.do(t, http.MethodGet, "/api/v2/users/42/plants", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidPathID(t *testing.T) {
	t.Parallel()
	env := setupTestController(t)

	rec := env.do(t, http.MethodGet, "/api/v2/users/abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid id", decodeJSON[ErrorResponse](t, rec).Message)
}
