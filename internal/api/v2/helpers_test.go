package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/datastore"
	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/datastore/repository"
	"github.com/plantcare-go/plantcare/internal/disease"
	"github.com/plantcare-go/plantcare/internal/features"
	"github.com/plantcare-go/plantcare/internal/inference"
	"github.com/plantcare-go/plantcare/internal/observability"
	"github.com/plantcare-go/plantcare/internal/uploads"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

// testSchema mirrors a small reference dataset with drop-first dummies.
var testSchema = features.NewSchema([]string{
	features.FieldSunlightHours,
	features.FieldTemperature,
	features.FieldHumidity,
	"Soil_Type_loam",
	"Soil_Type_sandy",
	"Water_Frequency_daily",
	"Fertilizer_Type_organic",
})

type stubGrowth struct {
	mu        sync.Mutex
	milestone int
	err       error
	calls     int
	last      features.Vector
}

func (s *stubGrowth) PredictGrowth(_ context.Context, vec features.Vector) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = vec
	return s.milestone, s.err
}

func (s *stubGrowth) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubClassifier struct {
	mu    sync.Mutex
	probs []float32
	err   error
	calls int
}

func (s *stubClassifier) PredictDisease(_ context.Context, _ []float32) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.probs, s.err
}

func (s *stubClassifier) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type testEnv struct {
	e       *echo.Echo
	c       *Controller
	repos   *repository.Repositories
	growth  *stubGrowth
	disease *stubClassifier
	metrics *observability.Metrics
	files   *uploads.Store
}

// setupTestController wires a controller against an in-memory database,
// stub models and a temporary upload directory.
func setupTestController(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := datastore.Open(ctx, &conf.DatabaseSettings{Type: conf.DatabaseSQLite, TestMode: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	files, err := uploads.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = files.Close() })

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	growth := &stubGrowth{milestone: 1}
	classifier := &stubClassifier{probs: []float32{0.9, 0.05, 0.05}}
	models := inference.NewModels(growth, classifier, testSchema, 8)

	settings := &conf.Settings{}
	settings.Models.Threads = 2

	e := echo.New()
	c, err := New(e, settings, store.Repos, models, disease.NewPolicy(store.Repos.DiseaseTypes, 0), files,
		WithMetrics(m),
		WithPinger(store),
		WithBcryptCost(bcrypt.MinCost),
	)
	require.NoError(t, err)

	return &testEnv{e: e, c: c, repos: store.Repos, growth: growth, disease: classifier, metrics: m, files: files}
}

// do sends a JSON request and returns the recorder.
func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// upload posts a multipart disease check.
func (env *testEnv) upload(t *testing.T, plantID, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if plantID != "" {
		require.NoError(t, w.WriteField("plant_id", plantID))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/check-disease", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) seedUserPlant(t *testing.T, plantName, species string) (*entities.User, *entities.Plant) {
	t.Helper()
	ctx := context.Background()
	user := &entities.User{
		Username: "owner-" + strings.ToLower(plantName),
		Email:    strings.ToLower(plantName) + "@example.com",
		Password: "hash",
	}
	require.NoError(t, env.repos.Users.Create(ctx, user))
	plant := &entities.Plant{Name: plantName, Species: species, UserID: user.ID}
	require.NoError(t, env.repos.Plants.Create(ctx, plant))
	return user, plant
}

func (env *testEnv) seedDiseaseTypes(t *testing.T, names ...string) []entities.DiseaseType {
	t.Helper()
	ctx := context.Background()
	_, err := env.repos.DiseaseTypes.CreateBatch(ctx, names)
	require.NoError(t, err)
	types, err := env.repos.DiseaseTypes.GetAll(ctx)
	require.NoError(t, err)
	return types
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// pngBytes returns a small valid PNG.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.Set(x, y, color.RGBA{R: 40, G: 160, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// paged decodes a paginated list envelope.
type paged[T any] struct {
	Data   []T   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func newPlant(name, species string, userID uint) *entities.Plant {
	return &entities.Plant{Name: name, Species: species, UserID: userID}
}

func defaultListOptions() repository.ListOptions {
	return repository.ListOptions{Limit: DefaultPageLimit}
}
