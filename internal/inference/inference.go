// Package inference loads the growth and disease models and runs them.
package inference

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/plantcare-go/plantcare/internal/conf"
	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/features"
	"github.com/plantcare-go/plantcare/internal/logger"
	"github.com/plantcare-go/plantcare/internal/observability/metrics"
)

// ErrModelUnavailable is returned when the requested model was never loaded.
var ErrModelUnavailable = errors.NewStd("model not loaded")

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the inference module logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("inference")
	})
	return serviceLogger
}

// GrowthPredictor maps an encoded observation to a growth milestone.
type GrowthPredictor interface {
	PredictGrowth(ctx context.Context, vec features.Vector) (int, error)
}

// DiseaseClassifier maps an image tensor to class probabilities.
type DiseaseClassifier interface {
	PredictDisease(ctx context.Context, tensor []float32) ([]float32, error)
}

// Recorder receives model metrics. *metrics.InferenceMetrics implements it.
type Recorder interface {
	RecordPrediction(model string, durationSeconds float64, err error)
	RecordModelLoad(model string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordPrediction(string, float64, error) {}
func (nopRecorder) RecordModelLoad(string, error)           {}

// Models is the inference context shared by request handlers. Either model
// may be nil, in which case the matching operations return ErrModelUnavailable.
type Models struct {
	Growth    GrowthPredictor
	Disease   DiseaseClassifier
	Schema    features.ReferenceSchema
	ImageSize int

	recorder Recorder
	closers  []io.Closer
}

// NewModels wraps already constructed models. Used by tests and by Load.
func NewModels(growth GrowthPredictor, disease DiseaseClassifier, schema features.ReferenceSchema, imageSize int) *Models {
	if imageSize <= 0 {
		imageSize = DefaultImageSize
	}
	return &Models{
		Growth:    growth,
		Disease:   disease,
		Schema:    schema,
		ImageSize: imageSize,
		recorder:  nopRecorder{},
	}
}

// SetRecorder installs a metrics recorder.
func (m *Models) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	m.recorder = r
}

// Load reads every configured artifact. Missing or broken artifacts are
// logged and leave the corresponding field empty so the service can still
// serve the CRUD endpoints.
func Load(settings *conf.ModelSettings, recorder Recorder) *Models {
	log := GetLogger()
	models := NewModels(nil, nil, features.ReferenceSchema{}, settings.ImageSize)
	models.SetRecorder(recorder)
	threads := threadCount(settings.Threads)

	if fileExists(settings.GrowthModelPath) {
		gm, err := NewGrowthModel(settings.GrowthModelPath, threads, settings.UseXNNPACK)
		models.recorder.RecordModelLoad(metrics.ModelGrowth, err)
		if err != nil {
			log.Error("growth model failed to load", logger.Error(err))
		} else {
			models.Growth = gm
			models.closers = append(models.closers, gm)
			log.Info("growth model loaded", logger.String("path", settings.GrowthModelPath), logger.Int("threads", threads))
		}

		if fileExists(settings.ReferenceCSV) {
			schema, err := features.LoadSchemaCSV(settings.ReferenceCSV, settings.TargetColumn)
			if err != nil {
				log.Error("reference schema failed to load", logger.Error(err))
			} else {
				models.Schema = schema
			}
		} else {
			log.Warn("reference CSV not found, growth predictions will fail",
				logger.String("path", settings.ReferenceCSV))
		}
	} else {
		log.Warn("growth model not found", logger.String("path", settings.GrowthModelPath))
	}

	if fileExists(settings.DiseaseModelPath) {
		dm, err := NewDiseaseModel(settings.DiseaseModelPath, threads, settings.UseXNNPACK)
		models.recorder.RecordModelLoad(metrics.ModelDisease, err)
		if err != nil {
			log.Error("disease model failed to load", logger.Error(err))
		} else {
			models.Disease = dm
			models.closers = append(models.closers, dm)
			log.Info("disease model loaded", logger.String("path", settings.DiseaseModelPath), logger.Int("threads", threads))
		}
	} else {
		log.Warn("disease model not found", logger.String("path", settings.DiseaseModelPath))
	}

	return models
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Close releases the interpreters.
func (m *Models) Close() error {
	var errs []error
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}

func unavailable(model string) error {
	return errors.New(ErrModelUnavailable).
		Component("inference").
		Category(errors.CategoryUnavailable).
		Context("model", model).
		Build()
}

// CheckGrowth reports whether growth predictions can run: the model first,
// then the reference schema.
func (m *Models) CheckGrowth() error {
	if m == nil || m.Growth == nil {
		return unavailable(metrics.ModelGrowth)
	}
	if m.Schema.IsEmpty() {
		return errors.New(features.ErrSchemaUnavailable).
			Component("inference").
			Category(errors.CategorySchema).
			Build()
	}
	return nil
}

// CheckDisease reports whether disease classification can run.
func (m *Models) CheckDisease() error {
	if m == nil || m.Disease == nil {
		return unavailable(metrics.ModelDisease)
	}
	return nil
}

// PredictGrowth encodes obs against the reference schema and runs the growth model.
func (m *Models) PredictGrowth(ctx context.Context, obs features.Observation) (int, error) {
	if err := m.CheckGrowth(); err != nil {
		return 0, err
	}
	if err := features.ValidateObservation(obs); err != nil {
		return 0, err
	}
	vec, err := features.Encode(obs, m.Schema)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	milestone, err := m.Growth.PredictGrowth(ctx, vec)
	m.recorder.RecordPrediction(metrics.ModelGrowth, time.Since(start).Seconds(), err)
	if err != nil {
		return 0, err
	}
	GetLogger().Debug("growth predicted",
		logger.Int("milestone", milestone),
		logger.Int("dropped_columns", len(vec.Dropped)))
	return milestone, nil
}

// ClassifyImage decodes an image and runs the disease model on it.
func (m *Models) ClassifyImage(ctx context.Context, r io.Reader) ([]float32, error) {
	if err := m.CheckDisease(); err != nil {
		return nil, err
	}
	tensor, err := ImageTensor(r, m.ImageSize)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	probs, err := m.Disease.PredictDisease(ctx, tensor)
	m.recorder.RecordPrediction(metrics.ModelDisease, time.Since(start).Seconds(), err)
	return probs, err
}
