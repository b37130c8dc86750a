package disease

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// Confidence thresholds.
const (
	UnknownThreshold = 0.50
	HighThreshold    = 0.80
)

// Confidence band labels.
const (
	BandHigh    = "High Confidence"
	BandMedium  = "Medium Confidence"
	BandUnknown = "Unknown"
)

var (
	// ErrUnsupportedSpecies is matched by every *UnsupportedSpeciesError.
	ErrUnsupportedSpecies = errors.NewStd("unsupported species")

	// ErrInvalidInput is returned for empty probability vectors.
	ErrInvalidInput = errors.NewStd("invalid input")
)

const typesCacheKey = "disease_types"

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the disease module logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("disease")
	})
	return serviceLogger
}

// UnsupportedSpeciesError rejects a species no known disease type covers.
type UnsupportedSpeciesError struct {
	Species   string
	Supported []string
}

func (e *UnsupportedSpeciesError) Error() string {
	quoted := make([]string, len(e.Supported))
	for i, s := range e.Supported {
		quoted[i] = "'" + s + "'"
	}
	return fmt.Sprintf("Disease detection for '%s' is not supported yet. Supported types: [%s]",
		e.Species, strings.Join(quoted, ", "))
}

// Is lets errors.Is match ErrUnsupportedSpecies.
func (e *UnsupportedSpeciesError) Is(target error) bool {
	return target == ErrUnsupportedSpecies
}

// ErrorCategory implements errors.CategorizedError.
func (e *UnsupportedSpeciesError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryUnsupported
}

// SupportedSpecies returns the sorted, deduplicated species prefixes of the
// given types. Names without a species separator do not contribute.
func SupportedSpecies(types []entities.DiseaseType) []string {
	seen := make(map[string]struct{}, len(types))
	out := make([]string, 0, len(types))
	for _, t := range types {
		species, ok := speciesOf(t.Name)
		if !ok || species == "" {
			continue
		}
		species = Capitalize(species)
		if _, dup := seen[species]; dup {
			continue
		}
		seen[species] = struct{}{}
		out = append(out, species)
	}
	slices.Sort(out)
	return out
}

// CheckSpecies passes empty species and species covered by types.
func CheckSpecies(species string, types []entities.DiseaseType) error {
	if species == "" {
		return nil
	}
	supported := SupportedSpecies(types)
	if _, found := slices.BinarySearch(supported, Capitalize(species)); found {
		return nil
	}
	return &UnsupportedSpeciesError{Species: species, Supported: supported}
}

// Classification is the winning class of a probability vector.
type Classification struct {
	Index      int
	Confidence float64
}

// Classify picks the highest probability. Ties go to the lowest index.
func Classify(probabilities []float32) (Classification, error) {
	if len(probabilities) == 0 {
		return Classification{}, errors.New(fmt.Errorf("%w: empty probability vector", ErrInvalidInput)).
			Component("disease").
			Category(errors.CategoryInference).
			Build()
	}
	best := 0
	for i, p := range probabilities[1:] {
		if p > probabilities[best] {
			best = i + 1
		}
	}
	return Classification{Index: best, Confidence: float64(probabilities[best])}, nil
}

// ConfidenceBand labels a confidence. Exactly 0.80 is Medium.
func ConfidenceBand(confidence float64) string {
	switch {
	case confidence > HighThreshold:
		return BandHigh
	case confidence >= UnknownThreshold:
		return BandMedium
	default:
		return BandUnknown
	}
}

// TypeStore is the slice of the disease type repository the policy needs.
type TypeStore interface {
	GetAll(ctx context.Context) ([]entities.DiseaseType, error)
	GetByID(ctx context.Context, id uint) (*entities.DiseaseType, error)
	GetOrCreate(ctx context.Context, name string) (*entities.DiseaseType, error)
}

// Predictor runs the image model once and returns class probabilities.
type Predictor func(ctx context.Context) ([]float32, error)

// Decision is the disease type assigned to one image.
type Decision struct {
	DiseaseType entities.DiseaseType
	Index       int
	Confidence  float64
	Band        string
	Unknown     bool
}

// Policy applies the species gate and confidence threshold against the
// persisted disease types.
type Policy struct {
	types TypeStore
	cache *cache.Cache
	group singleflight.Group
}

// NewPolicy creates a policy. Known types are cached for ttl; zero disables caching.
func NewPolicy(types TypeStore, ttl time.Duration) *Policy {
	p := &Policy{types: types}
	if ttl > 0 {
		p.cache = cache.New(ttl, 2*ttl)
	}
	return p
}

// KnownTypes returns every disease type in class order.
func (p *Policy) KnownTypes(ctx context.Context) ([]entities.DiseaseType, error) {
	if p.cache != nil {
		if cached, ok := p.cache.Get(typesCacheKey); ok {
			return cached.([]entities.DiseaseType), nil
		}
	}
	types, err := p.types.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		p.cache.SetDefault(typesCacheKey, types)
	}
	return types, nil
}

// InvalidateTypes drops the cached type list.
func (p *Policy) InvalidateTypes() {
	if p.cache != nil {
		p.cache.Delete(typesCacheKey)
	}
}

// Gate rejects species that no known type covers.
func (p *Policy) Gate(ctx context.Context, species string) error {
	if species == "" {
		return nil
	}
	types, err := p.KnownTypes(ctx)
	if err != nil {
		return err
	}
	if err := CheckSpecies(species, types); err != nil {
		GetLogger().Info("species rejected by disease gate", logger.String("species", species))
		return err
	}
	return nil
}

// Decide gates the species, invokes predict once and resolves the winning
// class. predict is not called when the species is rejected.
func (p *Policy) Decide(ctx context.Context, species string, predict Predictor) (Decision, error) {
	if err := p.Gate(ctx, species); err != nil {
		return Decision{}, err
	}
	probabilities, err := predict(ctx)
	if err != nil {
		return Decision{}, err
	}
	class, err := Classify(probabilities)
	if err != nil {
		return Decision{}, err
	}
	return p.Resolve(ctx, class)
}

// Resolve maps a classification to a disease type. Low confidence results get
// the unknown type; otherwise the type with ID index+1, falling back to the
// first known type and then to the unknown type.
func (p *Policy) Resolve(ctx context.Context, class Classification) (Decision, error) {
	log := GetLogger()
	decision := Decision{
		Index:      class.Index,
		Confidence: class.Confidence,
		Band:       ConfidenceBand(class.Confidence),
	}

	if class.Confidence < UnknownThreshold {
		unknown, err := p.UnknownType(ctx)
		if err != nil {
			return Decision{}, err
		}
		decision.DiseaseType = *unknown
		decision.Unknown = true
		return decision, nil
	}

	dt, err := p.types.GetByID(ctx, uint(class.Index)+1)
	switch {
	case err == nil:
		decision.DiseaseType = *dt
		return decision, nil
	case !errors.IsNotFound(err):
		return Decision{}, err
	}

	log.Warn("predicted class has no disease type",
		logger.Int("index", class.Index),
		logger.Float64("confidence", class.Confidence))

	types, err := p.KnownTypes(ctx)
	if err != nil {
		return Decision{}, err
	}
	if len(types) > 0 {
		decision.DiseaseType = types[0]
		return decision, nil
	}

	unknown, err := p.UnknownType(ctx)
	if err != nil {
		return Decision{}, err
	}
	decision.DiseaseType = *unknown
	decision.Unknown = true
	return decision, nil
}

// UnknownType returns the reserved unknown type, creating it on first use.
// Concurrent callers share one lookup.
func (p *Policy) UnknownType(ctx context.Context) (*entities.DiseaseType, error) {
	v, err, _ := p.group.Do(UnknownDiseaseName, func() (any, error) {
		dt, err := p.types.GetOrCreate(ctx, UnknownDiseaseName)
		if err != nil {
			return nil, err
		}
		p.InvalidateTypes()
		return dt, nil
	})
	if err != nil {
		return nil, err
	}
	dt := *v.(*entities.DiseaseType)
	return &dt, nil
}
