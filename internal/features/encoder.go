// Package features turns growth observations into the numeric vectors the
// growth model expects.
package features

import (
	"slices"
	"sync"

	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// Column names used by the reference data and the growth model.
const (
	FieldSoilType       = "Soil_Type"
	FieldWaterFrequency = "Water_Frequency"
	FieldFertilizerType = "Fertilizer_Type"
	FieldSunlightHours  = "Sunlight_Hours"
	FieldTemperature    = "Temperature"
	FieldHumidity       = "Humidity"
)

// CategoricalFields lists the one-hot encoded fields in encoding order.
var CategoricalFields = []string{FieldSoilType, FieldWaterFrequency, FieldFertilizerType}

var (
	// ErrSchemaUnavailable is returned when no reference schema was loaded.
	ErrSchemaUnavailable = errors.NewStd("reference columns not loaded")

	// ErrInvalidInput marks observations or reference data that cannot be encoded.
	ErrInvalidInput = errors.NewStd("invalid input")
)

var (
	serviceLogger logger.Logger
	initOnce      sync.Once
)

// GetLogger returns the features module logger.
func GetLogger() logger.Logger {
	initOnce.Do(func() {
		serviceLogger = logger.Global().Module("features")
	})
	return serviceLogger
}

// Observation is one set of growing conditions.
type Observation struct {
	SoilType       string
	WaterFrequency string
	FertilizerType string

	SunlightHours float64
	Temperature   float64
	Humidity      float64

	// Extra carries additional numeric columns by their schema name.
	Extra map[string]float64
}

type categoricalValue struct {
	field string
	value string
}

type continuousValue struct {
	field string
	value float64
}

func (o Observation) categorical() []categoricalValue {
	return []categoricalValue{
		{FieldSoilType, o.SoilType},
		{FieldWaterFrequency, o.WaterFrequency},
		{FieldFertilizerType, o.FertilizerType},
	}
}

func (o Observation) continuous() []continuousValue {
	values := []continuousValue{
		{FieldSunlightHours, o.SunlightHours},
		{FieldTemperature, o.Temperature},
		{FieldHumidity, o.Humidity},
	}
	extra := make([]string, 0, len(o.Extra))
	for name := range o.Extra {
		extra = append(extra, name)
	}
	slices.Sort(extra)
	for _, name := range extra {
		values = append(values, continuousValue{name, o.Extra[name]})
	}
	return values
}

// Vector is an encoded observation laid out in schema order.
type Vector struct {
	Values []float32
	Schema ReferenceSchema
	// Dropped lists encoded columns the schema does not know.
	Dropped []string
}

// Get returns the value of column and whether the schema has it.
func (v Vector) Get(column string) (float32, bool) {
	i, ok := v.Schema.index[column]
	if !ok {
		return 0, false
	}
	return v.Values[i], true
}

func dummyColumn(field, value string) string {
	return field + "_" + value
}

// Encode one-hot encodes the categorical fields, merges the continuous ones
// and reindexes the result against schema. Schema columns the observation
// does not produce are zero; produced columns the schema lacks are dropped.
func Encode(obs Observation, schema ReferenceSchema) (Vector, error) {
	if schema.IsEmpty() {
		return Vector{}, errors.New(ErrSchemaUnavailable).
			Component("features").
			Category(errors.CategorySchema).
			Build()
	}

	vec := Vector{
		Values: make([]float32, schema.Len()),
		Schema: schema,
	}
	log := GetLogger()

	for _, c := range obs.continuous() {
		if i, ok := schema.index[c.field]; ok {
			vec.Values[i] = float32(c.value)
			continue
		}
		vec.Dropped = append(vec.Dropped, c.field)
	}

	for _, c := range obs.categorical() {
		column := dummyColumn(c.field, c.value)
		if i, ok := schema.index[column]; ok {
			vec.Values[i] = 1
			continue
		}
		vec.Dropped = append(vec.Dropped, column)
		if schema.isBaseline(c.field, c.value) {
			continue
		}
		log.Warn("category not seen in reference data, encoding as all zeros",
			logger.String("field", c.field),
			logger.String("value", c.value))
	}

	if len(vec.Dropped) > 0 {
		log.Debug("encoded columns dropped by reindex", logger.Strings("columns", vec.Dropped))
	}
	return vec, nil
}
