package features

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// ReferenceSchema is the ordered column layout the growth model was trained on.
// The zero value is an empty schema; Encode rejects it.
type ReferenceSchema struct {
	columns []string
	index   map[string]int
	// baselines holds the value dropped per categorical field when the schema
	// was derived from data. Schemas built from a plain column list leave it nil.
	baselines map[string]string
}

// NewSchema builds a schema from an explicit column list. Duplicate names keep
// their first position.
func NewSchema(columns []string) ReferenceSchema {
	s := ReferenceSchema{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if _, dup := s.index[c]; dup {
			continue
		}
		s.index[c] = len(s.columns)
		s.columns = append(s.columns, c)
	}
	return s
}

// Columns returns a copy of the column names in order.
func (s ReferenceSchema) Columns() []string {
	return slices.Clone(s.columns)
}

// Len returns the number of columns.
func (s ReferenceSchema) Len() int {
	return len(s.columns)
}

// IsEmpty reports whether the schema has no columns.
func (s ReferenceSchema) IsEmpty() bool {
	return len(s.columns) == 0
}

// Contains reports whether column is part of the schema.
func (s ReferenceSchema) Contains(column string) bool {
	_, ok := s.index[column]
	return ok
}

// isBaseline reports whether value is the implicit first category of field,
// the one drop-first encoding leaves without a column.
func (s ReferenceSchema) isBaseline(field, value string) bool {
	if s.baselines != nil {
		base, ok := s.baselines[field]
		return ok && base == value
	}
	prefix := field + "_"
	seen := false
	for _, c := range s.columns {
		if rest, ok := strings.CutPrefix(c, prefix); ok {
			seen = true
			if rest <= value {
				return false
			}
		}
	}
	return seen
}

// BuildSchema derives the schema from historical records the way the model's
// training pipeline did: target column removed, continuous columns first in
// header order, then one column per categorical value, sorted, minus the first.
func BuildSchema(header []string, rows [][]string, target string) (ReferenceSchema, error) {
	header = slices.Clone(header)
	catPos := make(map[string]int, len(CategoricalFields))
	var continuous []int

	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[i] = name
		switch {
		case name == target:
		case slices.Contains(CategoricalFields, name):
			catPos[name] = i
		default:
			continuous = append(continuous, i)
		}
	}
	for _, field := range CategoricalFields {
		if _, ok := catPos[field]; !ok {
			return ReferenceSchema{}, invalidInput(fmt.Errorf("reference data is missing column %q", field))
		}
	}

	for r, row := range rows {
		if len(row) != len(header) {
			return ReferenceSchema{}, invalidInput(fmt.Errorf("row %d has %d fields, want %d", r+2, len(row), len(header)))
		}
		for _, i := range continuous {
			raw := strings.TrimSpace(row[i])
			if raw == "" {
				continue
			}
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				return ReferenceSchema{}, invalidInput(fmt.Errorf("row %d column %q is not numeric: %q", r+2, header[i], raw))
			}
		}
	}

	columns := make([]string, 0, len(continuous)+8)
	for _, i := range continuous {
		columns = append(columns, header[i])
	}

	baselines := make(map[string]string, len(CategoricalFields))
	for _, field := range CategoricalFields {
		values := distinctValues(rows, catPos[field])
		if len(values) == 0 {
			continue
		}
		baselines[field] = values[0]
		for _, v := range values[1:] {
			columns = append(columns, dummyColumn(field, v))
		}
	}

	schema := NewSchema(columns)
	schema.baselines = baselines
	return schema, nil
}

func distinctValues(rows [][]string, col int) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		seen[v] = struct{}{}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	slices.Sort(values)
	return values
}

// LoadSchemaCSV reads the reference CSV at path and builds its schema.
func LoadSchemaCSV(path, target string) (ReferenceSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReferenceSchema{}, errors.New(fmt.Errorf("open reference data: %w", err)).
			Component("features").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return ReferenceSchema{}, errors.New(fmt.Errorf("parse reference data: %w", err)).
			Component("features").
			Category(errors.CategoryFileParsing).
			FileContext(path, 0).
			Build()
	}
	if len(records) == 0 {
		return ReferenceSchema{}, invalidInput(fmt.Errorf("reference data %s is empty", path))
	}

	schema, err := BuildSchema(records[0], records[1:], target)
	if err != nil {
		return ReferenceSchema{}, err
	}
	GetLogger().Info("reference schema loaded",
		logger.String("path", path),
		logger.Int("columns", schema.Len()),
		logger.Int("rows", len(records)-1))
	return schema, nil
}

// ValidateObservation rejects observations with missing categories or
// non-finite measurements.
func ValidateObservation(obs Observation) error {
	for _, c := range obs.categorical() {
		if strings.TrimSpace(c.value) == "" {
			return invalidInput(fmt.Errorf("%s is required", c.field))
		}
	}
	for _, c := range obs.continuous() {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return invalidInput(fmt.Errorf("%s must be a finite number", c.field))
		}
	}
	return nil
}

func invalidInput(err error) error {
	return errors.New(fmt.Errorf("%w: %w", ErrInvalidInput, err)).
		Component("features").
		Category(errors.CategoryValidation).
		Build()
}
