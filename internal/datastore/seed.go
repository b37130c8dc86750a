package datastore

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/plantcare-go/plantcare/internal/datastore/entities"
	"github.com/plantcare-go/plantcare/internal/datastore/repository"
	"github.com/plantcare-go/plantcare/internal/errors"
	"github.com/plantcare-go/plantcare/internal/logger"
)

// csvDateLayouts are tried in order by ParseCSVDate.
var csvDateLayouts = []string{"2006-01-02", "02/01/2006"}

// ParseCSVDate parses ISO (2006-01-02) or day-first (02/01/2006) dates.
// Empty or unparsable input yields nil. Dates in the future are accepted but logged.
func ParseCSVDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range csvDateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if t.After(time.Now()) {
			GetLogger().Warn("future date detected", logger.String("date", value))
		}
		return &t
	}
	return nil
}

// SeedDiseaseTypes loads disease type names from a CSV with a "name" column.
// Nothing happens when the table already has rows or the file does not exist.
func SeedDiseaseTypes(ctx context.Context, repo repository.DiseaseTypeRepository, path string) (int, error) {
	log := GetLogger()

	count, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Debug("disease types already seeded", logger.Int64("count", count))
		return 0, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		log.Warn("disease types CSV not found, skipping seed", logger.String("path", path))
		return 0, nil
	}
	if err != nil {
		return 0, errors.New(fmt.Errorf("open disease types CSV: %w", err)).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer f.Close()

	rows, header, err := readCSV(f)
	if err != nil {
		return 0, csvError(path, err)
	}
	col, ok := header["name"]
	if !ok {
		return 0, csvError(path, fmt.Errorf("missing %q column", "name"))
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row[col])
	}

	inserted, err := repo.CreateBatch(ctx, names)
	if err != nil {
		return 0, err
	}
	log.Info("seeded disease types", logger.Int("count", inserted), logger.String("path", path))
	return inserted, nil
}

// ImportResult summarizes a growth log import.
type ImportResult struct {
	Imported int
	Skipped  int
}

// growthColumns are the required headers of a growth log import, lowercased.
var growthColumns = []string{
	"plant_id", "soil_type", "sunlight_hours", "water_frequency",
	"fertilizer_type", "temperature", "humidity",
}

// ImportGrowthLogs loads historical growth logs. Optional columns are "date"
// and "growth_milestone". Rows with bad values or unknown plants are skipped.
func ImportGrowthLogs(ctx context.Context, repos *repository.Repositories, r io.Reader) (ImportResult, error) {
	log := GetLogger()
	var result ImportResult

	rows, header, err := readCSV(r)
	if err != nil {
		return result, csvError("growth logs", err)
	}
	for _, name := range growthColumns {
		if _, ok := header[name]; !ok {
			return result, csvError("growth logs", fmt.Errorf("missing %q column", name))
		}
	}

	knownPlants := make(map[uint]bool)
	logs := make([]entities.GrowthLog, 0, len(rows))

	for i, row := range rows {
		entry, err := parseGrowthRow(row, header)
		if err != nil {
			log.Warn("skipping growth log row", logger.Int("row", i+2), logger.Error(err))
			result.Skipped++
			continue
		}

		exists, checked := knownPlants[entry.PlantID]
		if !checked {
			_, getErr := repos.Plants.GetByID(ctx, entry.PlantID)
			if getErr != nil && !errors.Is(getErr, repository.ErrPlantNotFound) {
				return result, getErr
			}
			exists = getErr == nil
			knownPlants[entry.PlantID] = exists
		}
		if !exists {
			log.Warn("skipping growth log for unknown plant",
				logger.Int("row", i+2),
				logger.Uint("plant_id", entry.PlantID))
			result.Skipped++
			continue
		}
		logs = append(logs, entry)
	}

	n, err := repos.GrowthLogs.CreateBatch(ctx, logs)
	if err != nil {
		return result, err
	}
	result.Imported = n
	log.Info("imported growth logs", logger.Int("imported", result.Imported), logger.Int("skipped", result.Skipped))
	return result, nil
}

func parseGrowthRow(row []string, header map[string]int) (entities.GrowthLog, error) {
	var entry entities.GrowthLog

	plantID, err := strconv.ParseUint(strings.TrimSpace(row[header["plant_id"]]), 10, 64)
	if err != nil {
		return entry, fmt.Errorf("plant_id: %w", err)
	}
	entry.PlantID = uint(plantID)
	entry.SoilType = strings.TrimSpace(row[header["soil_type"]])
	entry.WaterFrequency = strings.TrimSpace(row[header["water_frequency"]])
	entry.FertilizerType = strings.TrimSpace(row[header["fertilizer_type"]])

	floats := map[string]*float64{
		"sunlight_hours": &entry.SunlightHours,
		"temperature":    &entry.Temperature,
		"humidity":       &entry.Humidity,
	}
	for name, dst := range floats {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[header[name]]), 64)
		if err != nil {
			return entry, fmt.Errorf("%s: %w", name, err)
		}
		*dst = v
	}

	if idx, ok := header["date"]; ok {
		entry.Date = ParseCSVDate(row[idx])
	}
	if idx, ok := header["growth_milestone"]; ok {
		if raw := strings.TrimSpace(row[idx]); raw != "" {
			m, err := strconv.Atoi(raw)
			if err != nil {
				return entry, fmt.Errorf("growth_milestone: %w", err)
			}
			entry.PredictedMilestone = &m
		}
	}
	return entry, nil
}

// readCSV returns the data rows and a lowercased header index.
func readCSV(r io.Reader) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty file")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	return records[1:], header, nil
}

func csvError(source string, err error) error {
	return errors.New(fmt.Errorf("parse %s CSV: %w", source, err)).
		Component("datastore").
		Category(errors.CategoryFileParsing).
		Build()
}
