package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"foodgram/internal/config"
	"foodgram/internal/db"
	applog "foodgram/internal/log"
	"foodgram/models"
)

var cleanWhitespace = regexp.MustCompile(`\s+`)

var errMissingUnit = errors.New("measurement unit must not be empty")

type ingredientRecord struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type importResult struct {
	Created  int
	Existing int
}

func main() {
	path := "data/ingredients.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	if err := run(context.Background(), path); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("input path must not be empty")
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("locate input: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applog.SetLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	result, err := importFile(ctx, database, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported %d ingredients from %s (%d already present)\n", result.Created, filepath.Base(path), result.Existing)
	return nil
}

// importFile loads every record of a .json or .csv file, creating the
// ingredients that do not exist yet.
func importFile(ctx context.Context, database *gorm.DB, path string) (importResult, error) {
	var result importResult

	data, err := os.ReadFile(path)
	if err != nil {
		return result, fmt.Errorf("read input: %w", err)
	}

	var records []ingredientRecord
	if strings.EqualFold(filepath.Ext(path), ".json") {
		records, err = readJSON(data)
	} else {
		records, err = readCSV(bytes.NewReader(data))
	}
	if err != nil {
		return result, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	for idx, record := range records {
		created := false
		err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing models.Ingredient
			err := tx.Where("name = ? AND measurement_unit = ?", record.Name, record.MeasurementUnit).First(&existing).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("find ingredient %q: %w", record.Name, err)
			}

			ingredient := models.Ingredient{Name: record.Name, MeasurementUnit: record.MeasurementUnit}
			if err := tx.Create(&ingredient).Error; err != nil {
				return fmt.Errorf("create ingredient %q: %w", record.Name, err)
			}
			created = true
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("record %d (%s): %w", idx+1, record.Name, err)
		}
		if created {
			result.Created++
		} else {
			result.Existing++
		}
	}

	applog.Debug(ctx, "ingredient import finished", "created", result.Created, "existing", result.Existing)
	return result, nil
}

// readCSV reads name,unit rows. A leading "name,measurement_unit" header is
// skipped.
func readCSV(r io.Reader) ([]ingredientRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}
	if len(rows[0]) >= 2 && strings.EqualFold(strings.TrimSpace(rows[0][0]), "name") {
		rows = rows[1:]
	}

	records := make([]ingredientRecord, 0, len(rows))
	for idx, row := range rows {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		record := ingredientRecord{Name: row[0]}
		if len(row) > 1 {
			record.MeasurementUnit = row[1]
		}
		record, err := normalizeRecord(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", idx+1, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func readJSON(data []byte) ([]ingredientRecord, error) {
	var raw []ingredientRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	records := make([]ingredientRecord, 0, len(raw))
	for idx, record := range raw {
		record, err := normalizeRecord(record)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", idx+1, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func normalizeRecord(record ingredientRecord) (ingredientRecord, error) {
	record.Name = normalizeText(record.Name)
	record.MeasurementUnit = normalizeText(record.MeasurementUnit)
	if record.Name == "" {
		return record, errors.New("name must not be empty")
	}
	if record.MeasurementUnit == "" {
		return record, fmt.Errorf("%q: %w", record.Name, errMissingUnit)
	}
	return record, nil
}

func normalizeText(value string) string {
	return strings.TrimSpace(cleanWhitespace.ReplaceAllString(value, " "))
}
