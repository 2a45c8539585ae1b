package ml

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// DefaultSourcePath is the well-known location of the structured training
// source.
const DefaultSourcePath = "data/crop_yield.csv"

// TargetColumn is the label column of the structured training source.
const TargetColumn = "Yield_Tons_Ha"

var sourceColumns = []string{"Region", "Crop", "Soil_Type", "Rainfall_mm", "Temperature_C", "pH", TargetColumn}

// LoadSource reads the tabular training source and returns one record and
// one target yield per row. Column order in the file does not matter; all
// seven columns must be present. Regionally exported datasets are not
// always UTF-8, so non-UTF-8 content is decoded as GB18030 before parsing.
func LoadSource(path string) ([]Record, []float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrDataSourceMissing, path)
		}
		return nil, nil, err
	}
	if !utf8.Valid(raw) {
		decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), simplifiedchinese.GB18030.NewDecoder()))
		if err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", path, err)
		}
		raw = decoded
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s header: %w", path, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range sourceColumns {
		if _, ok := index[col]; !ok {
			return nil, nil, fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	var records []Record
	var targets []float64
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		rainfall, err := parseSourceFloat(row[index["Rainfall_mm"]])
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d Rainfall_mm: %w", path, line, err)
		}
		temperature, err := parseSourceFloat(row[index["Temperature_C"]])
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d Temperature_C: %w", path, line, err)
		}
		ph, err := parseSourceFloat(row[index["pH"]])
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d pH: %w", path, line, err)
		}
		target, err := parseSourceFloat(row[index[TargetColumn]])
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d %s: %w", path, line, TargetColumn, err)
		}

		records = append(records, Record{
			Region:       strings.TrimSpace(row[index["Region"]]),
			Crop:         strings.TrimSpace(row[index["Crop"]]),
			SoilType:     strings.TrimSpace(row[index["Soil_Type"]]),
			RainfallMM:   rainfall,
			TemperatureC: temperature,
			PH:           ph,
		})
		targets = append(targets, target)
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: %s has no data rows", ErrInvalidTrainingSet, path)
	}
	return records, targets, nil
}

func parseSourceFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
