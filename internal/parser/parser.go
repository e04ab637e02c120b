package parser

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"washplant-monitor/internal/models"
	"washplant-monitor/internal/window"
)

// Source names accepted by the parser, one per record table.
const (
	SourceLoads     = "loads"
	SourceStatus    = "status"
	SourceDaily     = "daily"
	SourceChemicals = "chemicals"
	SourceAlarms    = "alarms"
)

// Batch holds parsed rows for exactly one source.
type Batch struct {
	Loads     []models.LoadRecord
	Status    []models.StatusRecord
	Daily     []models.DailyRecord
	Chemicals []models.ChemicalRecord
	Alarms    []models.AlarmRecord
}

// Len returns the number of parsed rows regardless of source.
func (b Batch) Len() int {
	return len(b.Loads) + len(b.Status) + len(b.Daily) + len(b.Chemicals) + len(b.Alarms)
}

// Parser handles parsing of raw plant record files
type Parser struct {
	source string
	format string
}

// NewParser creates a new parser for the given source and format
func NewParser(source, format string) *Parser {
	return &Parser{source: source, format: format}
}

// ParseFile parses a record file into a batch. Rows with malformed numeric
// fields are kept with those fields zeroed; only a missing timestamp drops
// the row.
func (p *Parser) ParseFile(filename string) (Batch, error) {
	file, err := os.Open(filename)
	if err != nil {
		return Batch{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(p.format) {
	case "csv":
		return p.parseCSV(file)
	case "json":
		return p.parseJSON(file)
	default:
		return Batch{}, fmt.Errorf("unsupported format: %s", p.format)
	}
}

// parseCSV parses CSV rows of the configured source
func (p *Parser) parseCSV(r io.Reader) (Batch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable fields

	// Read header
	header, err := reader.Read()
	if err != nil {
		return Batch{}, fmt.Errorf("failed to read header: %w", err)
	}

	// Map header indices
	indices := make(map[string]int)
	for i, h := range header {
		indices[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var batch Batch
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return batch, fmt.Errorf("error at line %d: %w", lineNum, err)
		}
		lineNum++

		if err := p.appendRecord(&batch, record, indices); err != nil {
			// Log error but continue parsing
			fmt.Printf("Warning: line %d: %v\n", lineNum, err)
		}
	}

	return batch, nil
}

func (p *Parser) appendRecord(batch *Batch, record []string, indices map[string]int) error {
	getValue := func(key string) string {
		if idx, ok := indices[key]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}
	getFloat := func(key string) float64 {
		v, _ := strconv.ParseFloat(getValue(key), 64)
		return v
	}
	getInt := func(key string) int {
		v, _ := strconv.Atoi(getValue(key))
		return v
	}
	getTime := func(key string) (time.Time, error) {
		s := getValue(key)
		if s == "" {
			return time.Time{}, fmt.Errorf("missing %s", key)
		}
		return window.ParseTimestamp(s)
	}

	switch p.source {
	case SourceLoads:
		ts, err := getTime("timestamp")
		if err != nil {
			return err
		}
		batch.Loads = append(batch.Loads, models.LoadRecord{
			Timestamp: ts,
			ClientID:  int64(getInt("client_id")),
			Kg:        getFloat("kg"),
			WaterM3:   getFloat("water_m3"),
		})
	case SourceStatus:
		ts, err := getTime("timestamp")
		if err != nil {
			return err
		}
		batch.Status = append(batch.Status, models.StatusRecord{
			Timestamp: ts,
			WaterM3:   getFloat("water_m3"),
			Cycles:    getInt("cycles"),
			KgWashed:  getFloat("kg_washed"),
		})
	case SourceDaily:
		ts, err := getTime("timestamp")
		if err != nil {
			return err
		}
		batch.Daily = append(batch.Daily, models.DailyRecord{
			Timestamp:     ts,
			DowntimeMin:   getFloat("downtime_min"),
			ProductionMin: getFloat("production_min"),
			WaterM3:       getFloat("water_m3"),
			Kg:            getFloat("kg"),
			ClientID:      int64(getInt("client_id")),
		})
	case SourceChemicals:
		ts, err := getTime("timestamp")
		if err != nil {
			return err
		}
		batch.Chemicals = append(batch.Chemicals, models.ChemicalRecord{
			Timestamp: ts,
			Q1:        getFloat("q1"),
			Q2:        getFloat("q2"),
			Q3:        getFloat("q3"),
			Q4:        getFloat("q4"),
			Q5:        getFloat("q5"),
			Q6:        getFloat("q6"),
			Q7:        getFloat("q7"),
			Q8:        getFloat("q8"),
			Q9:        getFloat("q9"),
		})
	case SourceAlarms:
		start, err := getTime("start_time")
		if err != nil {
			return err
		}
		a := models.AlarmRecord{
			StartTime: start,
			Tag:       getValue("tag"),
			Message:   getValue("message"),
			Priority:  getInt("priority"),
		}
		if clear := getValue("clear_time"); clear != "" {
			if t, err := window.ParseTimestamp(clear); err == nil {
				a.ClearTime = &t
			}
		}
		if a.Priority == 0 {
			a.Priority = 3
		}
		batch.Alarms = append(batch.Alarms, a)
	default:
		return fmt.Errorf("unsupported source: %s", p.source)
	}
	return nil
}

// parseJSON parses a JSON array of records of the configured source
func (p *Parser) parseJSON(r io.Reader) (Batch, error) {
	decoder := json.NewDecoder(r)
	var batch Batch
	var err error

	switch p.source {
	case SourceLoads:
		err = decoder.Decode(&batch.Loads)
	case SourceStatus:
		err = decoder.Decode(&batch.Status)
	case SourceDaily:
		err = decoder.Decode(&batch.Daily)
	case SourceChemicals:
		err = decoder.Decode(&batch.Chemicals)
	case SourceAlarms:
		err = decoder.Decode(&batch.Alarms)
	default:
		return Batch{}, fmt.Errorf("unsupported source: %s", p.source)
	}
	if err != nil {
		return Batch{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return batch, nil
}

// ValidateLoad validates a load ledger row
func ValidateLoad(r *models.LoadRecord) []string {
	var errors []string

	if r.Timestamp.IsZero() {
		errors = append(errors, "timestamp is required")
	}
	if r.ClientID < 0 {
		errors = append(errors, "client_id cannot be negative")
	}
	if r.Kg < 0 {
		errors = append(errors, "kg cannot be negative")
	}
	if r.WaterM3 < 0 {
		errors = append(errors, "water_m3 cannot be negative")
	}

	return errors
}

// ValidateAlarm validates an alarm occurrence
func ValidateAlarm(r *models.AlarmRecord) []string {
	var errors []string

	if r.StartTime.IsZero() {
		errors = append(errors, "start_time is required")
	}
	if r.ClearTime != nil && r.ClearTime.Before(r.StartTime) {
		errors = append(errors, "clear_time cannot precede start_time")
	}
	if r.Priority < 1 || r.Priority > 5 {
		errors = append(errors, "priority must be between 1 and 5")
	}

	return errors
}
