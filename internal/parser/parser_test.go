package parser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"washplant-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseLoadsCSV(t *testing.T) {
	csv := `timestamp,client_id,kg,water_m3
2024-03-05 08:30:00,7,120.5,1.2
2024-03-05 09:15:00,2,80,0.9
`
	p := NewParser(SourceLoads, "csv")
	batch, err := p.ParseFile(writeTemp(t, "loads.csv", csv))
	require.NoError(t, err)
	require.Len(t, batch.Loads, 2)
	assert.Equal(t, 2, batch.Len())

	first := batch.Loads[0]
	assert.Equal(t, int64(7), first.ClientID)
	assert.Equal(t, 120.5, first.Kg)
	assert.Equal(t, 1.2, first.WaterM3)
	assert.Equal(t, time.Date(2024, 3, 5, 8, 30, 0, 0, time.Local), first.Timestamp)
}

func TestParseCSVMalformedNumericBecomesZero(t *testing.T) {
	csv := `timestamp,client_id,kg,water_m3
2024-03-05 08:30:00,7,not-a-number,1.2
`
	p := NewParser(SourceLoads, "csv")
	batch, err := p.ParseFile(writeTemp(t, "loads.csv", csv))
	require.NoError(t, err)
	require.Len(t, batch.Loads, 1)
	assert.Equal(t, 0.0, batch.Loads[0].Kg)
	assert.Equal(t, 1.2, batch.Loads[0].WaterM3)
}

func TestParseCSVMissingTimestampDropsRow(t *testing.T) {
	csv := `timestamp,client_id,kg,water_m3
,7,120,1.2
2024-03-05 09:15:00,2,80,0.9
`
	p := NewParser(SourceLoads, "csv")
	batch, err := p.ParseFile(writeTemp(t, "loads.csv", csv))
	require.NoError(t, err)
	require.Len(t, batch.Loads, 1)
	assert.Equal(t, int64(2), batch.Loads[0].ClientID)
}

func TestParseStatusCSV(t *testing.T) {
	csv := `timestamp,water_m3,cycles,kg_washed
2024-03-05 22:00:00,4.2,9,450
`
	p := NewParser(SourceStatus, "csv")
	batch, err := p.ParseFile(writeTemp(t, "status.csv", csv))
	require.NoError(t, err)
	require.Len(t, batch.Status, 1)
	assert.Equal(t, 9, batch.Status[0].Cycles)
	assert.Equal(t, 450.0, batch.Status[0].KgWashed)
}

func TestParseAlarmsCSV(t *testing.T) {
	csv := `start_time,clear_time,tag,message,priority
2024-03-05 08:00:00,2024-03-05 08:20:00,PUMP_01_FAULT,pump stalled,1
2024-03-05 09:00:00,,TEMP_HIGH,temperature threshold,
`
	p := NewParser(SourceAlarms, "csv")
	batch, err := p.ParseFile(writeTemp(t, "alarms.csv", csv))
	require.NoError(t, err)
	require.Len(t, batch.Alarms, 2)

	cleared := batch.Alarms[0]
	require.NotNil(t, cleared.ClearTime)
	assert.Equal(t, "PUMP_01_FAULT", cleared.Tag)
	assert.Equal(t, 1, cleared.Priority)

	// Open alarm with no priority defaults to 3.
	open := batch.Alarms[1]
	assert.Nil(t, open.ClearTime)
	assert.Equal(t, 3, open.Priority)
}

func TestParseChemicalsJSON(t *testing.T) {
	jsonData := `[{"timestamp":"2024-03-05T22:00:00Z","q1":900,"q2":50,"q9":25}]`
	p := NewParser(SourceChemicals, "json")
	batch, err := p.ParseFile(writeTemp(t, "chem.json", jsonData))
	require.NoError(t, err)
	require.Len(t, batch.Chemicals, 1)
	assert.Equal(t, 975.0, batch.Chemicals[0].Total())
}

func TestParseDailyCSVWithClient(t *testing.T) {
	csv := `timestamp,downtime_min,production_min,water_m3,kg,client_id
2024-03-05 23:00:00,20,100,3.5,350,4
`
	p := NewParser(SourceDaily, "csv")
	batch, err := p.ParseFile(writeTemp(t, "daily.csv", csv))
	require.NoError(t, err)
	require.Len(t, batch.Daily, 1)
	assert.Equal(t, 100.0, batch.Daily[0].ProductionMin)
	assert.Equal(t, int64(4), batch.Daily[0].ClientID)
}

func TestParseFileUnknownFormat(t *testing.T) {
	p := NewParser(SourceLoads, "xml")
	_, err := p.ParseFile(writeTemp(t, "loads.xml", "<loads/>"))
	assert.Error(t, err)
}

func TestValidateLoad(t *testing.T) {
	good := models.LoadRecord{Timestamp: time.Now(), ClientID: 1, Kg: 50, WaterM3: 0.5}
	assert.Empty(t, ValidateLoad(&good))

	bad := models.LoadRecord{Kg: -5, WaterM3: -1, ClientID: -2}
	errs := ValidateLoad(&bad)
	assert.Len(t, errs, 4)
}

func TestValidateAlarm(t *testing.T) {
	start := time.Now()
	good := models.AlarmRecord{StartTime: start, Tag: "A", Message: "m", Priority: 2}
	assert.Empty(t, ValidateAlarm(&good))

	early := start.Add(-time.Hour)
	bad := models.AlarmRecord{StartTime: start, ClearTime: &early, Priority: 9}
	errs := ValidateAlarm(&bad)
	assert.Len(t, errs, 2)
}
