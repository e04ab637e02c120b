package models

import "time"

// StatusRecord is a single poll of the plant's cumulative daily counters.
// Values grow monotonically within a day and reset at midnight, so readers
// must take the last record of a day, never sum them.
type StatusRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	WaterM3   float64   `json:"water_m3"`
	Cycles    int       `json:"cycles"`
	KgWashed  float64   `json:"kg_washed"`
}

// LoadRecord is one physical wash load. Additive across a window.
type LoadRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ClientID  int64     `json:"client_id"`
	Kg        float64   `json:"kg"`
	WaterM3   float64   `json:"water_m3"`
}

// DailyRecord is the consolidated end-of-day row. Additive across days,
// efficiency must be computed over summed minutes, not per-day ratios.
type DailyRecord struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	DowntimeMin   float64   `json:"downtime_min"`
	ProductionMin float64   `json:"production_min"`
	WaterM3       float64   `json:"water_m3"`
	Kg            float64   `json:"kg"`
	ClientID      int64     `json:"client_id,omitempty"`
}

// ChemicalRecord holds the nine dosing-pump quantities (ml) for one cycle.
type ChemicalRecord struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Q1        float64   `json:"q1"`
	Q2        float64   `json:"q2"`
	Q3        float64   `json:"q3"`
	Q4        float64   `json:"q4"`
	Q5        float64   `json:"q5"`
	Q6        float64   `json:"q6"`
	Q7        float64   `json:"q7"`
	Q8        float64   `json:"q8"`
	Q9        float64   `json:"q9"`
}

// Total sums the nine quantity fields of a single record.
func (c ChemicalRecord) Total() float64 {
	return c.Q1 + c.Q2 + c.Q3 + c.Q4 + c.Q5 + c.Q6 + c.Q7 + c.Q8 + c.Q9
}

// AlarmRecord is one alarm occurrence. An alarm is active while ClearTime
// is nil. Priority runs 1 (critical) to 5 (info).
type AlarmRecord struct {
	ID        int64      `json:"id"`
	StartTime time.Time  `json:"start_time"`
	ClearTime *time.Time `json:"clear_time,omitempty"`
	Tag       string     `json:"tag"`
	Message   string     `json:"message"`
	Priority  int        `json:"priority"`
}

// ClientAlias is a human-readable override for a numeric client id.
type ClientAlias struct {
	ClientID    int64  `json:"client_id"`
	DisplayName string `json:"display_name"`
}

// ClientInfo pairs a client id seen in the load ledger with its display name.
type ClientInfo struct {
	ClientID int64  `json:"client_id"`
	Display  string `json:"display"`
	Aliased  bool   `json:"aliased"`
}

// KPIBundle is the flat metric-name to formatted-value map consumed by
// dashboard cards.
type KPIBundle map[string]string

// KPIResult carries the two bundles produced per call plus shared extras.
type KPIResult struct {
	Today       KPIBundle `json:"today"`
	Period      KPIBundle `json:"period"`
	Misc        KPIBundle `json:"misc"`
	TodayDate   string    `json:"today_date"`
	StatusDate  string    `json:"status_date"`
	PeriodLabel string    `json:"period_label"`
}

// ClientProductionRow is one production_by_client report row.
type ClientProductionRow struct {
	ClientID    int64   `json:"client_id"`
	Client      string  `json:"client"`
	TotalLoads  int     `json:"total_loads"`
	TotalKg     float64 `json:"total_kg"`
	AvgWeightKg float64 `json:"avg_weight_kg"`
}

// DailyProductionRow is one daily_production report row.
type DailyProductionRow struct {
	Day   string  `json:"day"`
	Loads int     `json:"loads"`
	Kg    float64 `json:"kg"`
}

// WaterChemicalsRow merges the daily water and chemical aggregates.
type WaterChemicalsRow struct {
	Day           string  `json:"day"`
	Kg            float64 `json:"kg"`
	Cycles        int     `json:"cycles"`
	WaterLiters   float64 `json:"water_liters"`
	ChemicalsML   float64 `json:"chemicals_ml"`
	WaterPerKg    float64 `json:"water_per_kg"`
	ChemicalPerKg float64 `json:"chemical_per_kg"`
}

// AlarmsDailyRow is one alarms_daily report row.
type AlarmsDailyRow struct {
	Day    string `json:"day"`
	Alarms int    `json:"alarms"`
}

// TopAlarmRow is one grouped (tag, message) occurrence count.
type TopAlarmRow struct {
	Tag      string    `json:"tag"`
	Message  string    `json:"message"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}

// AlarmSeverityRow counts alarms at one priority level.
type AlarmSeverityRow struct {
	Priority int `json:"priority"`
	Count    int `json:"count"`
}

// EfficiencyDailyRow feeds the per-day efficiency chart.
type EfficiencyDailyRow struct {
	Day           string  `json:"day"`
	ProductionMin float64 `json:"production_min"`
	DowntimeMin   float64 `json:"downtime_min"`
	EfficiencyPct float64 `json:"efficiency_pct"`
}

// ReportSummary is the executive summary at the top of a report dataset.
type ReportSummary struct {
	PeriodDays    int     `json:"period_days"`
	ProductionKg  float64 `json:"production_kg"`
	Cycles        int     `json:"cycles"`
	DailyAvgKg    float64 `json:"daily_avg_kg"`
	AvgWeightKg   float64 `json:"avg_weight_kg"`
	WaterLiters   float64 `json:"water_liters"`
	WaterPerKg    float64 `json:"water_per_kg"`
	ChemicalsML   float64 `json:"chemicals_ml"`
	ChemicalPerKg float64 `json:"chemical_per_kg"`
	EfficiencyPct float64 `json:"efficiency_pct"`
	PeriodAlarms  int     `json:"period_alarms"`
	ActiveAlarms  int     `json:"active_alarms"`
}

// ReportDataset is the multi-table bundle consumed by export renderers.
type ReportDataset struct {
	ID                  string                `json:"id"`
	GeneratedAt         time.Time             `json:"generated_at"`
	WindowStart         string                `json:"window_start"`
	WindowEnd           string                `json:"window_end"`
	Summary             ReportSummary         `json:"summary"`
	ProductionByClient  []ClientProductionRow `json:"production_by_client"`
	DailyProduction     []DailyProductionRow  `json:"daily_production"`
	WaterChemicalsDaily []WaterChemicalsRow   `json:"water_chemicals_daily"`
	AlarmsDaily         []AlarmsDailyRow      `json:"alarms_daily"`
}
