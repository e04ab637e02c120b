package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"washplant-monitor/internal/api"
	"washplant-monitor/internal/config"
	"washplant-monitor/internal/db"
	"washplant-monitor/internal/metrics"
	"washplant-monitor/internal/models"
	"washplant-monitor/internal/parser"
	"washplant-monitor/internal/window"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg      *config.Config
	dbPath   string
	database *db.Database
)

func main() {
	cfg = config.Load()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	rootCmd := &cobra.Command{
		Use:   "washplant-monitor",
		Short: "Washplant Monitor - industrial laundry production metrics",
		Long: `A CLI tool for ingesting and analyzing industrial laundry plant data.
Tracks wash loads, cumulative status counters, daily consolidations, chemical
dosing and alarm history in SQLite, with KPI and report access over REST.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", cfg.DBPath, "Path to SQLite database")

	// Add commands
	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(kpisCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(aliasCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initDB initializes database connection
func initDB() error {
	var err error
	database, err = db.New(dbPath)
	return err
}

// parseWindow turns the --start/--end flags into a query window. Blank or
// malformed values fall back to the configured trailing range.
func parseWindow(start, end string) window.Window {
	return window.NormalizeDays(start, end, cfg.DefaultDays)
}

// serverCmd starts the REST API server
func serverCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			engine := metrics.New(database, cfg)
			server := api.NewServer(database, engine, cfg.DefaultDays)
			addr := fmt.Sprintf(":%d", port)

			logrus.WithFields(logrus.Fields{
				"addr": addr,
				"db":   dbPath,
			}).Info("starting API server")

			fmt.Println("Available endpoints:")
			fmt.Println("  GET    /health")
			fmt.Println("  GET    /api/v1/kpis")
			fmt.Println("  GET    /api/v1/report")
			fmt.Println("  GET    /api/v1/charts/production/daily")
			fmt.Println("  GET    /api/v1/charts/production/clients")
			fmt.Println("  GET    /api/v1/charts/efficiency/daily")
			fmt.Println("  GET    /api/v1/charts/water-chemicals/daily")
			fmt.Println("  GET    /api/v1/alarms/top")
			fmt.Println("  GET    /api/v1/alarms/active")
			fmt.Println("  GET    /api/v1/alarms/daily")
			fmt.Println("  GET    /api/v1/alarms/severity")
			fmt.Println("  GET    /api/v1/clients")
			fmt.Println("  GET    /api/v1/aliases")
			fmt.Println("  POST   /api/v1/aliases")
			fmt.Println("  DELETE /api/v1/aliases/{id}")
			fmt.Println("  GET    /api/v1/stats")
			fmt.Println()

			return http.ListenAndServe(addr, server.Router())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", cfg.Port, "Server port")
	return cmd
}

// kpisCmd computes and prints the KPI bundles for a window
func kpisCmd() *cobra.Command {
	var startTime string
	var endTime string
	var clientID int64
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "kpis",
		Short: "Compute dashboard KPIs for a date window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			engine := metrics.New(database, cfg)
			win := parseWindow(startTime, endTime)
			result := engine.Compose(context.Background(), win, clientID)

			if outputFormat == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Printf("KPIs for %s\n", result.PeriodLabel)
			fmt.Printf("  Status day: %s (dashboard day %s)\n\n", result.StatusDate, result.TodayDate)
			printBundle("Today", result.Today)
			printBundle("Period", result.Period)
			printBundle("Alarms", result.Misc)
			return nil
		},
	}

	cmd.Flags().StringVarP(&startTime, "start", "s", "", "Window start date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&endTime, "end", "e", "", "Window end date (YYYY-MM-DD, inclusive)")
	cmd.Flags().Int64VarP(&clientID, "client", "c", 0, "Restrict period KPIs to one client")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	return cmd
}

func printBundle(name string, b models.KPIBundle) {
	fmt.Printf("%s:\n", name)
	for _, key := range bundleOrder {
		if v, ok := b[key]; ok {
			fmt.Printf("  %-22s %s\n", key, v)
		}
	}
	fmt.Println()
}

// bundleOrder keeps CLI output stable across runs.
var bundleOrder = []string{
	"kg_washed", "cycles", "water_liters", "weight_per_cycle", "water_per_kg",
	"chemicals_ml", "chemical_per_kg", "load_kg", "load_count",
	"load_water_liters", "load_water_per_kg", "efficiency_pct", "daily_avg_kg",
	"active_alarms", "period_alarms",
}

// reportCmd builds a full report dataset
func reportCmd() *cobra.Command {
	var startTime string
	var endTime string
	var output string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the multi-table report dataset for a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			engine := metrics.New(database, cfg)
			win := parseWindow(startTime, endTime)

			start := time.Now()
			dataset := engine.BuildReport(context.Background(), win)
			elapsed := time.Since(start)

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("error creating output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(dataset); err != nil {
				return err
			}

			if output != "" {
				fmt.Printf("Report %s written to %s (build time: %v)\n", dataset.ID, output, elapsed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&startTime, "start", "s", "", "Window start date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&endTime, "end", "e", "", "Window end date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the dataset to a JSON file")
	return cmd
}

// ingestCmd ingests plant data files
func ingestCmd() *cobra.Command {
	var source string
	var format string
	var validate bool

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest plant data files into the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			p := parser.NewParser(source, format)
			totalRecords := 0
			totalErrors := 0

			for _, file := range args {
				fmt.Printf("Processing %s...\n", file)
				start := time.Now()

				batch, err := p.ParseFile(file)
				if err != nil {
					fmt.Printf("  Error: %v\n", err)
					totalErrors++
					continue
				}

				if validate {
					var loads []models.LoadRecord
					for i := range batch.Loads {
						if errs := parser.ValidateLoad(&batch.Loads[i]); len(errs) == 0 {
							loads = append(loads, batch.Loads[i])
						} else {
							totalErrors++
						}
					}
					batch.Loads = loads

					var alarms []models.AlarmRecord
					for i := range batch.Alarms {
						if errs := parser.ValidateAlarm(&batch.Alarms[i]); len(errs) == 0 {
							alarms = append(alarms, batch.Alarms[i])
						} else {
							totalErrors++
						}
					}
					batch.Alarms = alarms
				}

				count, err := insertBatch(batch)
				if err != nil {
					fmt.Printf("  Database error: %v\n", err)
					continue
				}

				elapsed := time.Since(start)
				fmt.Printf("  ✓ Inserted %d records in %v (%.0f records/sec)\n",
					count, elapsed, float64(count)/elapsed.Seconds())
				totalRecords += int(count)
			}

			fmt.Printf("\nTotal: %d records ingested", totalRecords)
			if totalErrors > 0 {
				fmt.Printf(", %d errors", totalErrors)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "S", parser.SourceLoads, "Record source (loads, status, daily, chemicals, alarms)")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "File format (csv, json)")
	cmd.Flags().BoolVarP(&validate, "validate", "v", true, "Validate records before inserting")
	return cmd
}

// insertBatch routes a parsed batch to the matching insert path.
func insertBatch(batch parser.Batch) (int64, error) {
	var total int64

	if len(batch.Loads) > 0 {
		n, err := database.InsertLoadBatch(batch.Loads)
		if err != nil {
			return total, err
		}
		total += n
	}
	if len(batch.Status) > 0 {
		n, err := database.InsertStatusBatch(batch.Status)
		if err != nil {
			return total, err
		}
		total += n
	}
	if len(batch.Alarms) > 0 {
		n, err := database.InsertAlarmBatch(batch.Alarms)
		if err != nil {
			return total, err
		}
		total += n
	}
	for i := range batch.Daily {
		if err := database.InsertDailyRecord(&batch.Daily[i]); err != nil {
			return total, err
		}
		total++
	}
	for i := range batch.Chemicals {
		// An all-zero dosing row carries no information; skip it.
		if batch.Chemicals[i].Total() == 0 {
			continue
		}
		if err := database.InsertChemicalRecord(&batch.Chemicals[i]); err != nil {
			return total, err
		}
		total++
	}

	return total, nil
}

// statsCmd shows database statistics
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			stats, err := database.GetStats()
			if err != nil {
				return fmt.Errorf("error getting stats: %w", err)
			}

			fmt.Println("Washplant Monitor Statistics")
			fmt.Println("============================")
			fmt.Printf("  Load Records:      %v\n", stats["load_records"])
			fmt.Printf("  Status Records:    %v\n", stats["status_records"])
			fmt.Printf("  Daily Records:     %v\n", stats["daily_records"])
			fmt.Printf("  Chemical Records:  %v\n", stats["chemical_records"])
			fmt.Printf("  Alarm History:     %v\n", stats["alarm_history"])
			fmt.Printf("  Active Alarms:     %v\n", stats["active_alarms"])
			fmt.Printf("  Client Aliases:    %v\n", stats["client_aliases"])
			fmt.Printf("  Database:          %s\n", dbPath)

			return nil
		},
	}
}

// generateCmd generates a sample week of plant data
func generateCmd() *cobra.Command {
	var days int
	var clientCount int
	var loadsPerDay int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate sample plant data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			start := time.Now()

			// Name a few clients; the rest stay numeric so alias fallback
			// paths get exercised too.
			names := []string{"Grand Hotel", "City Hospital", "Riverside Spa"}
			for i, name := range names {
				if i >= clientCount {
					break
				}
				if err := database.UpsertAlias(context.Background(), int64(i+1), name); err != nil {
					return err
				}
			}

			var loads []models.LoadRecord
			var status []models.StatusRecord
			var alarms []models.AlarmRecord
			alarmTags := []string{"PUMP_01_FAULT", "DOSING_LOW", "TEMP_HIGH", "DOOR_OPEN", "WATER_PRESSURE"}

			for d := days - 1; d >= 0; d-- {
				day := time.Now().AddDate(0, 0, -d)
				midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)

				var dayKg, dayWater float64
				for i := 0; i < loadsPerDay; i++ {
					kg := 40 + rng.Float64()*120
					water := kg * (0.009 + rng.Float64()*0.004)
					dayKg += kg
					dayWater += water
					loads = append(loads, models.LoadRecord{
						Timestamp: midnight.Add(time.Duration(6+i) * time.Hour / 2),
						ClientID:  int64(1 + rng.Intn(clientCount)),
						Kg:        kg,
						WaterM3:   water,
					})
				}

				// Cumulative counters: a few polls per day, the last one
				// carrying the day totals.
				for poll := 1; poll <= 4; poll++ {
					frac := float64(poll) / 4
					status = append(status, models.StatusRecord{
						Timestamp: midnight.Add(time.Duration(poll) * 5 * time.Hour),
						WaterM3:   dayWater * frac,
						Cycles:    int(float64(loadsPerDay) * frac),
						KgWashed:  dayKg * frac,
					})
				}

				production := 300 + rng.Float64()*300
				downtime := rng.Float64() * 90
				daily := models.DailyRecord{
					Timestamp:     midnight.Add(23 * time.Hour),
					DowntimeMin:   downtime,
					ProductionMin: production,
					WaterM3:       dayWater,
					Kg:            dayKg,
				}
				if err := database.InsertDailyRecord(&daily); err != nil {
					return err
				}

				chem := models.ChemicalRecord{
					Timestamp: midnight.Add(22 * time.Hour),
					Q1:        dayKg * 2.1,
					Q2:        dayKg * 1.4,
					Q3:        dayKg * 0.8,
					Q5:        dayKg * 0.3,
				}
				if err := database.InsertChemicalRecord(&chem); err != nil {
					return err
				}

				for i := 0; i < rng.Intn(4); i++ {
					a := models.AlarmRecord{
						StartTime: midnight.Add(time.Duration(8+i*3) * time.Hour),
						Tag:       alarmTags[rng.Intn(len(alarmTags))],
						Message:   "sensor threshold exceeded",
						Priority:  1 + rng.Intn(5),
					}
					// Most alarms clear within the hour; today's last one may
					// stay open.
					if d > 0 || i == 0 {
						clear := a.StartTime.Add(time.Duration(5+rng.Intn(55)) * time.Minute)
						a.ClearTime = &clear
					}
					alarms = append(alarms, a)
				}
			}

			inserted := int64(0)
			if n, err := database.InsertLoadBatch(loads); err != nil {
				return err
			} else {
				inserted += n
			}
			if n, err := database.InsertStatusBatch(status); err != nil {
				return err
			} else {
				inserted += n
			}
			if len(alarms) > 0 {
				if n, err := database.InsertAlarmBatch(alarms); err != nil {
					return err
				} else {
					inserted += n
				}
			}

			elapsed := time.Since(start)
			fmt.Printf("✓ Generated %d days of plant data (%d records) in %v\n",
				days, inserted, elapsed)

			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 7, "Number of days to generate")
	cmd.Flags().IntVarP(&clientCount, "clients", "n", 5, "Number of distinct clients")
	cmd.Flags().IntVarP(&loadsPerDay, "loads", "l", 20, "Wash loads per day")
	return cmd
}

// aliasCmd manages client aliases
func aliasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Client alias management commands",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all client aliases",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			aliases, err := database.ListAliases(context.Background())
			if err != nil {
				return fmt.Errorf("error listing aliases: %w", err)
			}

			if len(aliases) == 0 {
				fmt.Println("No aliases defined. Use 'washplant-monitor alias set' to add one.")
				return nil
			}

			fmt.Printf("%-10s %s\n", "Client", "Display Name")
			for _, a := range aliases {
				fmt.Printf("%-10d %s\n", a.ClientID, a.DisplayName)
			}

			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set [client_id] [name]",
		Short: "Set or replace a client alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil || id <= 0 {
				return fmt.Errorf("invalid client id: %s", args[0])
			}

			if err := database.UpsertAlias(context.Background(), id, args[1]); err != nil {
				return fmt.Errorf("error setting alias: %w", err)
			}

			fmt.Printf("✓ Client %d is now %q\n", id, args[1])
			return nil
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm [client_id]",
		Short: "Remove a client alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil || id <= 0 {
				return fmt.Errorf("invalid client id: %s", args[0])
			}

			if err := database.DeleteAlias(context.Background(), id); err != nil {
				return fmt.Errorf("error removing alias: %w", err)
			}

			fmt.Printf("✓ Alias for client %d removed\n", id)
			return nil
		},
	}

	cmd.AddCommand(listCmd, setCmd, rmCmd)
	return cmd
}
