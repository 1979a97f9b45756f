// Package config loads the service configuration from an optional YAML file
// with environment-variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Logs struct {
	Report    string `yaml:"report"`
	Heartbeat string `yaml:"heartbeat"`
	Cleanup   string `yaml:"cleanup"`
	LowStock  string `yaml:"low_stock"`
	Reminders string `yaml:"reminders"`
}

type Limits struct {
	LowStockThreshold int `yaml:"low_stock_threshold"`
	RestockAmount     int `yaml:"restock_amount"`
	InactiveDays      int `yaml:"inactive_days"`
	ReminderDays      int `yaml:"reminder_days"`
}

// Schedules holds the cron expressions consumed by the scheduler. Each entry
// pairs with one job in the serve command's job table.
type Schedules struct {
	Report    string `yaml:"report"`
	Cleanup   string `yaml:"cleanup"`
	Heartbeat string `yaml:"heartbeat"`
	LowStock  string `yaml:"low_stock"`
	Reminders string `yaml:"reminders"`
}

type Config struct {
	ListenAddr  string    `yaml:"listen_addr"`
	GraphQLURL  string    `yaml:"graphql_url"`
	BrokerURL   string    `yaml:"broker_url"`
	ReportQueue string    `yaml:"report_queue"`
	Database    Database  `yaml:"database"`
	Logs        Logs      `yaml:"logs"`
	Limits      Limits    `yaml:"limits"`
	Schedules   Schedules `yaml:"schedules"`
}

func Default() Config {
	return Config{
		ListenAddr:  ":8000",
		GraphQLURL:  "http://localhost:8000/graphql",
		ReportQueue: "crm_reports",
		Database: Database{
			Driver: "sqlite",
			DSN:    "crm.db",
		},
		Logs: Logs{
			Report:    "/tmp/crm_report_log.txt",
			Heartbeat: "/tmp/crm_heartbeat_log.txt",
			Cleanup:   "/tmp/customer_cleanup_log.txt",
			LowStock:  "/tmp/low_stock_updates_log.txt",
			Reminders: "/tmp/order_reminders_log.txt",
		},
		Limits: Limits{
			LowStockThreshold: 10,
			RestockAmount:     10,
			InactiveDays:      365,
			ReminderDays:      7,
		},
		Schedules: Schedules{
			Report:    "0 6 * * 1",
			Cleanup:   "0 2 * * 0",
			Heartbeat: "*/5 * * * *",
			LowStock:  "0 */12 * * *",
			Reminders: "0 8 * * *",
		},
	}
}

// Load merges defaults, the YAML file at path (if any), and environment
// overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"CRM_LISTEN_ADDR": &cfg.ListenAddr,
		"CRM_GRAPHQL_URL": &cfg.GraphQLURL,
		"CRM_BROKER_URL":  &cfg.BrokerURL,
		"CRM_DB_DRIVER":   &cfg.Database.Driver,
		"CRM_DB_DSN":      &cfg.Database.DSN,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
}
