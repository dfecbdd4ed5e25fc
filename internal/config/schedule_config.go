package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Job names understood by the scheduler
const (
	JobImportOrders     = "import_orders"
	JobExportOrderState = "export_order_status"
	JobExportShipments  = "export_shipments"
	JobExportInventory  = "export_inventory"
	JobExportTierPrices = "export_tier_prices"
)

// ScheduleConfig holds the batch schedule for all storefront channels
type ScheduleConfig struct {
	Enabled      bool                 `json:"enabled"`
	RunOnStartup bool                 `json:"run_on_startup"`
	Jobs         map[string]JobConfig `json:"jobs"`
}

// JobConfig holds settings for one recurring job
type JobConfig struct {
	Enabled  bool `json:"enabled"`
	Interval int  `json:"interval"` // minutes
}

// Every returns the job interval, defaulting to 15 minutes
func (j JobConfig) Every() time.Duration {
	if j.Interval <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(j.Interval) * time.Minute
}

// LoadScheduleConfig loads the schedule from SCHEDULE_CONFIG_PATH or environment defaults
func LoadScheduleConfig() (*ScheduleConfig, error) {
	if configPath := os.Getenv("SCHEDULE_CONFIG_PATH"); configPath != "" {
		cfg, err := loadScheduleConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load schedule config %s: %w", configPath, err)
		}
		return cfg, nil
	}
	return getDefaultScheduleConfig(), nil
}

func loadScheduleConfigFromFile(path string) (*ScheduleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := getDefaultScheduleConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getDefaultScheduleConfig() *ScheduleConfig {
	return &ScheduleConfig{
		Enabled:      getBoolEnv("SCHEDULE_ENABLED", true),
		RunOnStartup: getBoolEnv("SCHEDULE_ON_STARTUP", false),
		Jobs: map[string]JobConfig{
			JobImportOrders: {
				Enabled:  getBoolEnv("SCHEDULE_IMPORT_ORDERS", true),
				Interval: getIntEnv("SCHEDULE_IMPORT_ORDERS_INTERVAL", 15),
			},
			JobExportOrderState: {
				Enabled:  getBoolEnv("SCHEDULE_EXPORT_ORDER_STATUS", true),
				Interval: getIntEnv("SCHEDULE_EXPORT_ORDER_STATUS_INTERVAL", 30),
			},
			JobExportShipments: {
				Enabled:  getBoolEnv("SCHEDULE_EXPORT_SHIPMENTS", true),
				Interval: getIntEnv("SCHEDULE_EXPORT_SHIPMENTS_INTERVAL", 30),
			},
			JobExportInventory: {
				Enabled:  getBoolEnv("SCHEDULE_EXPORT_INVENTORY", true),
				Interval: getIntEnv("SCHEDULE_EXPORT_INVENTORY_INTERVAL", 60),
			},
			JobExportTierPrices: {
				Enabled:  getBoolEnv("SCHEDULE_EXPORT_TIER_PRICES", false),
				Interval: getIntEnv("SCHEDULE_EXPORT_TIER_PRICES_INTERVAL", 1440),
			},
		},
	}
}
