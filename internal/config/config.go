package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type HostConfig struct {
	Name        string   `toml:"name"`
	Addr        string   `toml:"addr"`
	AdminAddr   string   `toml:"admin_addr"`
	CorsOrigins []string `toml:"cors_origins"`
	Mode        string   `toml:"mode"`
	AlertMode   string   `toml:"alert_mode"`
	Scoring     string   `toml:"scoring"`
	BoardCount  int      `toml:"board_count"`
	Seed        int64    `toml:"seed"`
	NorthSouth  string   `toml:"north_south"`
	EastWest    string   `toml:"east_west"`
}

type SeatConfig struct {
	Seat       string `toml:"seat"`
	Team       string `toml:"team"`
	Addr       string `toml:"addr"`
	WSUrl      string `toml:"ws_url"`
	Version    int    `toml:"version"`
	SystemInfo string `toml:"system_info"`
	AlertMode  string `toml:"alert_mode"`
}

func LoadHostConfig(path string) (HostConfig, error) {
	var cfg HostConfig
	if err := loadToml(path, &cfg); err != nil {
		return HostConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "bridge-ctl"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":2000"
	}
	if cfg.AdminAddr == "" {
		cfg.AdminAddr = ":9000"
	}
	if cfg.Mode == "" {
		cfg.Mode = "two-rounds"
	}
	if cfg.AlertMode == "" {
		cfg.AlertMode = "manual"
	}
	if cfg.Scoring == "" {
		cfg.Scoring = "imp"
	}
	if cfg.BoardCount == 0 {
		cfg.BoardCount = 16
	}
	if err := ValidateHostConfig(cfg); err != nil {
		return HostConfig{}, err
	}
	return cfg, nil
}

func LoadSeatConfig(path string) (SeatConfig, error) {
	var cfg SeatConfig
	if err := loadToml(path, &cfg); err != nil {
		return SeatConfig{}, err
	}
	if cfg.Addr == "" && cfg.WSUrl == "" {
		cfg.Addr = "localhost:2000"
	}
	if cfg.Version == 0 {
		cfg.Version = 18
	}
	if cfg.SystemInfo == "" {
		cfg.SystemInfo = "bridgectl 0.0.1"
	}
	if cfg.AlertMode == "" {
		cfg.AlertMode = "manual"
	}
	if err := ValidateSeatConfig(cfg); err != nil {
		return SeatConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateHostConfig(cfg HostConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("host config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("host config missing addr")
	}
	switch cfg.Mode {
	case "two-rounds", "instant-replay", "two-tables":
	default:
		return fmt.Errorf("host config mode %q unknown", cfg.Mode)
	}
	if err := validateAlertMode(cfg.AlertMode); err != nil {
		return fmt.Errorf("host config: %w", err)
	}
	switch cfg.Scoring {
	case "imp", "matchpoints":
	default:
		return fmt.Errorf("host config scoring %q unknown", cfg.Scoring)
	}
	if cfg.BoardCount < 1 {
		return fmt.Errorf("host config board_count must be positive")
	}
	return nil
}

func ValidateSeatConfig(cfg SeatConfig) error {
	if strings.TrimSpace(cfg.Seat) == "" {
		return fmt.Errorf("seat config missing seat")
	}
	if strings.TrimSpace(cfg.Team) == "" {
		return fmt.Errorf("seat config missing team")
	}
	if strings.TrimSpace(cfg.Addr) == "" && strings.TrimSpace(cfg.WSUrl) == "" {
		return fmt.Errorf("seat config needs addr or ws_url")
	}
	if cfg.Version != 18 && cfg.Version != 19 {
		return fmt.Errorf("seat config version %d unsupported", cfg.Version)
	}
	return validateAlertMode(cfg.AlertMode)
}

func validateAlertMode(mode string) error {
	switch mode {
	case "none", "manual", "self-explaining":
		return nil
	}
	return fmt.Errorf("alert_mode %q unknown", mode)
}
