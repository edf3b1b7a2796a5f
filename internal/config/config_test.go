package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadHostConfigDefaults(t *testing.T) {
	path := writeFile(t, "host.toml", "")
	cfg, err := LoadHostConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "bridge-ctl" || cfg.Addr != ":2000" || cfg.AdminAddr != ":9000" {
		t.Fatalf("address defaults: %+v", cfg)
	}
	if cfg.Mode != "two-rounds" || cfg.AlertMode != "manual" || cfg.Scoring != "imp" {
		t.Fatalf("session defaults: %+v", cfg)
	}
	if cfg.BoardCount != 16 {
		t.Fatalf("board_count default: %d", cfg.BoardCount)
	}
}

func TestLoadHostConfigOverrides(t *testing.T) {
	path := writeFile(t, "host.toml", `name = "table-one"
mode = "instant-replay"
board_count = 4
seed = 99
north_south = "A"
east_west = "B"
`)
	cfg, err := LoadHostConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "table-one" || cfg.Mode != "instant-replay" {
		t.Fatalf("overrides lost: %+v", cfg)
	}
	if cfg.BoardCount != 4 || cfg.Seed != 99 {
		t.Fatalf("board set: %+v", cfg)
	}
	if cfg.NorthSouth != "A" || cfg.EastWest != "B" {
		t.Fatalf("teams: %+v", cfg)
	}
}

func TestLoadHostConfigRejectsBadValues(t *testing.T) {
	for name, body := range map[string]string{
		"unknown mode":    `mode = "round-robin"`,
		"unknown alert":   `alert_mode = "loud"`,
		"unknown scoring": `scoring = "rubber"`,
		"bad board count": `board_count = -1`,
	} {
		path := writeFile(t, "host.toml", body)
		if _, err := LoadHostConfig(path); err == nil {
			t.Fatalf("%s should fail validation", name)
		}
	}

	for _, mode := range []string{"two-rounds", "instant-replay", "two-tables"} {
		path := writeFile(t, "host.toml", `mode = "`+mode+`"`)
		if _, err := LoadHostConfig(path); err != nil {
			t.Fatalf("mode %q should validate: %v", mode, err)
		}
	}
}

func TestLoadHostConfigMissingFile(t *testing.T) {
	_, err := LoadHostConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil || !strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("missing file: %v", err)
	}
}

func TestLoadSeatConfig(t *testing.T) {
	path := writeFile(t, "seat.toml", `seat = "East"
team = "Precision"
`)
	cfg, err := LoadSeatConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Seat != "East" || cfg.Team != "Precision" {
		t.Fatalf("identity: %+v", cfg)
	}
	if cfg.Addr != "localhost:2000" || cfg.Version != 18 || cfg.AlertMode != "manual" {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestLoadSeatConfigValidation(t *testing.T) {
	for name, body := range map[string]string{
		"missing seat": `team = "A"`,
		"missing team": `seat = "North"`,
		"bad version":  "seat = \"North\"\nteam = \"A\"\nversion = 20\n",
	} {
		path := writeFile(t, "seat.toml", body)
		if _, err := LoadSeatConfig(path); err == nil {
			t.Fatalf("%s should fail validation", name)
		}
	}

	// ws_url alone satisfies the endpoint requirement.
	path := writeFile(t, "seat.toml", "seat = \"North\"\nteam = \"A\"\nws_url = \"ws://localhost:9000/table\"\n")
	cfg, err := LoadSeatConfig(path)
	if err != nil {
		t.Fatalf("ws_url config: %v", err)
	}
	if cfg.Addr != "" || cfg.WSUrl == "" {
		t.Fatalf("endpoint: %+v", cfg)
	}
}

func TestTemplatesRoundTrip(t *testing.T) {
	dir := t.TempDir()

	hostPath := filepath.Join(dir, "host.toml")
	if err := WriteTemplate(hostPath, "host", false); err != nil {
		t.Fatalf("write host template: %v", err)
	}
	if _, err := LoadHostConfig(hostPath); err != nil {
		t.Fatalf("host template should validate: %v", err)
	}

	seatPath := filepath.Join(dir, "seat.toml")
	if err := WriteTemplate(seatPath, "seat", false); err != nil {
		t.Fatalf("write seat template: %v", err)
	}
	if _, err := LoadSeatConfig(seatPath); err != nil {
		t.Fatalf("seat template should validate: %v", err)
	}

	if err := WriteTemplate(hostPath, "host", false); err == nil {
		t.Fatalf("overwrite without force should fail")
	}
	if err := WriteTemplate(hostPath, "host", true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}

	if _, err := Template("router"); err == nil {
		t.Fatalf("unknown kind should fail")
	}
}
