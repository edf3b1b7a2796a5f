package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "host":
		return hostTemplate, nil
	case "seat":
		return seatTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const hostTemplate = `name = "bridge-ctl"
addr = ":2000"
admin_addr = ":9000"
cors_origins = ["http://localhost:3000"]
mode = "two-rounds"
alert_mode = "manual"
scoring = "imp"
board_count = 16
seed = 1
north_south = "Acol"
east_west = "Precision"
`

const seatTemplate = `seat = "North"
team = "Acol"
addr = "localhost:2000"
version = 18
system_info = "bridgectl 0.0.1"
alert_mode = "manual"
`
