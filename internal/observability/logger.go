package observability

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "BRIDGECTL_LOG_LEVEL"
	EnvLogNoColor = "BRIDGECTL_LOG_NOCOLOR"
)

// InitLogger configures the process-wide zerolog logger for one app
// (hostctl, seatctl) and returns it for injection.
func InitLogger(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		NoColor:    os.Getenv(EnvLogNoColor) != "",
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		logger = logger.Level(lvl)
	}
	log.Logger = logger
	return logger
}

func parseLevel(s string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "off", "disabled":
		return zerolog.Disabled, true
	}
	return zerolog.InfoLevel, false
}
