package testlog

import (
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var configureOnce sync.Once

// Start quiets the global logger for tests and tags the test name. The
// BRIDGECTL_LOG_LEVEL override still applies, so a failing run can be
// replayed verbosely.
func Start(t *testing.T) {
	t.Helper()
	configureOnce.Do(func() {
		level := zerolog.WarnLevel
		if lvl, err := zerolog.ParseLevel(os.Getenv("BRIDGECTL_LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
			level = lvl
		}
		log.Logger = log.Logger.Level(level)
	})
	log.Debug().Str("test", t.Name()).Msg("test start")
}
