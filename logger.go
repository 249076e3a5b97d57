package geoblur

import (
	"fmt"
	"strings"

	"github.com/labstack/gommon/log"
)

func newLogger(level log.Lvl) *log.Logger {
	logger := log.New("geoblur")
	logger.SetLevel(level)
	logger.SetHeader("${time_rfc3339} ${level} ${short_file}:${line} -")
	return logger
}

// ParseLevel maps a level name (debug, info, warn, warning, error, off)
// to a logger level.
func ParseLevel(s string) (log.Lvl, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return log.DEBUG, nil
	case "", "INFO":
		return log.INFO, nil
	case "WARN", "WARNING":
		return log.WARN, nil
	case "ERROR", "CRITICAL":
		return log.ERROR, nil
	case "OFF":
		return log.OFF, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// NewLogger returns a logger at the named level.
func NewLogger(level string) (*log.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return newLogger(lvl), nil
}
