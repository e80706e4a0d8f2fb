// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup sets the standard logger's level, format ("text" or "json") and
// output.
func Setup(level, format string, w io.Writer) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("logging: unknown format %q", format)
	}
	logrus.SetLevel(lvl)
	if w != nil {
		logrus.SetOutput(w)
	}
	return nil
}
