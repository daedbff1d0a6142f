package logging

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if err := SetLevel(lvl); err != nil {
			logrus.Warn(err)
		}
	}
}

// SetLevel ...
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("error parsing log level '%s': %w", level, err)
	}
	logrus.SetLevel(lvl)
	return nil
}
