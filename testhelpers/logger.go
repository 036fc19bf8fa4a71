package testhelpers

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logger that discards everything below warnings.
func NewLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.WarnLevel)

	return logger
}
