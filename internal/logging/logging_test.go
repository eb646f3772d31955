package logging

import (
	"bytes"
	"testing"

	"report_wrapper/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewWithOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.Config{Logging: config.Logging{Level: "debug", Format: "json"}}, &buf)

	logger.WithField("template", "employees").Debug("compiled")

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), `"template":"employees"`)
}

func TestNewWithOutputFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput(config.Config{Logging: config.Logging{Level: "loud"}}, &buf)

	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.Contains(t, buf.String(), "используется info")
}
