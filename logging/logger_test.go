package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerSingleton(t *testing.T) {
	a := NewLogger("test-singleton")
	b := NewLogger("test-singleton")
	assert.Same(t, a, b, "NewLogger should return the same entry per component")
}

func TestNewLoggerComponentField(t *testing.T) {
	entry := NewLogger("test-component")
	assert.Equal(t, "test-component", entry.Data["component"])
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name     string
		config   FormatConfig
		contains []string
		excludes []string
	}{
		{
			name:     "default includes component and timestamp",
			config:   FormatConfig{},
			contains: []string{"INFO", "[bridge]", "hello", "session=agent-1"},
		},
		{
			name:     "simple drops component and timestamp",
			config:   FormatConfig{DisableTimestamp: true, DisableComponent: true},
			contains: []string{"INFO", "hello"},
			excludes: []string{"[bridge]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := logrus.New()
			entry := logger.WithFields(logrus.Fields{
				"component": "bridge",
				"session":   "agent-1",
			})
			entry.Time = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
			entry.Level = logrus.InfoLevel
			entry.Message = "hello"

			f := &TextFormatter{Config: tt.config}
			out, err := f.Format(entry)
			assert.NoError(t, err)

			line := string(out)
			for _, want := range tt.contains {
				assert.Contains(t, line, want)
			}
			for _, not := range tt.excludes {
				assert.NotContains(t, line, not)
			}
			assert.True(t, strings.HasSuffix(line, "\n"))
		})
	}
}

func TestTextFormatterWarnAbbreviation(t *testing.T) {
	logger := logrus.New()
	entry := logrus.NewEntry(logger)
	entry.Level = logrus.WarnLevel
	entry.Message = "careful"

	f := &TextFormatter{Config: FormatConfig{DisableTimestamp: true}}
	out, err := f.Format(entry)
	assert.NoError(t, err)
	assert.True(t, bytes.Contains(out, []byte("WARN ")))
	assert.False(t, bytes.Contains(out, []byte("WARNING")))
}
