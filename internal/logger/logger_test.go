package logger

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		expectLog bool
	}{
		{
			name:      "logs when DEPLOYCTL_DEBUG is set",
			envValue:  "1",
			expectLog: true,
		},
		{
			name:      "logs when DEPLOYCTL_DEBUG is any value",
			envValue:  "true",
			expectLog: true,
		},
		{
			name:      "does not log when DEPLOYCTL_DEBUG is empty",
			envValue:  "",
			expectLog: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Capture log output
			var buf bytes.Buffer
			log.SetOutput(&buf)
			defer log.SetOutput(os.Stderr)

			if tt.envValue != "" {
				t.Setenv("DEPLOYCTL_DEBUG", tt.envValue)
			} else {
				os.Unsetenv("DEPLOYCTL_DEBUG")
			}

			l := NewEnvLogger("[test]")
			l.Debug("test message %s", "arg")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "[test] test message arg")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestEnvLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := NewEnvLogger("[deploy]")

	l.Info("info %d", 1)
	assert.Contains(t, buf.String(), "[deploy] info 1")
	buf.Reset()

	l.Warn("warn %d", 2)
	assert.Contains(t, buf.String(), "[deploy] WARN: warn 2")
	buf.Reset()

	l.Error("error %d", 3)
	assert.Contains(t, buf.String(), "[deploy] ERROR: error 3")
}

func TestNoopLogger(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := Noop()
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")

	assert.Empty(t, buf.String())
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()

	l.Debug("d %s", "1")
	l.Info("i %s", "2")
	l.Warn("w %s", "3")
	l.Error("e %s", "4")

	assert.Len(t, l.Messages, 4)
	assert.True(t, l.HasLevel("debug"))
	assert.True(t, l.HasLevel("info"))
	assert.True(t, l.HasLevel("warn"))
	assert.True(t, l.HasLevel("error"))
	assert.Equal(t, "i 2", l.Messages[1].Message)

	l.Clear()
	assert.Empty(t, l.Messages)
	assert.False(t, l.HasLevel("info"))
}

func TestDefaultLogger(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	buffer := NewBufferLogger()
	SetDefault(buffer)

	Default().Info("hello")
	assert.True(t, buffer.HasLevel("info"))
}
