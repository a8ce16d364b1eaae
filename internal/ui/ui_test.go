package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinnerLifecycle(t *testing.T) {
	var out strings.Builder
	s := NewSpinner("Claiming preview deployment")
	s.SetOutput(func(str string) { out.WriteString(str) })

	assert.Equal(t, SpinnerPending, s.State())

	s.Start()
	assert.Equal(t, SpinnerInProgress, s.State())

	s.Success()
	assert.Equal(t, SpinnerSuccess, s.State())
	assert.Contains(t, out.String(), "Claiming preview deployment")
	assert.Contains(t, out.String(), SymbolComplete)
}

func TestSpinnerFail(t *testing.T) {
	var out strings.Builder
	s := NewSpinner("Pushing code")
	s.SetOutput(func(str string) { out.WriteString(str) })

	s.Start()
	s.Fail()

	assert.Equal(t, SpinnerFailed, s.State())
	assert.Contains(t, out.String(), SymbolFail)
}

func TestSpinnerSkip(t *testing.T) {
	var out strings.Builder
	s := NewSpinner("Push")
	s.SetOutput(func(str string) { out.WriteString(str) })

	s.Start()
	s.Skip()

	assert.Equal(t, SpinnerSkipped, s.State())
	assert.Contains(t, out.String(), SymbolSkipped)
}

func TestSpinnerDoubleStartIsSafe(t *testing.T) {
	s := NewSpinner("test")
	s.SetOutput(func(string) {})

	s.Start()
	s.Start() // second start is a no-op
	s.Success()

	assert.Equal(t, SpinnerSuccess, s.State())
}

func TestSpinnerLabel(t *testing.T) {
	s := NewSpinner("before")
	assert.Equal(t, "before", s.Label())

	s.SetLabel("after")
	assert.Equal(t, "after", s.Label())
}

func TestPhaseDisplayRenderSuccess(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderSuccess("Code pushed", 1234*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, SymbolComplete)
	assert.Contains(t, out, "Code pushed")
	assert.Contains(t, out, "1.2s")
}

func TestPhaseDisplayRenderSkipped(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderSkipped("Push", "dry run")

	out := buf.String()
	assert.Contains(t, out, SymbolSkipped)
	assert.Contains(t, out, "Push")
	assert.Contains(t, out, "(dry run)")
}

func TestPhaseDisplayRenderSkippedWithoutReason(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderSkipped("Codegen", "")

	out := buf.String()
	assert.Contains(t, out, "Codegen")
	assert.NotContains(t, out, "(")
}

func TestPhaseDisplayCommandPrompt(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.CommandPrompt("npm run build")

	assert.Contains(t, buf.String(), "$")
	assert.Contains(t, buf.String(), "npm run build")
}

func TestPhaseDisplayDividers(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.Divider()
	assert.Contains(t, buf.String(), "━")

	buf.Reset()
	pd.ThinDivider()
	assert.Contains(t, buf.String(), "─")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "sub-tenth second", d: 50 * time.Millisecond, want: "0.05s"},
		{name: "fraction of second", d: 300 * time.Millisecond, want: "0.3s"},
		{name: "over a second", d: 1500 * time.Millisecond, want: "1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}

func TestGradientColors(t *testing.T) {
	assert.Len(t, GradientColors, 4)
	for _, color := range GradientColors {
		assert.NotEmpty(t, string(color))
	}
}
