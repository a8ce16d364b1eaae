package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DividerWidth is the default width for divider lines.
const DividerWidth = 64

// PhaseDisplay renders deploy step status to an output writer.
// The same display drives real and dry-run flows so their narration matches.
type PhaseDisplay struct {
	w io.Writer
}

// NewPhaseDisplay creates a new phase display writing to w.
func NewPhaseDisplay(w io.Writer) *PhaseDisplay {
	return &PhaseDisplay{w: w}
}

// RenderSuccess renders a completed step.
// Shows: ● Claimed preview deployment (0.3s)
func (pd *PhaseDisplay) RenderSuccess(name string, duration time.Duration) {
	symbolStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	timingStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	fmt.Fprintf(pd.w, "%s %s %s\n",
		symbolStyle.Render(SymbolComplete),
		name,
		timingStyle.Render(formatDuration(duration)),
	)
}

// RenderInfo renders an informational step line without timing.
// Shows: ● Deploying to https://happy-animal-123.convex.cloud
func (pd *PhaseDisplay) RenderInfo(name string) {
	symbolStyle := lipgloss.NewStyle().Foreground(ColorInfo)
	fmt.Fprintf(pd.w, "%s %s\n", symbolStyle.Render(SymbolComplete), name)
}

// RenderSkipped renders a skipped step.
// Shows: ⊘ Push (dry run)
func (pd *PhaseDisplay) RenderSkipped(name string, reason string) {
	symbolStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	reasonStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	if reason != "" {
		fmt.Fprintf(pd.w, "%s %s %s\n",
			symbolStyle.Render(SymbolSkipped),
			name,
			reasonStyle.Render("("+reason+")"),
		)
	} else {
		fmt.Fprintf(pd.w, "%s %s\n",
			symbolStyle.Render(SymbolSkipped),
			name,
		)
	}
}

// Divider renders a horizontal line to separate steps from command output.
func (pd *PhaseDisplay) Divider() {
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	fmt.Fprintf(pd.w, "\n%s\n\n", style.Render(strings.Repeat("━", DividerWidth)))
}

// ThinDivider renders a thin horizontal line.
func (pd *PhaseDisplay) ThinDivider() {
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	fmt.Fprintf(pd.w, "\n%s\n\n", style.Render(strings.Repeat("─", DividerWidth)))
}

// CommandPrompt renders the command about to be executed.
// Shows: $ npm run build
func (pd *PhaseDisplay) CommandPrompt(cmd string) {
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	fmt.Fprintf(pd.w, "%s %s\n", style.Render("$"), cmd)
}

// Newline writes an empty line.
func (pd *PhaseDisplay) Newline() {
	fmt.Fprintln(pd.w)
}
