package cli

import (
	"context"
	"fmt"
	"iter"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	wcmerrors "github.com/matzehuels/wcm/pkg/errors"
	"github.com/matzehuels/wcm/pkg/install"
)

const (
	barWidth      = 30
	visibleErrors = 5
)

var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ProgressModel - install/migrate progress
// =============================================================================

type eventMsg install.Event

type streamDoneMsg struct{}

// ProgressModel is the bubbletea model that renders an install event stream.
type ProgressModel struct {
	Title     string
	Progress  install.Progress
	Errors    []string
	Done      bool
	Cancelled bool
}

// NewProgressModel creates a progress model with the given heading.
func NewProgressModel(title string) ProgressModel {
	return ProgressModel{Title: title}
}

func (m ProgressModel) Init() tea.Cmd {
	return nil
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Cancelled = true
			return m, tea.Quit
		}
	case eventMsg:
		m.Progress = msg.Progress
		if msg.Err != nil {
			m.Errors = append(m.Errors, wcmerrors.UserMessage(msg.Err))
		}
		if msg.Done {
			m.Done = true
			return m, tea.Quit
		}
	case streamDoneMsg:
		m.Done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n\n")
	b.WriteString(renderBar(m.Progress))
	b.WriteString(" ")
	b.WriteString(StyleNumber.Render(fmt.Sprintf("(%d/%d)", m.Progress.Completed, m.Progress.Pending)))
	b.WriteString(" ")
	b.WriteString(StyleValue.Render(m.Progress.Label))
	b.WriteString("\n")

	if n := len(m.Errors); n > 0 {
		b.WriteString("\n")
		start := max(0, n-visibleErrors)
		if start > 0 {
			b.WriteString(StyleDim.Render(fmt.Sprintf("  … %d earlier errors\n", start)))
		}
		for _, e := range m.Errors[start:] {
			b.WriteString(styleIconError.Render(iconError) + " " + StyleDim.Render(e) + "\n")
		}
	}
	if !m.Done {
		b.WriteString("\n" + StyleDim.Render("q quit") + "\n")
	}
	return b.String()
}

func renderBar(p install.Progress) string {
	filled := 0
	if p.Pending > 0 {
		filled = p.Completed * barWidth / p.Pending
	}
	return barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

// =============================================================================
// Stream Rendering
// =============================================================================

// streamResult summarizes a consumed event stream.
type streamResult struct {
	Progress install.Progress
	Errors   []error
}

// Err reports per-node failures as one error.
func (r streamResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("%d error(s), first: %w", len(r.Errors), r.Errors[0])
}

// isTerminal reports whether output goes to an interactive terminal.
func (c *CLI) isTerminal() bool {
	f, ok := c.out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) && os.Getenv("CI") == ""
}

// runStream consumes the stream produced by start, rendering a progress
// bar on terminals and "(completed/pending) label" lines otherwise.
func (c *CLI) runStream(ctx context.Context, title string, plain bool, start func(context.Context) iter.Seq[install.Event]) (streamResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if plain || !c.isTerminal() {
		return c.runLines(start(ctx)), ctx.Err()
	}

	prog := tea.NewProgram(NewProgressModel(title), tea.WithContext(ctx), tea.WithOutput(c.out))

	var (
		res streamResult
		wg  sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range start(ctx) {
			res.Progress = ev.Progress
			if ev.Err != nil {
				res.Errors = append(res.Errors, ev.Err)
			}
			prog.Send(eventMsg(ev))
		}
		prog.Send(streamDoneMsg{})
	}()

	final, err := prog.Run()
	parentErr := ctx.Err()
	cancel()
	wg.Wait()

	m, _ := final.(ProgressModel)
	switch {
	case parentErr != nil:
		return res, parentErr
	case m.Cancelled:
		return res, context.Canceled
	case err != nil:
		return res, fmt.Errorf("progress display: %w", err)
	}
	return res, nil
}

func (c *CLI) runLines(events iter.Seq[install.Event]) streamResult {
	var res streamResult
	for ev := range events {
		res.Progress = ev.Progress
		if ev.Err != nil {
			res.Errors = append(res.Errors, ev.Err)
			c.printWarning("%s", wcmerrors.UserMessage(ev.Err))
			continue
		}
		c.printPlain("(%d/%d) %s", ev.Completed, ev.Pending, ev.Label)
	}
	return res
}
