package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

type unlockDoneMsg struct {
	err error
}

type unlockSpinnerModel struct {
	spinner spinner.Model
	label   string
	derive  tea.Cmd
	err     error
	done    bool
}

func newUnlockSpinnerModel(label string, derive tea.Cmd) unlockSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return unlockSpinnerModel{
		spinner: s,
		label:   label,
		derive:  derive,
	}
}

func (m unlockSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.derive)
}

func (m unlockSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case unlockDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m unlockSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// unlockWithSpinner shows a spinner on output while derive runs. Without a
// terminal it just runs derive.
func unlockWithSpinner(output io.Writer) func(context.Context, func(context.Context) error) error {
	return func(ctx context.Context, derive func(context.Context) error) error {
		file, ok := output.(*os.File)
		if !ok || !term.IsTerminal(int(file.Fd())) {
			return derive(ctx)
		}
		return runUnlockSpinner(ctx, output, derive)
	}
}

func runUnlockSpinner(ctx context.Context, output io.Writer, derive func(context.Context) error) error {
	deriveCmd := func() tea.Msg {
		return unlockDoneMsg{err: derive(ctx)}
	}

	p := tea.NewProgram(
		newUnlockSpinnerModel("Unlocking session store...", deriveCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(unlockSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
