package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type spinModel struct {
	spinner   spinner.Model
	message   string
	processed int64
	total     int64
	quitting  bool
}

type spinFinishMsg struct {
	success bool
	message string
}

type spinProgressMsg struct {
	processed int64
	total     int64
}

func initialSpinModel(message string) spinModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	return spinModel{
		spinner: s,
		message: message,
	}
}

func (m spinModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case spinProgressMsg:
		m.processed, m.total = msg.processed, msg.total
		return m, nil
	case spinFinishMsg:
		m.quitting = true
		if msg.success {
			m.message = Success(IconCheck + " " + msg.message)
		} else {
			m.message = ErrorMsg(IconCross + " " + msg.message)
		}
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinModel) View() string {
	if m.quitting {
		if m.message == "" {
			// Clear the line and stay on it (no newline)
			return "\r\033[K"
		}
		return m.message + "\n"
	}
	if m.total > 0 {
		percent := float64(m.processed) / float64(m.total) * 100
		return fmt.Sprintf("%s %s %s", m.spinner.View(), m.message,
			Muted(fmt.Sprintf("%.0f%% of %s", percent, FormatBytes(m.total))))
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.message)
}

// Spinner shows an animated line while a slow step runs. On a
// non-terminal writer it prints plain start and end lines instead.
type Spinner struct {
	out     io.Writer
	tty     bool
	prog    *tea.Program
	done    chan struct{}
	percent int64
}

func NewSpinner(out *os.File) *Spinner {
	return &Spinner{out: out, tty: IsTerminal(out)}
}

func (s *Spinner) Start(message string) {
	if !s.tty {
		fmt.Fprintf(s.out, "%s...\n", message)
		return
	}

	s.prog = tea.NewProgram(initialSpinModel(message), tea.WithOutput(s.out), tea.WithInput(nil))
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.prog.Run()
	}()
}

// Progress updates the processed/total counters shown next to the message.
// Only whole-percent changes are redrawn.
func (s *Spinner) Progress(processed, total int64) {
	if s.prog == nil || total <= 0 {
		return
	}
	percent := processed * 100 / total
	if percent == s.percent && processed < total {
		return
	}
	s.percent = percent
	s.prog.Send(spinProgressMsg{processed: processed, total: total})
}

func (s *Spinner) Stop(success bool, message string) {
	if s.prog == nil {
		icon := IconCheck
		if !success {
			icon = IconCross
		}
		fmt.Fprintf(s.out, "%s %s\n", icon, message)
		return
	}
	s.prog.Send(spinFinishMsg{success: success, message: message})
	<-s.done
}

// WithSpinner runs fn while a spinner with message is shown on out. fn gets
// a callback for reporting byte progress.
func WithSpinner(out *os.File, message string, fn func(progress func(processed, total int64)) error) error {
	s := NewSpinner(out)
	s.Start(message)
	err := fn(s.Progress)
	if err != nil {
		s.Stop(false, err.Error())
		return err
	}
	s.Stop(true, message)
	return nil
}
