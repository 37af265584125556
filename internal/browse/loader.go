package browse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobfeed/internal/model"
)

// ErrCancelled is returned when the user quits before loading finishes.
var ErrCancelled = errors.New("cancelled")

type loadDoneMsg struct {
	listings []model.Listing
	err      error
}

type loaderModel struct {
	label   string
	loadFn  func(ctx context.Context) ([]model.Listing, error)
	spinner spinner.Model
	result  []model.Listing
	err     error
	done    bool
}

func newLoader(label string, loadFn func(ctx context.Context) ([]model.Listing, error)) loaderModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	return loaderModel{label: label, loadFn: loadFn, spinner: s}
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doLoad(), m.spinner.Tick)
}

func (m loaderModel) doLoad() tea.Cmd {
	loadFn := m.loadFn
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		listings, err := loadFn(ctx)
		return loadDoneMsg{listings: listings, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDoneMsg:
		m.result = msg.listings
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s...\n", m.spinner.View(), m.label)
}

// RunLoader shows a spinner while loadFn runs. It renders inline (no alt screen).
func RunLoader(label string, loadFn func(ctx context.Context) ([]model.Listing, error)) ([]model.Listing, error) {
	p := tea.NewProgram(newLoader(label, loadFn))
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
