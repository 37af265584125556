package browse

import (
	"fmt"
	"maps"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobfeed/internal/model"
)

// AllSources is the picker entry that selects every listing.
const AllSources = ""

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// SourceCount is one picker entry.
type SourceCount struct {
	Source string
	Count  int
}

// CountBySource returns one entry per source in name order, preceded by an
// AllSources entry covering every listing.
func CountBySource(listings []model.Listing) []SourceCount {
	counts := make(map[string]int)
	for _, l := range listings {
		counts[l.Source]++
	}
	out := []SourceCount{{Source: AllSources, Count: len(listings)}}
	for _, name := range slices.Sorted(maps.Keys(counts)) {
		out = append(out, SourceCount{Source: name, Count: counts[name]})
	}
	return out
}

// FromSource returns the listings of one source; AllSources returns all.
func FromSource(listings []model.Listing, source string) []model.Listing {
	if source == AllSources {
		return listings
	}
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Source == source {
			out = append(out, l)
		}
	}
	return out
}

type pickerModel struct {
	sources []SourceCount
	cursor  int
	chosen  int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.sources)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Browse listings: select a source")
	s += "\n"

	for i, sc := range m.sources {
		name := sc.Source
		if name == AllSources {
			name = "All sources"
		}
		label := fmt.Sprintf("%s (%d)", name, sc.Count)
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// RunSourcePicker shows an interactive source selector. ok is false if the
// user quit.
func RunSourcePicker(sources []SourceCount) (source string, ok bool, err error) {
	m := pickerModel{
		sources: sources,
		chosen:  -1,
	}

	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return "", false, err
	}

	final := result.(pickerModel)
	if final.chosen < 0 {
		return "", false, nil
	}
	return final.sources[final.chosen].Source, true, nil
}
