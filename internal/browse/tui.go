// Package browse is the terminal UI for reading stored listings.
package browse

import (
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobfeed/internal/filter"
	"github.com/amishk599/jobfeed/internal/model"
)

// Lines per listing in the list view (headline + subtitle + blank separator).
const listingItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39")) // bright blue

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240")) // dim gray

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	headlineStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedHeadlineStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(14)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	descDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	descHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	descBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

type browseModel struct {
	all           []model.Listing
	matched       []model.Listing
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=left, 1=right
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view            viewState
	detail          model.Listing
	detailViewport  viewport.Model
	showDescription bool

	// openURL is swapped out in tests.
	openURL func(string)

	wantQuit bool
}

func newBrowseModel(all []model.Listing, f *filter.KeywordFilter) browseModel {
	all = slices.Clone(all)
	sortNewestFirst(all)
	return browseModel{
		all:     all,
		matched: f.Apply(all),
		openURL: openURL,
	}
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m browseModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	// Forward other keys (pgup/pgdn/home/end) to the active viewport.
	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m browseModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if m.detail.URL != "" {
			m.openURL(m.detail.URL)
		}
		return m, nil
	case "r":
		if m.detail.Description != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *browseModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.all)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.matched)-1, 0))
	}
}

func (m *browseModel) ensureCursorVisible() {
	vp := &m.leftViewport
	cursor := m.leftCursor
	if m.activePane == 1 {
		vp = &m.rightViewport
		cursor = m.rightCursor
	}

	cursorTop := cursor * listingItemHeight
	cursorBottom := cursorTop + listingItemHeight - 1

	if cursorTop < vp.YOffset {
		vp.SetYOffset(cursorTop)
	} else if cursorBottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(cursorBottom - vp.Height + 1)
	}
}

func (m browseModel) openDetailView() (tea.Model, tea.Cmd) {
	listings := m.activeListings()
	if len(listings) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.detail = listings[m.activeCursor()]
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *browseModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)

	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}

	m.recalcContent()
}

func (m *browseModel) recalcContent() {
	m.leftViewport.SetContent(renderListings(m.all, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderListings(m.matched, m.rightCursor, m.activePane == 1))
}

func (m browseModel) activeListings() []model.Listing {
	if m.activePane == 0 {
		return m.all
	}
	return m.matched
}

func (m browseModel) activeCursor() int {
	if m.activePane == 0 {
		return m.leftCursor
	}
	return m.rightCursor
}

func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m browseModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" All Listings (%d)", len(m.all))
	rightHeader := fmt.Sprintf(" Matching Filter (%d)", len(m.matched))

	leftHeaderRendered := inactiveHeaderStyle.Render(leftHeader)
	rightHeaderRendered := inactiveHeaderStyle.Render(rightHeader)
	leftBorder := inactiveBorderStyle.Width(paneWidth)
	rightBorder := inactiveBorderStyle.Width(paneWidth)
	if m.activePane == 0 {
		leftHeaderRendered = activeHeaderStyle.Render(leftHeader)
		leftBorder = activeBorderStyle.Width(paneWidth)
	} else {
		rightHeaderRendered = activeHeaderStyle.Render(rightHeader)
		rightBorder = activeBorderStyle.Width(paneWidth)
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderRendered),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderRendered),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Render(m.leftViewport.View()),
		" ",
		rightBorder.Render(m.rightViewport.View()),
	)

	statusText := fmt.Sprintf(" %d total | %d matching | %d filtered out    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		len(m.all), len(m.matched), len(m.all)-len(m.matched))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m browseModel) viewDetail() string {
	title := detailTitleStyle.Render("Listing Details")

	border := activeBorderStyle.Width(m.width - 2)
	content := border.Render(m.detailViewport.View())

	statusText := " o open URL  esc/backspace back  ↑/↓ scroll  q quit"
	if m.detail.Description != "" {
		statusText = " o open URL  r description  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m browseModel) renderDetail() string {
	l := m.detail
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(detailValueStyle.Render(value))
		b.WriteByte('\n')
	}

	addField("Headline", l.Headline)
	addField("Employer", l.Employer)
	addField("Location", filter.LocationText(l.Location))
	addField("Listing ID", fmt.Sprintf("%d", l.ID))
	addField("External ID", l.ExternalID)
	addField("Source", l.Source)

	b.WriteByte('\n')
	addField("Deadline", l.ApplicationDeadline)
	if !l.CreatedAt.IsZero() {
		addField("Stored At", l.CreatedAt.Local().Format("2006-01-02 15:04 MST"))
	}
	addField("URL", l.URL)

	if l.Description != "" {
		wrapWidth := max(m.width-8, 20)
		b.WriteByte('\n')
		if m.showDescription {
			label := "── Description "
			fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
			b.WriteString(descDividerStyle.Render(label+fill) + "\n\n")
			b.WriteString(descBodyStyle.Render(wordWrap(l.Description, wrapWidth)) + "\n")
		} else {
			b.WriteString(descHintStyle.Render("  press r to read the description") + "\n")
		}
	}

	return b.String()
}

func renderListings(listings []model.Listing, cursor int, isActive bool) string {
	if len(listings) == 0 {
		return "  (no listings)"
	}

	var b strings.Builder
	for i, l := range listings {
		titleSt := headlineStyle
		subtitleSt := subtitleStyle
		prefix := "  "
		if isActive && i == cursor {
			titleSt = selectedHeadlineStyle
			subtitleSt = selectedSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(l.Headline))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(subtitle(l)))
		b.WriteByte('\n')

		if i < len(listings)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func subtitle(l model.Listing) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Employer, filter.LocationText(l.Location)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	stored := "n/a"
	if !l.CreatedAt.IsZero() {
		stored = l.CreatedAt.Local().Format("2006-01-02")
	}
	return strings.Join(append(parts, stored), " · ")
}

// sortNewestFirst orders by store time, newest first, falling back to id.
func sortNewestFirst(listings []model.Listing) {
	slices.SortStableFunc(listings, func(a, b model.Listing) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the split-pane browser over listings, with the right pane
// showing the ones f matches. It returns wantQuit=true if the user pressed
// q/ctrl+c, false if they pressed esc to return to the source picker.
func Run(listings []model.Listing, f *filter.KeywordFilter) (bool, error) {
	p := tea.NewProgram(newBrowseModel(listings, f), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	return result.(browseModel).wantQuit, nil
}
