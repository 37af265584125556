package browse

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/jobfeed/internal/filter"
	"github.com/amishk599/jobfeed/internal/model"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sample() []model.Listing {
	day := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return []model.Listing{
		{ID: 1, Headline: "Rörmokare", Source: "af", URL: "https://example.com/1", Location: json.RawMessage(`{"municipality":"Stockholm"}`), CreatedAt: day},
		{ID: 2, Headline: "Elektriker", Source: "careerjet", Employer: "El AB", CreatedAt: day.Add(time.Hour)},
		{ID: 3, Headline: "VVS-montör", Source: "af", Description: "Montera värme och sanitet.", CreatedAt: day.Add(time.Hour)},
	}
}

func TestCountBySource(t *testing.T) {
	got := CountBySource(sample())
	want := []SourceCount{{AllSources, 3}, {"af", 2}, {"careerjet", 1}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFromSource(t *testing.T) {
	if got := FromSource(sample(), AllSources); len(got) != 3 {
		t.Errorf("all sources: got %d listings, want 3", len(got))
	}
	got := FromSource(sample(), "af")
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("af: got %+v", got)
	}
}

func TestSortNewestFirst(t *testing.T) {
	ls := sample()
	sortNewestFirst(ls)
	ids := []int64{ls[0].ID, ls[1].ID, ls[2].ID}
	if ids[0] != 3 || ids[1] != 2 || ids[2] != 1 {
		t.Errorf("order = %v, want [3 2 1]", ids)
	}
}

func update(t *testing.T, m browseModel, msg tea.Msg) browseModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(browseModel)
}

func TestBrowseModel_Navigation(t *testing.T) {
	m := newBrowseModel(sample(), filter.NewKeywordFilter(nil, []string{"stockholm"}))
	var opened []string
	m.openURL = func(u string) { opened = append(opened, u) }

	if m.View() != "Initializing..." {
		t.Errorf("expected placeholder before the first size message")
	}
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	if len(m.all) != 3 || len(m.matched) != 1 {
		t.Fatalf("all=%d matched=%d, want 3 and 1", len(m.all), len(m.matched))
	}
	if !strings.Contains(m.View(), "All Listings (3)") {
		t.Errorf("list view missing header:\n%s", m.View())
	}

	// Newest first: 3, 2, 1. Move to the last entry and open it.
	m = update(t, m, key("j"))
	m = update(t, m, key("j"))
	m = update(t, m, key("j"))
	if m.leftCursor != 2 {
		t.Errorf("leftCursor = %d, want 2 (clamped)", m.leftCursor)
	}
	m = update(t, m, key("enter"))
	if m.view != viewDetail || m.detail.ID != 1 {
		t.Fatalf("expected detail view of listing 1, got view=%d id=%d", m.view, m.detail.ID)
	}
	if !strings.Contains(m.renderDetail(), "Stockholm") {
		t.Errorf("detail missing location:\n%s", m.renderDetail())
	}

	m = update(t, m, key("o"))
	if len(opened) != 1 || opened[0] != "https://example.com/1" {
		t.Errorf("opened = %v", opened)
	}

	m = update(t, m, key("esc"))
	if m.view != viewList {
		t.Errorf("esc should return to the list")
	}

	m = update(t, m, key("tab"))
	if m.activePane != 1 {
		t.Errorf("tab should switch to the filtered pane")
	}
	m = update(t, m, key("enter"))
	if m.detail.ID != 1 {
		t.Errorf("filtered pane detail id = %d, want 1", m.detail.ID)
	}
}

func TestBrowseModel_DescriptionToggle(t *testing.T) {
	m := newBrowseModel(sample(), filter.NewKeywordFilter(nil, nil))
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = update(t, m, key("enter")) // newest first: listing 3 has a description

	if strings.Contains(m.renderDetail(), "Montera värme") {
		t.Error("description should be hidden until toggled")
	}
	m = update(t, m, key("r"))
	if !strings.Contains(m.renderDetail(), "Montera värme") {
		t.Error("description should show after r")
	}
}

func TestBrowseModel_Quit(t *testing.T) {
	m := newBrowseModel(nil, filter.NewKeywordFilter(nil, nil))
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = update(t, m, key("enter"))
	if m.view != viewList {
		t.Error("enter on an empty list should not open a detail view")
	}

	back := update(t, m, key("esc"))
	if back.wantQuit {
		t.Error("esc should return to the picker, not quit")
	}
	quit := update(t, m, key("q"))
	if !quit.wantQuit {
		t.Error("q should quit")
	}
}

func TestPickerModel(t *testing.T) {
	m := pickerModel{sources: CountBySource(sample()), chosen: -1}
	next, _ := m.Update(key("down"))
	m = next.(pickerModel)
	next, _ = m.Update(key("enter"))
	m = next.(pickerModel)
	if m.chosen != 1 || m.sources[m.chosen].Source != "af" {
		t.Errorf("chosen = %d, want af", m.chosen)
	}
	if !strings.Contains(m.View(), "All sources (3)") {
		t.Errorf("picker view:\n%s", m.View())
	}

	next, _ = m.Update(key("q"))
	if next.(pickerModel).chosen != -2 {
		t.Error("q should mark the picker as quit")
	}
}

func TestLoaderModel(t *testing.T) {
	load := func(context.Context) ([]model.Listing, error) { return sample(), nil }
	m := newLoader("Loading listings", load)
	if !strings.Contains(m.View(), "Loading listings") {
		t.Errorf("loader view: %q", m.View())
	}

	msg := m.doLoad()()
	next, _ := m.Update(msg)
	done := next.(loaderModel)
	if !done.done || len(done.result) != 3 || done.err != nil {
		t.Errorf("loader result: done=%v n=%d err=%v", done.done, len(done.result), done.err)
	}

	next, _ = m.Update(key("ctrl+c"))
	if !errors.Is(next.(loaderModel).err, ErrCancelled) {
		t.Errorf("ctrl+c err = %v, want ErrCancelled", next.(loaderModel).err)
	}
}
