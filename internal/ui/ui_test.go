package ui

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autumn/internal/config"
	"autumn/internal/logging"
	"autumn/internal/storage"
	"autumn/internal/task"
)

type memPersister struct {
	stored []task.Task
}

func (m *memPersister) Load() ([]task.Task, error) { return slices.Clone(m.stored), nil }

func (m *memPersister) Save(tasks []task.Task) error {
	m.stored = slices.Clone(tasks)
	return nil
}

type memPrefs map[string]string

func (p memPrefs) Get(key, fallback string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

func (p memPrefs) Set(key, value string) error {
	p[key] = value
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type heldTimer struct{ stopped bool }

func (h *heldTimer) Stop() bool {
	h.stopped = true
	return true
}

type heldTimers struct {
	callbacks []func()
}

func (h *heldTimers) AfterFunc(_ time.Duration, f func()) task.Timer {
	h.callbacks = append(h.callbacks, f)
	return &heldTimer{}
}

var uiNow = time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)

type fixture struct {
	model  Model
	store  *task.Store
	disk   *memPersister
	prefs  memPrefs
	timers *heldTimers
}

func newFixture(t *testing.T, texts ...string) *fixture {
	t.Helper()
	disk := &memPersister{}
	for i, text := range texts {
		disk.stored = append(disk.stored, task.Task{
			ID:        task.ID(string(rune('a' + i))),
			Text:      text,
			Priority:  task.PriorityMedium,
			CreatedAt: uiNow,
		})
	}
	timers := &heldTimers{}
	clock := fixedClock{t: uiNow}
	store := task.NewStore(disk, task.WithTimers(timers), task.WithClock(clock))
	cfg := config.Default()
	cfg.ExportDir = t.TempDir()
	prefs := memPrefs{}
	return &fixture{
		model:  newModel(store, cfg, prefs, logging.Discard(), clock),
		store:  store,
		disk:   disk,
		prefs:  prefs,
		timers: timers,
	}
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+z":
		return tea.KeyMsg{Type: tea.KeyCtrlZ}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func (f *fixture) press(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		next, _ := f.model.Update(key(k))
		m, ok := next.(Model)
		require.True(t, ok)
		f.model = m
	}
}

func taskTexts(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Text
	}
	return out
}

func TestAddThroughForm(t *testing.T) {
	f := newFixture(t)
	f.press(t, "a", "Rake leaves", "enter", "personal", "enter", "high", "enter", "2026-10-20", "enter")

	require.Len(t, f.store.Tasks(), 1)
	added := f.store.Tasks()[0]
	assert.Equal(t, "Rake leaves", added.Text)
	assert.Equal(t, "personal", added.Category)
	assert.Equal(t, task.PriorityHigh, added.Priority)
	assert.Equal(t, task.NewDate(2026, 10, 20), added.DueDate)
	assert.Equal(t, modeList, f.model.mode)
	assert.Equal(t, f.store.Tasks(), f.disk.stored)
}

func TestAddRejectsBadPriority(t *testing.T) {
	f := newFixture(t)
	f.press(t, "a", "Rake", "tab", "tab", "urgent", "tab", "enter")

	assert.Empty(t, f.store.Tasks())
	assert.Equal(t, modeAdd, f.model.mode)
	assert.Contains(t, f.model.status, "invalid priority")
}

func TestAddCancel(t *testing.T) {
	f := newFixture(t)
	f.press(t, "a", "Rake", "esc")
	assert.Empty(t, f.store.Tasks())
	assert.Equal(t, modeList, f.model.mode)
}

func TestToggleReportsCompletion(t *testing.T) {
	f := newFixture(t, "Milk", "Gym")
	f.press(t, "j", " ")

	assert.True(t, f.store.Tasks()[1].Completed)
	assert.Contains(t, f.model.status, "Completed")

	f.press(t, " ")
	assert.False(t, f.store.Tasks()[1].Completed)
	assert.Contains(t, f.model.status, "Reopened")
}

func TestDeleteUndoAndExpiry(t *testing.T) {
	f := newFixture(t, "Milk", "Gym", "Mission")
	f.press(t, "j", "d")
	assert.Equal(t, []string{"Milk", "Mission"}, taskTexts(f.store.Tasks()))
	assert.Contains(t, f.model.View(), `Deleted "Gym"`)

	f.press(t, "ctrl+z")
	assert.Equal(t, []string{"Milk", "Gym", "Mission"}, taskTexts(f.store.Tasks()))
	assert.NotContains(t, f.model.View(), `Deleted "Gym"`)

	f.press(t, "d")
	require.Len(t, f.timers.callbacks, 2)
	next, _ := f.model.Update(timerFiredMsg{run: f.timers.callbacks[1]})
	f.model = next.(Model)

	_, pending := f.store.PendingDeletion()
	assert.False(t, pending)
	f.press(t, "ctrl+z")
	assert.Equal(t, "Nothing to undo", f.model.status)
}

func TestEscDismissesUndo(t *testing.T) {
	f := newFixture(t, "Milk")
	f.press(t, "d", "esc")
	_, pending := f.store.PendingDeletion()
	assert.False(t, pending)
}

func TestEditAndNotes(t *testing.T) {
	f := newFixture(t, "Milk")
	f.press(t, "e")
	assert.Equal(t, modeEdit, f.model.mode)
	f.press(t, " oat", "enter")
	assert.Equal(t, "Milk oat", f.store.Tasks()[0].Text)

	f.press(t, "n", "two litres", "enter")
	assert.Equal(t, "two litres", f.store.Tasks()[0].Notes)
	assert.Contains(t, f.model.View(), "two litres")
}

func TestSearchAndFilter(t *testing.T) {
	f := newFixture(t, "Milk", "Gym", "Mission")
	f.press(t, "j", " ", "k")

	f.press(t, "f")
	assert.Equal(t, task.FilterActive, f.store.Filter())
	f.press(t, "/", "mi")
	assert.Equal(t, "mi", f.store.SearchQuery())
	assert.Equal(t, []string{"Milk", "Mission"}, taskTexts(f.store.FilteredTasks()))

	f.press(t, "enter")
	assert.Equal(t, modeList, f.model.mode)
	assert.Equal(t, "mi", f.store.SearchQuery())

	f.press(t, "/", "esc")
	assert.Equal(t, "", f.store.SearchQuery())
	f.press(t, "f", "f")
	assert.Equal(t, task.FilterAll, f.store.Filter())
}

func TestMoveKeepsCursorOnTask(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	f.press(t, "J", "J")
	assert.Equal(t, []string{"b", "c", "a"}, taskTexts(f.store.Tasks()))
	assert.Equal(t, 2, f.model.cursor)

	f.press(t, "K")
	assert.Equal(t, []string{"b", "a", "c"}, taskTexts(f.store.Tasks()))
	assert.Equal(t, 1, f.model.cursor)
}

func TestBulkActionsNeedConfirmation(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.press(t, "C", "n")
	assert.Equal(t, task.Stats{Total: 2, Pending: 2}, f.store.Stats())

	f.press(t, "C", "y")
	assert.Equal(t, 100, f.store.Stats().Rate)

	f.press(t, "D", "y")
	assert.Empty(t, f.store.Tasks())
	assert.Contains(t, f.model.View(), "No tasks yet")
}

func TestThemeCyclePersists(t *testing.T) {
	f := newFixture(t)
	f.press(t, "t")
	assert.Equal(t, themeDark, f.prefs[storage.ThemeKey])
	f.press(t, "t", "t")
	assert.Equal(t, themeLight, f.prefs[storage.ThemeKey])
}

func TestExportKey(t *testing.T) {
	f := newFixture(t, "Milk")
	f.press(t, "x")
	want := filepath.Join(f.model.cfg.ExportDir, "autumn-tasks-2026-10-14.json")
	assert.FileExists(t, want)
	assert.True(t, strings.HasSuffix(f.model.status, want))
}

func TestHelpOverlay(t *testing.T) {
	f := newFixture(t, "Milk")
	f.press(t, "?")
	assert.Contains(t, f.model.View(), "Keyboard shortcuts")
	f.press(t, "d")
	assert.NotContains(t, f.model.View(), "Keyboard shortcuts")
	assert.Len(t, f.store.Tasks(), 1)
}

func TestStatsLine(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	f.press(t, " ")
	assert.Contains(t, f.model.View(), "Total 3 • Done 1 • Pending 2 • 33% complete")
}

func TestClampCursor(t *testing.T) {
	assert.Equal(t, 0, clampCursor(3, 0))
	assert.Equal(t, 0, clampCursor(-1, 4))
	assert.Equal(t, 3, clampCursor(9, 4))
	assert.Equal(t, 2, wrapIndex(-1, 3))
}
