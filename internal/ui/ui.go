package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"autumn/internal/config"
	"autumn/internal/export"
	"autumn/internal/storage"
	"autumn/internal/task"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeNotes
	modeSearch
	modeConfirm
)

type bulkAction int

const (
	bulkCompleteAll bulkAction = iota
	bulkDeleteAll
)

// Prefs stores small UI preferences between runs.
type Prefs interface {
	Get(key, fallback string) string
	Set(key, value string) error
}

type addForm struct {
	text     string
	category string
	priority string
	due      string
	index    int
}

type Model struct {
	store    *task.Store
	cfg      config.Config
	prefs    Prefs
	logger   *log.Logger
	clock    task.Clock
	cursor   int
	mode     mode
	input    textinput.Model
	status   string
	form     *addForm
	editID   task.ID
	bulk     bulkAction
	theme    theme
	showHelp bool
}

func Run(store *task.Store, timers *Timers, cfg config.Config, prefs Prefs, logger *log.Logger) error {
	m := newModel(store, cfg, prefs, logger, task.SystemClock())
	program := tea.NewProgram(m)
	timers.attach(program)
	defer timers.attach(nil)
	_, err := program.Run()
	return err
}

func newModel(store *task.Store, cfg config.Config, prefs Prefs, logger *log.Logger, clock task.Clock) Model {
	ti := textinput.New()
	ti.Placeholder = "Task"
	ti.CharLimit = task.MaxTextLength
	ti.Width = 40

	m := Model{
		store:  store,
		cfg:    cfg,
		prefs:  prefs,
		logger: logger,
		clock:  clock,
		input:  ti,
		mode:   modeList,
		status: fmt.Sprintf("Press '%s' to add, '%s' for help.", cfg.Keys.Add, cfg.Keys.Help),
		theme:  themeNamed(prefs.Get(storage.ThemeKey, themeLight)),
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case timerFiredMsg:
		msg.run()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.input.Width = max(msg.Width-10, 10)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	switch m.mode {
	case modeAdd:
		return m.updateAddMode(key, msg)
	case modeEdit, modeNotes:
		return m.updateTextMode(key, msg)
	case modeSearch:
		return m.updateSearchMode(key, msg)
	case modeConfirm:
		return m.updateConfirm(key)
	}
	return m.updateListMode(key)
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	if m.showHelp && key != k.Quit {
		m.showHelp = false
		return m, nil
	}
	switch key {
	case k.Quit:
		return m, tea.Quit
	case k.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(m.store.FilteredTasks()))
	case k.Up, "up":
		m.cursor = clampCursor(m.cursor-1, len(m.store.FilteredTasks()))
	case k.Add:
		m.form = &addForm{}
		m.mode = modeAdd
		m.loadFormField()
		return m, m.input.Focus()
	case k.Toggle:
		t, idx, ok := m.selected()
		if !ok {
			return m, nil
		}
		completed, err := m.store.ToggleComplete(idx)
		if err != nil {
			m.status = fmt.Sprintf("toggle failed: %v", err)
			return m, nil
		}
		if completed {
			m.status = fmt.Sprintf("🎉 Completed %q", t.Text)
		} else {
			m.status = fmt.Sprintf("Reopened %q", t.Text)
		}
		m.afterChange()
	case k.Delete:
		_, idx, ok := m.selected()
		if !ok {
			return m, nil
		}
		if _, err := m.store.DeleteTask(idx); err != nil {
			m.status = fmt.Sprintf("delete failed: %v", err)
			return m, nil
		}
		m.status = "Deleted task"
		m.afterChange()
	case k.Undo:
		if m.store.UndoDelete() {
			m.status = "Restored task"
			m.afterChange()
		} else {
			m.status = "Nothing to undo"
		}
	case k.Cancel:
		if _, ok := m.store.PendingDeletion(); ok {
			m.store.DismissUndo()
			m.status = "Undo dismissed"
		}
	case k.Edit:
		t, _, ok := m.selected()
		if !ok {
			m.status = "No tasks to edit"
			return m, nil
		}
		return m.startTextMode(modeEdit, t, t.Text, "Task text")
	case k.Notes:
		t, _, ok := m.selected()
		if !ok {
			m.status = "No task selected"
			return m, nil
		}
		return m.startTextMode(modeNotes, t, t.Notes, "Notes")
	case k.MoveUp:
		return m.move(-1)
	case k.MoveDown:
		return m.move(1)
	case k.CompleteAll:
		if m.store.Len() == 0 {
			m.status = "No tasks"
			return m, nil
		}
		m.bulk = bulkCompleteAll
		m.mode = modeConfirm
		m.status = "Mark all tasks as completed? y/n"
	case k.DeleteAll:
		if m.store.Len() == 0 {
			m.status = "No tasks"
			return m, nil
		}
		m.bulk = bulkDeleteAll
		m.mode = modeConfirm
		m.status = "Delete all tasks? This cannot be undone. y/n"
	case k.Search:
		m.mode = modeSearch
		m.input.SetValue(m.store.SearchQuery())
		m.input.Placeholder = "Search tasks"
		m.input.CursorEnd()
		m.status = "Type to search, enter to keep, esc to clear"
		return m, m.input.Focus()
	case k.Filter:
		next := m.store.Filter().Next()
		if err := m.store.SetFilter(next); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.cursor = clampCursor(m.cursor, len(m.store.FilteredTasks()))
		m.status = "Filter: " + string(next)
	case k.Export:
		m.status = m.export()
	case k.Theme:
		name := nextTheme(m.theme.name)
		m.theme = themeNamed(name)
		if err := m.prefs.Set(storage.ThemeKey, name); err != nil {
			m.logger.Warn("save theme failed", "err", err)
		}
		m.status = "Theme: " + name
	case k.Help:
		m.showHelp = true
	}
	return m, nil
}

// selected returns the highlighted task and its position in the full list.
func (m Model) selected() (task.Task, int, bool) {
	visible := m.store.FilteredTasks()
	if len(visible) == 0 {
		return task.Task{}, -1, false
	}
	t := visible[clampCursor(m.cursor, len(visible))]
	idx := m.store.IndexOf(t.ID)
	return t, idx, idx >= 0
}

func (m *Model) afterChange() {
	m.cursor = clampCursor(m.cursor, len(m.store.FilteredTasks()))
	if err := m.store.LastSaveErr(); err != nil {
		m.status += fmt.Sprintf(" (not saved: %v)", err)
	}
}

// move shifts the selected task one place in the full list and keeps the
// cursor on it.
func (m Model) move(delta int) (tea.Model, tea.Cmd) {
	t, idx, ok := m.selected()
	if !ok {
		return m, nil
	}
	to := idx + delta
	if to < 0 || to >= m.store.Len() {
		return m, nil
	}
	if err := m.store.ReorderTasks(idx, to); err != nil {
		m.status = fmt.Sprintf("move failed: %v", err)
		return m, nil
	}
	for i, v := range m.store.FilteredTasks() {
		if v.ID == t.ID {
			m.cursor = i
			break
		}
	}
	m.status = "Moved task"
	m.afterChange()
	return m, nil
}

func (m Model) export() string {
	format, err := export.ParseFormat(m.cfg.ExportFormat)
	if err != nil {
		return err.Error()
	}
	path, err := export.Write(m.cfg.ExportDir, m.store.Tasks(), m.clock.Now(), format)
	if err != nil {
		m.logger.Error("export failed", "err", err)
		return fmt.Sprintf("export failed: %v", err)
	}
	m.logger.Info("exported tasks", "path", path)
	return "Exported to " + path
}

func (m Model) startTextMode(md mode, t task.Task, value, label string) (tea.Model, tea.Cmd) {
	m.mode = md
	m.editID = t.ID
	m.input.SetValue(value)
	m.input.Placeholder = label
	m.input.CursorEnd()
	m.status = fmt.Sprintf("Editing %s: enter to save, esc to cancel", strings.ToLower(label))
	return m, m.input.Focus()
}

func (m Model) updateTextMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.leaveInput("Edit cancelled")
		return m, nil
	case m.cfg.Keys.Confirm:
		idx := m.store.IndexOf(m.editID)
		if idx < 0 {
			m.leaveInput("Task no longer exists")
			return m, nil
		}
		var err error
		if m.mode == modeEdit {
			err = m.store.EditTask(idx, m.input.Value())
		} else {
			err = m.store.UpdateNotes(idx, m.input.Value())
		}
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		if m.mode == modeEdit {
			m.leaveInput("Task updated")
		} else {
			m.leaveInput("Notes saved")
		}
		m.afterChange()
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.store.SetSearchQuery("")
		m.leaveInput("Search cleared")
	case m.cfg.Keys.Confirm:
		q := m.store.SearchQuery()
		m.leaveInput("")
		if q != "" {
			m.status = fmt.Sprintf("Searching %q", q)
		}
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.store.SetSearchQuery(m.input.Value())
		m.cursor = clampCursor(m.cursor, len(m.store.FilteredTasks()))
		return m, cmd
	}
	m.cursor = clampCursor(m.cursor, len(m.store.FilteredTasks()))
	return m, nil
}

func (m Model) updateConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		if m.bulk == bulkCompleteAll {
			m.store.CompleteAll()
			m.status = "🎉 All tasks completed"
		} else {
			m.store.DeleteAll()
			m.status = "Deleted all tasks"
		}
		m.mode = modeList
		m.afterChange()
	case "n", "N", m.cfg.Keys.Cancel:
		m.mode = modeList
		m.status = "Cancelled"
	}
	return m, nil
}

func (m *Model) leaveInput(status string) {
	m.mode = modeList
	m.form = nil
	m.editID = ""
	m.input.SetValue("")
	m.input.Blur()
	m.status = status
}

func formFields() []string {
	return []string{"text", "category", "priority", "due date (YYYY-MM-DD)"}
}

func (f addForm) currentLabel() string {
	return formFields()[f.index]
}

func (f addForm) currentValue() string {
	switch f.index {
	case 0:
		return f.text
	case 1:
		return f.category
	case 2:
		return f.priority
	case 3:
		return f.due
	default:
		return ""
	}
}

func (f *addForm) setCurrentValue(v string) {
	switch f.index {
	case 0:
		f.text = v
	case 1:
		f.category = v
	case 2:
		f.priority = v
	case 3:
		f.due = v
	}
}

func (m *Model) loadFormField() {
	m.input.SetValue(m.form.currentValue())
	m.input.Placeholder = m.form.currentLabel()
	m.input.CursorEnd()
	m.status = m.formPrompt()
}

func (m Model) formPrompt() string {
	if m.form == nil {
		return ""
	}
	hint := ""
	switch m.form.index {
	case 1:
		hint = " [" + strings.Join(m.cfg.Categories, ", ") + "]"
	case 2:
		hint = " [low, medium, high; empty means medium]"
	}
	return fmt.Sprintf("New task, %s%s (field %d of %d). Enter to advance, tab to move, esc to cancel.",
		m.form.currentLabel(), hint, m.form.index+1, len(formFields()))
}

func (m Model) updateAddMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.leaveInput("Cancelled")
		return m, nil
	case "tab", "down":
		m.form.setCurrentValue(m.input.Value())
		m.form.index = wrapIndex(m.form.index+1, len(formFields()))
		m.loadFormField()
		return m, nil
	case "shift+tab", "up":
		m.form.setCurrentValue(m.input.Value())
		m.form.index = wrapIndex(m.form.index-1, len(formFields()))
		m.loadFormField()
		return m, nil
	case m.cfg.Keys.Confirm:
		m.form.setCurrentValue(m.input.Value())
		if m.form.index >= len(formFields())-1 {
			return m.saveForm()
		}
		m.form.index++
		m.loadFormField()
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) saveForm() (tea.Model, tea.Cmd) {
	priority, err := task.ParsePriority(m.form.priority)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	due, err := task.ParseDate(m.form.due)
	if err != nil {
		m.status = fmt.Sprintf("due date invalid: %v", err)
		return m, nil
	}
	added, err := m.store.AddTask(task.Input{
		Text:     m.form.text,
		Category: strings.ToLower(strings.TrimSpace(m.form.category)),
		Priority: priority,
		DueDate:  due,
	})
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.leaveInput(fmt.Sprintf("Added %q", added.Text))
	for i, t := range m.store.FilteredTasks() {
		if t.ID == added.ID {
			m.cursor = i
		}
	}
	m.afterChange()
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	th := m.theme

	b.WriteString(th.title.Render("🍂 Autumn To-Do"))
	b.WriteString("\n")
	b.WriteString(m.renderStats())
	b.WriteString("\n\n")

	if m.showHelp {
		b.WriteString(renderShortcuts(m.cfg.Keys))
		b.WriteString("\n")
		b.WriteString(th.muted.Render("press any key to close"))
		return b.String()
	}

	visible := m.store.FilteredTasks()
	switch {
	case m.store.Len() == 0:
		b.WriteString(th.muted.Render(fmt.Sprintf("No tasks yet. Press '%s' to add one.", m.cfg.Keys.Add)))
		b.WriteString("\n")
	case len(visible) == 0:
		b.WriteString(th.muted.Render("No tasks match."))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderTaskList(visible))
	}

	if pending, ok := m.store.PendingDeletion(); ok {
		b.WriteString("\n")
		b.WriteString(th.toast.Render(fmt.Sprintf("Deleted %q • %s to undo • %s to dismiss",
			pending.Task.Text, m.cfg.Keys.Undo, m.cfg.Keys.Cancel)))
		b.WriteString("\n")
	}

	b.WriteString("\n---\n")
	switch m.mode {
	case modeAdd:
		b.WriteString(m.renderForm())
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	case modeEdit, modeNotes, modeSearch:
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.store.LastSaveErr() != nil {
		b.WriteString(th.errText.Render("⚠ changes are not being saved"))
		b.WriteString("\n")
	}
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(th.muted.Render(renderHelp(m.cfg.Keys)))
	return b.String()
}

func (m Model) renderStats() string {
	st := m.store.Stats()
	line := fmt.Sprintf("Total %d • Done %d • Pending %d • %d%% complete", st.Total, st.Completed, st.Pending, st.Rate)
	view := "Filter: " + string(m.store.Filter())
	if q := m.store.SearchQuery(); q != "" {
		view += fmt.Sprintf(" • Search: %q", q)
	}
	return m.theme.muted.Render(line + "\n" + view)
}

func (m Model) renderTaskList(visible []task.Task) string {
	th := m.theme
	now := m.clock.Now()
	cur := clampCursor(m.cursor, len(visible))
	var b strings.Builder
	for i, t := range visible {
		cursor := " "
		if i == cur && m.mode == modeList {
			cursor = th.selected.Render(">")
		}
		checkbox := "[ ]"
		text := th.text.Render(t.Text)
		if t.Completed {
			checkbox = "[x]"
			text = th.done.Render(t.Text)
		}
		b.WriteString(fmt.Sprintf("%s %s %d. %s", cursor, checkbox, i+1, text))

		var tags []string
		if t.Category != "" {
			tags = append(tags, "#"+t.Category)
		}
		if style, ok := th.priority[string(t.Priority)]; ok {
			tags = append(tags, style.Render(string(t.Priority)))
		}
		if !t.DueDate.IsZero() {
			today := task.DateOf(now)
			due := "due " + humanize.RelTime(t.DueDate.Time(), today.Time(), "ago", "from now")
			if t.DueDate.String() == today.String() {
				due = "due today"
			}
			if t.Overdue(now) {
				due = th.overdue.Render(due + " (overdue)")
			}
			tags = append(tags, due)
		}
		if len(tags) > 0 {
			b.WriteString("  " + strings.Join(tags, " "))
		}
		b.WriteString("\n")
		if t.Notes != "" {
			b.WriteString(th.muted.Render("      📝 " + t.Notes))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderForm() string {
	if m.form == nil {
		return ""
	}
	values := []string{m.form.text, m.form.category, m.form.priority, m.form.due}
	var b strings.Builder
	for i, name := range formFields() {
		prefix := " "
		if i == m.form.index {
			prefix = ">"
		}
		val := values[i]
		if strings.TrimSpace(val) == "" {
			val = "(empty)"
		}
		b.WriteString(fmt.Sprintf("%s %-22s : %s\n", prefix, name, val))
	}
	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s toggle • %s delete • %s undo • %s help • %s quit",
		k.Up, k.Down, k.Add, keyLabel(k.Toggle), k.Delete, k.Undo, k.Help, k.Quit)
}

func renderShortcuts(k config.Keymap) string {
	rows := [][2]string{
		{"Add task", k.Add},
		{"Toggle complete", keyLabel(k.Toggle)},
		{"Edit text", k.Edit},
		{"Edit notes", k.Notes},
		{"Delete task", k.Delete},
		{"Undo delete", k.Undo},
		{"Dismiss undo", k.Cancel},
		{"Move up / down", k.MoveUp + " / " + k.MoveDown},
		{"Search tasks", k.Search},
		{"Cycle filter", k.Filter},
		{"Complete all", k.CompleteAll},
		{"Delete all", k.DeleteAll},
		{"Export tasks", k.Export},
		{"Cycle theme", k.Theme},
		{"Quit", k.Quit},
	}
	var b strings.Builder
	b.WriteString("Keyboard shortcuts\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %-16s %s\n", r[0], r[1]))
	}
	return b.String()
}

func keyLabel(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
