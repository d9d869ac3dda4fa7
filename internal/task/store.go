package task

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DefaultUndoWindow is how long a deleted task stays restorable.
const DefaultUndoWindow = 5 * time.Second

// Persister loads and saves the whole task sequence. Load returns nil, nil
// when nothing has been stored yet.
type Persister interface {
	Load() ([]Task, error)
	Save(tasks []Task) error
}

type Option func(*Store)

func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithTimers(ts TimerService) Option {
	return func(s *Store) { s.timers = ts }
}

func WithUndoWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.undoWindow = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCategories restricts the categories AddTask accepts. An empty list
// allows any category.
func WithCategories(categories []string) Option {
	return func(s *Store) { s.categories = slices.Clone(categories) }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(f func() ID) Option {
	return func(s *Store) { s.newID = f }
}

func WithFilter(f Filter) Option {
	return func(s *Store) {
		if f.Valid() {
			s.filter = f
		}
	}
}

// Store owns the ordered task list, the view criteria and the undo slot.
// Every change to the list is followed by one Save of the full list.
type Store struct {
	mu sync.Mutex

	persister  Persister
	clock      Clock
	timers     TimerService
	logger     *log.Logger
	undoWindow time.Duration
	categories []string
	newID      func() ID

	tasks   []Task
	filter  Filter
	query   string
	pending *Deletion
	undo    Timer
	undoGen uint64
	saveErr error
}

// NewStore builds a Store and loads its tasks once from p. A failed or
// malformed load starts the store empty.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		persister:  p,
		clock:      SystemClock(),
		timers:     RuntimeTimers(),
		logger:     log.New(io.Discard),
		undoWindow: DefaultUndoWindow,
		categories: DefaultCategories(),
		newID:      func() ID { return ID(uuid.NewString()) },
		filter:     FilterAll,
	}
	for _, opt := range opts {
		opt(s)
	}

	loaded, err := p.Load()
	if err != nil {
		s.logger.Warn("load tasks failed, starting empty", "err", err)
		loaded = nil
	}
	s.tasks = s.normalize(loaded)
	s.logger.Debug("tasks loaded", "count", len(s.tasks))
	return s
}

// normalize repairs loaded records so the list invariants hold.
func (s *Store) normalize(in []Task) []Task {
	out := make([]Task, 0, len(in))
	seen := make(map[ID]struct{}, len(in))
	for i, t := range in {
		text, err := CleanText(t.Text)
		if err != nil {
			s.logger.Warn("dropping stored task", "position", i, "err", err)
			continue
		}
		t.Text = text
		if _, dup := seen[t.ID]; t.ID == "" || dup {
			old := t.ID
			t.ID = s.newID()
			s.logger.Warn("reassigned task id", "position", i, "old", old, "new", t.ID)
		}
		seen[t.ID] = struct{}{}
		if !t.Priority.Valid() {
			t.Priority = PriorityMedium
		}
		t.Category = strings.TrimSpace(t.Category)
		if t.CreatedAt.IsZero() {
			t.CreatedAt = s.now()
		}
		out = append(out, t)
	}
	return out
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

// save persists the current list. Called with s.mu held.
func (s *Store) save() {
	if err := s.persister.Save(slices.Clone(s.tasks)); err != nil {
		s.saveErr = fmt.Errorf("save tasks: %w", err)
		s.logger.Error("save tasks failed", "err", err, "count", len(s.tasks))
		return
	}
	s.saveErr = nil
}

func (s *Store) checkIndex(index int) error {
	if index < 0 || index >= len(s.tasks) {
		return &ValidationError{Field: "index", Err: fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, len(s.tasks))}
	}
	return nil
}

func (s *Store) checkCategory(c string) error {
	if c == "" || len(s.categories) == 0 || slices.Contains(s.categories, c) {
		return nil
	}
	return &ValidationError{Field: "category", Err: fmt.Errorf("%w: %q", ErrUnknownCategory, c)}
}

// AddTask appends a new incomplete task.
func (s *Store) AddTask(in Input) (Task, error) {
	text, err := CleanText(in.Text)
	if err != nil {
		return Task{}, err
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return Task{}, &ValidationError{Field: "priority", Err: fmt.Errorf("%w: %q", ErrInvalidPriority, priority)}
	}
	category := strings.TrimSpace(in.Category)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkCategory(category); err != nil {
		return Task{}, err
	}
	t := Task{
		ID:        s.newID(),
		Text:      text,
		Category:  category,
		Priority:  priority,
		DueDate:   in.DueDate,
		Notes:     CleanNotes(in.Notes),
		CreatedAt: s.now(),
	}
	s.tasks = append(s.tasks, t)
	s.save()
	return t, nil
}

// DeleteTask removes the task at index and keeps it in the undo slot until
// the undo window passes. A previous pending deletion is discarded.
func (s *Store) DeleteTask(index int) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return Task{}, err
	}
	removed := s.tasks[index]
	s.tasks = slices.Delete(s.tasks, index, index+1)
	s.pending = &Deletion{Task: removed, Index: index}
	s.save()
	s.armUndo()
	return removed, nil
}

// armUndo replaces any running undo timer with a fresh one.
func (s *Store) armUndo() {
	s.stopUndo()
	s.undoGen++
	gen := s.undoGen
	s.undo = s.timers.AfterFunc(s.undoWindow, func() { s.expireUndo(gen) })
}

func (s *Store) stopUndo() {
	if s.undo != nil {
		s.undo.Stop()
		s.undo = nil
	}
}

func (s *Store) expireUndo(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.undoGen || s.pending == nil {
		return
	}
	s.logger.Debug("undo window closed", "id", s.pending.Task.ID)
	s.pending = nil
	s.undo = nil
}

// UndoDelete restores the pending deletion at its recorded index, or at
// the end when the list has since become shorter. It reports whether
// anything was restored.
func (s *Store) UndoDelete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return false
	}
	at := min(s.pending.Index, len(s.tasks))
	s.tasks = slices.Insert(s.tasks, at, s.pending.Task)
	s.pending = nil
	s.stopUndo()
	s.save()
	return true
}

// DismissUndo closes the undo window early. The list is already saved.
func (s *Store) DismissUndo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.stopUndo()
}

func (s *Store) EditTask(index int, text string) error {
	text, err := CleanText(text)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.tasks[index].Text = text
	s.save()
	return nil
}

// ToggleComplete flips the completion flag and reports whether the task
// just became completed.
func (s *Store) ToggleComplete(index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return false, err
	}
	t := &s.tasks[index]
	t.Completed = !t.Completed
	s.save()
	return t.Completed, nil
}

func (s *Store) UpdateNotes(index int, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.tasks[index].Notes = CleanNotes(notes)
	s.save()
	return nil
}

// ReorderTasks moves the task at from so that it ends up at position to.
// to is a position in the list after the task has been taken out.
func (s *Store) ReorderTasks(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(from); err != nil {
		return err
	}
	if err := s.checkIndex(to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	moved := s.tasks[from]
	s.tasks = slices.Delete(s.tasks, from, from+1)
	s.tasks = slices.Insert(s.tasks, to, moved)
	s.save()
	return nil
}

func (s *Store) CompleteAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		s.tasks[i].Completed = true
	}
	s.save()
}

// DeleteAll empties the list. It is not undoable and leaves any pending
// single deletion as it is.
func (s *Store) DeleteAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	s.save()
}

func (s *Store) SetFilter(f Filter) error {
	if !f.Valid() {
		return &ValidationError{Field: "filter", Err: fmt.Errorf("%w: %q", ErrInvalidFilter, f)}
	}
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
	return nil
}

func (s *Store) SetSearchQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
}

func (s *Store) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Store) SearchQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Tasks returns a copy of the full list in order.
func (s *Store) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// IndexOf returns the list position of id, or -1.
func (s *Store) IndexOf(id ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.IndexFunc(s.tasks, func(t Task) bool { return t.ID == id })
}

func (s *Store) PendingDeletion() (Deletion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Deletion{}, false
	}
	return *s.pending, true
}

// LastSaveErr returns the error of the most recent save, nil once a save
// succeeds again.
func (s *Store) LastSaveErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr
}

// FilteredTasks applies the status filter, then the case-insensitive
// search query, keeping list order.
func (s *Store) FilteredTasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(s.query)
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !s.filter.match(t) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Text), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return computeStats(s.tasks)
}

func computeStats(tasks []Task) Stats {
	st := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			st.Completed++
		}
	}
	st.Pending = st.Total - st.Completed
	if st.Total > 0 {
		st.Rate = int(math.Round(float64(st.Completed) / float64(st.Total) * 100))
	}
	return st
}
