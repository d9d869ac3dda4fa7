// Package task holds the to-do model and the Store that owns it.
package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTextLength is the longest task text accepted, in characters.
const MaxTextLength = 200

const dateLayout = "2006-01-02"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the priorities from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority accepts a priority name in any case. Empty means medium.
func ParsePriority(v string) (Priority, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return PriorityMedium, nil
	}
	p := Priority(v)
	if !p.Valid() {
		return "", &ValidationError{Field: "priority", Err: fmt.Errorf("%w: %q", ErrInvalidPriority, v)}
	}
	return p, nil
}

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterActive, FilterCompleted:
		return true
	}
	return false
}

// Next cycles all -> active -> completed -> all.
func (f Filter) Next() Filter {
	switch f {
	case FilterAll:
		return FilterActive
	case FilterActive:
		return FilterCompleted
	default:
		return FilterAll
	}
}

func (f Filter) match(t Task) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// DefaultCategories is the category set used when none is configured.
func DefaultCategories() []string {
	return []string{"work", "personal", "urgent", "health", "finance"}
}

// ID identifies a task. Older exports stored numeric ids; those decode to
// their decimal form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Date is a calendar date without time of day. The zero Date means no date.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD. An empty string yields the zero Date.
func ParseDate(v string) (Date, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return Date{}, &ValidationError{Field: "dueDate", Err: err}
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) Time() time.Time    { return d.t }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "", null, YYYY-MM-DD and RFC 3339 timestamps.
// Anything else decodes to no date rather than failing the whole document.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*d = Date{}
		return nil
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		*d = Date{t: t}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		*d = DateOf(t)
		return nil
	}
	*d = Date{}
	return nil
}

func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Task is one to-do item. CreatedAt decodes leniently: an empty or
// unparseable timestamp becomes the zero time.
type Task struct {
	ID        ID        `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	Completed bool      `json:"completed" yaml:"completed"`
	Category  string    `json:"category" yaml:"category"`
	Priority  Priority  `json:"priority" yaml:"priority"`
	DueDate   Date      `json:"dueDate" yaml:"dueDate"`
	Notes     string    `json:"notes" yaml:"notes"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var raw struct {
		plain
		CreatedAt json.RawMessage `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task(raw.plain)
	t.CreatedAt = time.Time{}
	if len(raw.CreatedAt) > 0 {
		var at time.Time
		if err := json.Unmarshal(raw.CreatedAt, &at); err == nil {
			t.CreatedAt = at
		}
	}
	return nil
}

// Overdue reports whether the due date lies before the calendar day of now.
func (t Task) Overdue(now time.Time) bool {
	if t.DueDate.IsZero() {
		return false
	}
	return t.DueDate.Before(DateOf(now))
}

// Input carries the fields a caller supplies when adding a task.
type Input struct {
	Text     string
	Category string
	Priority Priority
	DueDate  Date
	Notes    string
}

type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Rate      int `json:"rate"`
}

// Deletion is the undo slot: a removed task and where it used to be.
type Deletion struct {
	Task  Task
	Index int
}

var (
	ErrEmptyText       = errors.New("text is empty")
	ErrTextTooLong     = fmt.Errorf("text exceeds %d characters", MaxTextLength)
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidFilter   = errors.New("invalid filter")
)

// ValidationError reports a rejected operation input.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CleanText trims text, replaces invalid UTF-8 with U+FFFD and checks the
// result against the length bounds.
func CleanText(text string) (string, error) {
	text = CleanNotes(text)
	if text == "" {
		return "", &ValidationError{Field: "text", Err: ErrEmptyText}
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return "", &ValidationError{Field: "text", Err: ErrTextTooLong}
	}
	return text, nil
}

// CleanNotes trims notes and replaces invalid UTF-8 with U+FFFD so the
// stored value matches what the JSON codec writes.
func CleanNotes(notes string) string {
	return strings.ToValidUTF8(strings.TrimSpace(notes), "\uFFFD")
}
