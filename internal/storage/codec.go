package storage

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"autumn/internal/task"
)

const schemaURL = "https://autumn.local/schema/tasks.schema.json"

//go:embed schema/tasks.schema.json
var tasksSchemaJSON string

// ErrMalformed marks a stored document that is not a valid task list.
var ErrMalformed = errors.New("malformed task document")

var tasksSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(tasksSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add task schema: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// EncodeTasks renders tasks as a JSON array. indent enables 2-space
// indentation.
func EncodeTasks(tasks []task.Task, indent bool) ([]byte, error) {
	if tasks == nil {
		tasks = []task.Task{}
	}
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(tasks, "", "  ")
	} else {
		data, err = json.Marshal(tasks)
	}
	if err != nil {
		return nil, fmt.Errorf("marshal tasks: %w", err)
	}
	return data, nil
}

// DecodeTasks parses a stored task list. Empty input means nothing was
// stored and yields nil. Documents that fail the schema are rejected as a
// whole with ErrMalformed.
func DecodeTasks(data []byte) ([]task.Task, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	schema, err := tasksSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, strings.Join(schemaProblems(err), "; "))
	}

	var tasks []task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return tasks, nil
}

func schemaProblems(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	var out []string
	collectProblems(ve, &out)
	return out
}

func collectProblems(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, fmt.Sprintf("%s: %s", loc, ve.Message))
		return
	}
	for _, cause := range ve.Causes {
		collectProblems(cause, out)
	}
}
