package exec

import (
	"strings"
	"sync"
)

// FakeResult is the canned answer for one command line.
type FakeResult struct {
	Stdout string
	Err    error
}

// FakeExecutor records every invocation and replays canned results keyed by
// the full command line ("collie vdi list -r"). Unknown command lines succeed
// with empty output.
type FakeExecutor struct {
	mu       sync.Mutex
	Results  map[string]FakeResult
	Commands [][]string
}

func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{Results: map[string]FakeResult{}}
}

// Set registers the result for a command line.
func (f *FakeExecutor) Set(result FakeResult, command string, arg ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results[commandLine(command, arg...)] = result
}

func (f *FakeExecutor) ExecuteCommand(command string, arg ...string) error {
	_, err := f.ExecuteCommandWithOutput(command, arg...)
	return err
}

func (f *FakeExecutor) ExecuteCommandWithOutput(command string, arg ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Commands = append(f.Commands, append([]string{command}, arg...))
	r := f.Results[commandLine(command, arg...)]
	if r.Err != nil {
		return "", r.Err
	}
	return r.Stdout, nil
}

// Last returns the most recent invocation, nil when nothing ran.
func (f *FakeExecutor) Last() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Commands) == 0 {
		return nil
	}
	return f.Commands[len(f.Commands)-1]
}

func commandLine(command string, arg ...string) string {
	return strings.Join(append([]string{command}, arg...), " ")
}
