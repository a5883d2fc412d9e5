// Package testutil provides shared test helpers for slox Go tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScenariosDir is the relative path from the module root to the scenarios.
const ScenariosDir = "testdata/scenarios"

// Scenario represents a test scenario loaded from a scenario.json file.
// Cmd holds the slox arguments; relative paths in it resolve against the
// scenario directory.
type Scenario struct {
	Cmd    []string       `json:"cmd"`
	Stdin  string         `json:"stdin,omitempty"`
	Meta   *ScenarioMeta  `json:"meta,omitempty"`
	Expect ExpectedResult `json:"expect"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode         int             `json:"exitCode"`
	StdoutJSON       json.RawMessage `json:"stdoutJson,omitempty"`
	StdoutText       *string         `json:"stdoutText,omitempty"`
	StdoutContains   string          `json:"stdoutContains,omitempty"`
	StderrJSON       json.RawMessage `json:"stderrJson,omitempty"`
	StderrJSONSubset json.RawMessage `json:"stderrJsonSubset,omitempty"`
	StderrText       *string         `json:"stderrText,omitempty"`
	StderrContains   string          `json:"stderrContains,omitempty"`
}

// HasTag reports whether the scenario is tagged with tag.
func (s *Scenario) HasTag(tag string) bool {
	if s.Meta == nil {
		return false
	}
	for _, t := range s.Meta.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// LoadScenario loads a scenario from a directory containing scenario.json.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, "scenario.json"))
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	if len(s.Cmd) == 0 {
		return nil, fmt.Errorf("%s: scenario has no cmd", dir)
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root,
// sorted by name.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), "scenario.json")
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ReadProgramFile reads the first .lox file named in cmd, relative to the
// scenario directory. It returns empty strings when cmd names none.
func ReadProgramFile(scenarioDir string, cmd []string) (string, string, error) {
	for _, arg := range cmd {
		if !strings.HasSuffix(arg, ".lox") {
			continue
		}
		source, err := os.ReadFile(filepath.Join(scenarioDir, arg))
		if err != nil {
			return "", "", err
		}
		return string(source), arg, nil
	}
	return "", "", nil
}

// NormalizeJSON re-encodes raw so that equal documents compare equal as
// strings.
func NormalizeJSON(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("invalid JSON %q: %w", string(raw), err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// IsSubset reports whether expected is contained in actual: every key of an
// expected object must be present with a matching value, and an expected
// array must match a prefix of the actual one.
func IsSubset(expected, actual any) bool {
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, ev := range e {
			av, exists := a[k]
			if !exists {
				return false
			}
			if !IsSubset(ev, av) {
				return false
			}
		}
		return true

	case []any:
		a, ok := actual.([]any)
		if !ok {
			return false
		}
		if len(e) > len(a) {
			return false
		}
		for i, ev := range e {
			if !IsSubset(ev, a[i]) {
				return false
			}
		}
		return true

	case float64:
		af, ok := actual.(float64)
		return ok && e == af

	case string:
		as, ok := actual.(string)
		return ok && e == as

	case bool:
		ab, ok := actual.(bool)
		return ok && e == ab

	case nil:
		return actual == nil
	}
	return false
}
