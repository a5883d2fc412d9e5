package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, root, name, scenarioJSON string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scenario.json"), []byte(scenarioJSON), 0o644))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadAndListScenarios(t *testing.T) {
	root := t.TempDir()
	writeScenario(t, root, "b-second", `{"cmd":["run","main.lox"],"expect":{"exitCode":0,"stdoutText":""}}`,
		map[string]string{"main.lox": "var a = 1;"})
	writeScenario(t, root, "a-first", `{"cmd":["check","main.lox"],"meta":{"tags":["check"]},"expect":{"exitCode":65}}`,
		map[string]string{"main.lox": "print ;"})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-scenario"), 0o755))

	dirs, err := ListScenarios(root)
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, filepath.Join(root, "a-first"), dirs[0])

	s, err := LoadScenario(dirs[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"check", "main.lox"}, s.Cmd)
	assert.Equal(t, 65, s.Expect.ExitCode)
	assert.Nil(t, s.Expect.StdoutText)
	assert.True(t, s.HasTag("check"))
	assert.False(t, s.HasTag("repl"))

	s, err = LoadScenario(dirs[1])
	require.NoError(t, err)
	require.NotNil(t, s.Expect.StdoutText)
	assert.Empty(t, *s.Expect.StdoutText)

	source, name, err := ReadProgramFile(dirs[1], s.Cmd)
	require.NoError(t, err)
	assert.Equal(t, "main.lox", name)
	assert.Equal(t, "var a = 1;", source)
}

func TestLoadScenarioRejectsEmptyCmd(t *testing.T) {
	dir := writeScenario(t, t.TempDir(), "empty", `{"expect":{"exitCode":0}}`, nil)
	_, err := LoadScenario(dir)
	assert.Error(t, err)
}

func TestReadProgramFileWithoutProgram(t *testing.T) {
	source, name, err := ReadProgramFile(t.TempDir(), []string{"repl", "--no-echo"})
	require.NoError(t, err)
	assert.Empty(t, source)
	assert.Empty(t, name)
}

func TestNormalizeJSON(t *testing.T) {
	a, err := NormalizeJSON([]byte(`{ "b": 1, "a": [true, null] }`))
	require.NoError(t, err)
	b, err := NormalizeJSON([]byte(`{"a":[true,null],"b":1.0}`))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = NormalizeJSON([]byte(`{`))
	assert.Error(t, err)
}

func TestIsSubset(t *testing.T) {
	decode := func(s string) any {
		var v any
		require.NoError(t, json.Unmarshal([]byte(s), &v))
		return v
	}
	actual := decode(`[{"code":"E_PARSE","line":2,"where":" at ';'","message":"Expect expression."},{"code":"E_PARSE","line":3}]`)

	assert.True(t, IsSubset(decode(`[{"code":"E_PARSE","line":2}]`), actual))
	assert.True(t, IsSubset(decode(`[]`), actual))
	assert.False(t, IsSubset(decode(`[{"code":"E_SCAN"}]`), actual))
	assert.False(t, IsSubset(decode(`[{"missing":true}]`), actual))
	assert.False(t, IsSubset(decode(`[{},{},{}]`), actual))
	assert.True(t, IsSubset(nil, nil))
	assert.False(t, IsSubset("1", 1.0))
}
