package diagnostics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slox-lang/slox/pkg/diagnostics"
)

func TestMakeDiag(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.EParse, 3, " at ';'", "Expect expression.")

	assert.Equal(t, diagnostics.EParse, d.Code)
	assert.Equal(t, 3, d.Line)
	assert.Equal(t, diagnostics.SeverityError, d.Severity)
	assert.True(t, d.IsError())
}

func TestMakeWarning(t *testing.T) {
	d := diagnostics.MakeWarning(diagnostics.ESelfInit, 1, " at 'a'", "reads itself")
	assert.False(t, d.IsError())
	assert.False(t, diagnostics.HasErrors([]diagnostics.Diagnostic{d}))
	assert.True(t, diagnostics.HasErrors([]diagnostics.Diagnostic{d, diagnostics.MakeDiag(diagnostics.EScan, 1, "", "x")}))
}

func TestFormatDiagnosticPretty(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.EUndefined, 7, " at 'x'", "Undefined variable 'x'.")
	assert.Equal(t, "[line 7] Error at 'x': Undefined variable 'x'.", diagnostics.FormatDiagnostic(d, true))

	scan := diagnostics.MakeDiag(diagnostics.EScan, 2, "", "Unexpected character.")
	assert.Equal(t, "[line 2] Error: Unexpected character.", diagnostics.FormatDiagnostic(scan, true))

	w := diagnostics.MakeWarning(diagnostics.ESelfInit, 4, " at 'a'", "hmm")
	assert.Equal(t, "[line 4] Warning at 'a': hmm", diagnostics.FormatDiagnostic(w, true))
}

func TestFormatDiagnosticJSON(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.EScan, 1, "", "bad token")
	out := diagnostics.FormatDiagnostic(d, false)
	assert.Contains(t, out, `"code":"E_SCAN"`)
	assert.Contains(t, out, `"line":1`)
	assert.NotContains(t, out, `"where"`)
}

func TestFormatDiagnosticsJoins(t *testing.T) {
	diags := []diagnostics.Diagnostic{
		diagnostics.MakeDiag(diagnostics.EParse, 1, " at end", "Expect ';' after value."),
		diagnostics.MakeDiag(diagnostics.EParse, 2, " at ')'", "Expect expression."),
	}
	assert.Equal(t,
		"[line 1] Error at end: Expect ';' after value.\n[line 2] Error at ')': Expect expression.",
		diagnostics.FormatDiagnostics(diags, true))
	assert.Equal(t, "[]", diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{}, false))
}
