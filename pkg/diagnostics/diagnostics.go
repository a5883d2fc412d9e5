// Package diagnostics defines slox diagnostic types for scan/parse/validation/runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Diagnostic code constants.
const (
	EScan           = "E_SCAN"
	EParse          = "E_PARSE"
	ERuntime        = "E_RUNTIME"
	EUndefined      = "E_UNDEFINED"
	EType           = "E_TYPE"
	EArity          = "E_ARITY"
	ENotCallable    = "E_NOT_CALLABLE"
	EStackOverflow  = "E_STACK_OVERFLOW"
	EBudget         = "E_BUDGET"
	ECanceled       = "E_CANCELED"
	EReturnTopLevel = "E_RETURN_TOP_LEVEL"
	EDupParam       = "E_DUP_PARAM"
	ESelfInit       = "E_SELF_INIT"
	EIO             = "E_IO"
	EConfig         = "E_CONFIG"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Diagnostic represents a scan, parse, validation, or runtime diagnostic.
// Where is either empty, " at end", or " at '<lexeme>'".
type Diagnostic struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Where    string `json:"where,omitempty"`
	Message  string `json:"message"`
}

// MakeDiag creates a new error-level Diagnostic.
func MakeDiag(code string, line int, where, message string) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: SeverityError,
		Line:     line,
		Where:    where,
		Message:  message,
	}
}

// MakeWarning creates a new warning-level Diagnostic.
func MakeWarning(code string, line int, where, message string) Diagnostic {
	d := MakeDiag(code, line, where, message)
	d.Severity = SeverityWarning
	return d
}

// IsError reports whether the diagnostic blocks execution.
func (d Diagnostic) IsError() bool {
	return d.Severity != SeverityWarning
}

// HasErrors reports whether any diagnostic in diags is error-level.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.IsError() {
			return true
		}
	}
	return false
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	label := "Error"
	if d.Severity == SeverityWarning {
		label = "Warning"
	}
	return fmt.Sprintf("[line %d] %s%s: %s", d.Line, label, d.Where, d.Message)
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n")
}
