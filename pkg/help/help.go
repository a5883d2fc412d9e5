// Package help provides the slox quick reference and help topics.
package help

import (
	"fmt"
	"sort"
	"strings"
)

// Version is the language version shown in the quick reference.
const Version = "v0.1"

// TopicList is the display order of help topics.
var TopicList = []string{"syntax", "types", "scope", "functions", "flow", "diagnostics", "config", "repl", "examples"}

// QUICKREF is the one-screen language reference printed by `slox help`.
var QUICKREF = `slox ` + Version + ` quick reference

  var x = 1;              declare (initializer required)
  x = x + 1;              assign (name must already exist)
  print x;                print a value
  { ... }                 block with its own scope
  if cond stmt else stmt  condition without parentheses
  while cond stmt         loop
  fun f(a, b) { ... }     declare a function
  return expr;            return from a function

  Operators: or and == != < <= > >= + - * / ! unary -
  Truthiness: nil and false are falsy; numbers are truthy only when > 0;
              strings are truthy when non-empty.

Topics: ` + strings.Join(TopicList, ", ") + `
Run "slox help <topic>" for details.
`

// Topics maps topic names to their help text.
var Topics = map[string]string{
	"syntax": `Statements end with ';'. Comments start with // and run to end of line.
Declarations:
  var name = expression;
  fun name(param, ...) { body }
Statements:
  expression;  print expression;  return expression;
  { declarations }
  if expression statement [else statement]
  while expression statement
Precedence, lowest first: assignment, or, and, == !=, < <= > >=, + -, * /,
unary ! -, call, primary. Binary operators are left-associative and
assignment is right-associative.`,

	"types": `Values: nil, true/false, numbers (64-bit floats), strings, functions.
  +        two numbers or two strings
  - * /    numbers only; division by zero yields Inf or NaN
  < <= > >= two numbers or two strings; anything else is a runtime error
  == !=    any pair; different types are never equal; functions equal by identity
  !        booleans only
Numbers print without a trailing ".0" when integral. Functions print as <fn name>.`,

	"scope": `Each block and each function call gets a new scope whose parent is the
enclosing one. Lookup walks the chain outward at the moment of access.
Assignment updates the nearest existing binding and never creates one.
Redeclaring a name in the same scope replaces it.`,

	"functions": `fun declares a function and binds it in the current scope. Functions are
values: they can be passed, returned, and reassigned. A function captures the
scope it was declared in, so closures see their defining scope, not the
caller's. Calls evaluate arguments left to right and check arity. A function
without a return yields nil. Deep recursion is stopped with "Stack overflow."`,

	"flow": `if cond stmt [else stmt] and while cond stmt take a bare condition.
The while body runs in the loop's scope; a block body adds one scope per pass.
and/or short-circuit and return the deciding operand, not a boolean:
  false or "x"  is "x"
  1 or "x"      is 1`,

	"diagnostics": `Errors print as "[line N] Error at 'token': message".
  E_SCAN              unexpected character or unterminated string
  E_PARSE             syntax error; parsing recovers at the next statement
  E_TYPE              operand type mismatch
  E_UNDEFINED         undefined variable
  E_ARITY             wrong number of arguments
  E_NOT_CALLABLE      calling a non-function
  E_STACK_OVERFLOW    call depth limit exceeded
  E_BUDGET            step limit exceeded
  E_CANCELED          execution canceled
  E_RETURN_TOP_LEVEL  return outside a function
  E_DUP_PARAM         duplicate parameter name
  E_SELF_INIT         (warning) local initializer reads the outer binding
Exit codes: 65 for scan/parse/check errors, 70 for runtime errors.`,

	"config": `slox.toml is read from --config, ./slox.toml, or ~/.slox/slox.toml.
  [log]     level = "info"
  [budget]  max_depth = 1024, max_steps = 0 (unlimited)
  [repl]    prompt = "> ", history_file, echo = true
  [check]   include = ["**.lox"], exclude = []
  [metrics] addr = "127.0.0.1:9464"
  [watch]   debounce_ms = 200`,

	"repl": `slox repl keeps one global scope across lines.
Expression statements echo their value unless echo is off.
Commands:
  :help   show the quick reference
  :env    list global bindings
  :reset  start over with an empty global scope
  :quit   leave (Ctrl-D also works)`,

	"examples": `fun makeCounter() {
  var i = 0;
  fun count() { i = i + 1; return i; }
  return count;
}
var counter = makeCounter();
print counter(); // 1
print counter(); // 2

fun fib(n) { if n < 2 { return n; } return fib(n - 1) + fib(n - 2); }
print fib(20);`,
}

// MatchTopic resolves a topic by exact name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}

	var matches []string
	if query != "" {
		for _, name := range TopicList {
			if strings.HasPrefix(name, query) {
				matches = append(matches, name)
			}
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q; available: %s", query, strings.Join(TopicList, ", "))
	default:
		sort.Strings(matches)
		return "", "", fmt.Errorf("ambiguous help topic %q: matches %s", query, strings.Join(matches, ", "))
	}
}
