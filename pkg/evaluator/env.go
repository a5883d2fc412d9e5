package evaluator

import "sort"

// Env is a scoped environment for variable bindings.
// It supports parent-chained lookup for lexical scoping. An Env is shared
// by every call frame and closure that references it and lives as long as
// the longest holder. Env is not safe for concurrent use.
type Env struct {
	bindings map[string]Value
	parent   *Env
}

// NewEnv creates a new environment with an optional parent scope.
// NewEnv(nil) creates a global environment.
func NewEnv(parent *Env) *Env {
	return &Env{
		bindings: make(map[string]Value),
		parent:   parent,
	}
}

// Child creates a new child scope whose parent is this environment.
func (e *Env) Child() *Env {
	return NewEnv(e)
}

// Parent returns the enclosing scope, or nil for a global environment.
func (e *Env) Parent() *Env {
	return e.parent
}

// Define binds a variable in this scope, replacing any existing binding.
func (e *Env) Define(name string, val Value) {
	e.bindings[name] = val
}

// Get looks up a variable by name, traversing parent scopes.
func (e *Env) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if val, ok := env.bindings[name]; ok {
			return val, true
		}
	}
	return nil, false
}

// Assign updates an existing binding in the nearest scope that has it.
// It never creates a binding and reports false when name is unbound.
func (e *Env) Assign(name string, val Value) bool {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.bindings[name]; ok {
			env.bindings[name] = val
			return true
		}
	}
	return false
}

// Has checks whether a variable is defined in this scope or any parent.
func (e *Env) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Names returns the names bound directly in this scope, sorted.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies the bindings of this scope.
func (e *Env) Snapshot() map[string]Value {
	out := make(map[string]Value, len(e.bindings))
	for k, v := range e.bindings {
		out[k] = v
	}
	return out
}
