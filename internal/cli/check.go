package cli

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/slox-lang/slox/pkg/diagnostics"
	"github.com/slox-lang/slox/pkg/runtime"
)

// fileDiagnostics is the JSON shape of one file's results when checking
// a directory.
type fileDiagnostics struct {
	File        string                   `json:"file"`
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics"`
}

func (a *app) cmdCheck(args []string) int {
	var paths []string
	pretty := false
	for _, arg := range args {
		switch {
		case arg == "--pretty":
			pretty = true
		case arg == "-" || !strings.HasPrefix(arg, "-"):
			paths = append(paths, arg)
		default:
			fmt.Fprintf(a.stderr, "Unknown option: %s\n", arg)
			return runtime.ExitUsage
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(a.stderr, "usage: slox check <file|dir|->... [--pretty]")
		return runtime.ExitUsage
	}

	files, err := a.expandPaths(paths)
	if err != nil {
		return a.ioError("%v", err)
	}

	rt := a.newRuntime()
	single := len(paths) == 1 && len(files) == 1 && files[0] == paths[0]
	var results []fileDiagnostics
	hasErrors := false
	for _, file := range files {
		source, ok := a.readSource(file)
		if !ok {
			return runtime.ExitUsage
		}
		diags := rt.Check(source)
		a.logger.Debug("checked", "file", file, "diagnostics", len(diags))
		if len(diags) == 0 {
			continue
		}
		hasErrors = hasErrors || diagnostics.HasErrors(diags)
		results = append(results, fileDiagnostics{File: file, Diagnostics: diags})
	}

	switch {
	case len(results) == 0:
	case single:
		a.printDiagnostics(results[0].Diagnostics, pretty)
	case pretty:
		for _, r := range results {
			for _, d := range r.Diagnostics {
				fmt.Fprintf(a.stderr, "%s: %s\n", r.File, a.styleDiagnostic(d))
			}
		}
	default:
		b, _ := json.Marshal(results)
		fmt.Fprintln(a.stderr, string(b))
	}

	if hasErrors {
		return runtime.ExitDataErr
	}
	if pretty {
		msg := "No errors found."
		if !single {
			msg = fmt.Sprintf("No errors found in %d files.", len(files))
		}
		fmt.Fprintln(a.stdout, a.success(msg))
	} else {
		fmt.Fprintln(a.stdout, "[]")
	}
	return runtime.ExitOK
}

// expandPaths replaces each directory argument with the source files under
// it that match the configured include globs and none of the exclude globs.
func (a *app) expandPaths(paths []string) ([]string, error) {
	include, err := compileGlobs(a.cfg.Check.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileGlobs(a.cfg.Check.Exclude)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, p := range paths {
		if p == "-" {
			files = append(files, p)
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read file: %s", p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(p, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if rel != "." && matchAny(exclude, rel+"/") {
					return filepath.SkipDir
				}
				return nil
			}
			if matchAny(include, rel) && !matchAny(exclude, rel) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("cannot walk %s: %w", p, err)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
