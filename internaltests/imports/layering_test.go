package imports_test

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const module = "github.com/leeforge/adminsite/"

// forbidden lists, per package, the packages it must not import. The
// request path runs hook -> plugin -> view; registration and boot sit
// above it.
var forbidden = map[string][]string{
	"hook":     {"plugin", "view", "site", "runtime", "builtin"},
	"plugin":   {"view", "site", "runtime", "builtin"},
	"view":     {"site", "runtime", "builtin"},
	"site":     {"runtime", "builtin"},
	"model":    {"plugin", "view", "site", "runtime", "builtin"},
	"security": {"hook", "plugin", "view", "site", "runtime", "builtin"},
}

func TestLayering(t *testing.T) {
	root := filepath.Clean("../..")
	var hits []string

	for pkg, banned := range forbidden {
		dir := filepath.Join(root, pkg)
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("read %s: %v", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".go" {
				continue
			}
			path := filepath.Join(dir, e.Name())
			f, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ImportsOnly)
			if err != nil {
				t.Fatalf("parse %s: %v", path, err)
			}
			for _, spec := range f.Imports {
				imp, _ := strconv.Unquote(spec.Path.Value)
				for _, b := range banned {
					if imp == module+b || strings.HasPrefix(imp, module+b+"/") {
						hits = append(hits, path+" imports "+imp)
					}
				}
			}
		}
	}

	if len(hits) > 0 {
		t.Fatalf("layering violations: %v", hits)
	}
}

func TestNoFrameworkImports(t *testing.T) {
	root := filepath.Clean("../..")
	var hits []string

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || d.Name() == "internaltests" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		b, _ := os.ReadFile(path)
		if strings.Contains(string(b), "\"github.com/leeforge/framework") {
			hits = append(hits, path)
		}
		return nil
	})

	if len(hits) > 0 {
		t.Fatalf("framework imports found: %v", hits[:min(10, len(hits))])
	}
}
