package dynelf

import (
	"strings"
	"testing"
)

func TestLoadedModulesEnumeratesProcess(t *testing.T) {
	mods, err := LoadedModules()
	if err != nil {
		t.Fatalf("enumeration failed: %v", err)
	}
	if len(mods) == 0 {
		t.Fatal("expected at least the test binary to be enumerated")
	}
	seen := make(map[string]struct{})
	for _, m := range mods {
		if !strings.HasPrefix(m.Path, "/") {
			t.Fatalf("expected absolute path - got %q", m.Path)
		}
		if _, dup := seen[m.Path]; dup {
			t.Fatalf("module %s enumerated twice", m.Path)
		}
		seen[m.Path] = struct{}{}
	}
}

func TestEachModuleStopsWhenTold(t *testing.T) {
	visited := 0
	err := EachModule(func(m *Module) bool {
		visited++
		return false
	})
	if err != nil {
		t.Fatalf("enumeration failed: %v", err)
	}
	if visited != 1 {
		t.Fatalf("expected exactly one visit - got %d", visited)
	}
}
