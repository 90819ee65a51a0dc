package scenarios

import (
	"path/filepath"
	"testing"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no scenario files found")
	}
	for _, path := range paths {
		sc, err := Load(path)
		if err != nil {
			t.Fatalf("load %s: %v", path, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}
