//go:build !integration

package constants

import (
	"path/filepath"
	"testing"
)

func TestGetWorkflowDir(t *testing.T) {
	expected := filepath.Join(".github", "workflows")
	result := GetWorkflowDir()

	if result != expected {
		t.Errorf("GetWorkflowDir() = %q, want %q", result, expected)
	}
}

func TestConfigFileNames(t *testing.T) {
	expected := []string{".truss.yml", ".truss.yaml", ".truss.toml"}
	if len(ConfigFileNames) != len(expected) {
		t.Fatalf("ConfigFileNames length = %d, want %d", len(ConfigFileNames), len(expected))
	}
	for i, name := range expected {
		if ConfigFileNames[i] != name {
			t.Errorf("ConfigFileNames[%d] = %q, want %q", i, ConfigFileNames[i], name)
		}
	}
}
