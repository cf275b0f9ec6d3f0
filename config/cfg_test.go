package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}

	if cfg.Build.TagKeyword != "insert" {
		t.Errorf("Default tag keyword = %q, want %q", cfg.Build.TagKeyword, "insert")
	}
	if cfg.Build.FilePathAttribute != "path" {
		t.Errorf("Default file path attribute = %q, want %q", cfg.Build.FilePathAttribute, "path")
	}
	if cfg.Build.JSONPathAttribute != "jsonPath" {
		t.Errorf("Default JSON path attribute = %q, want %q", cfg.Build.JSONPathAttribute, "jsonPath")
	}
	if cfg.Build.IterationLimit != 0 {
		t.Errorf("Default iteration limit = %d, want 0", cfg.Build.IterationLimit)
	}
	if cfg.Build.Markers.Insert != "-" || cfg.Build.Markers.Wrap != "_" {
		t.Errorf("Default markers = %q/%q, want -/_", cfg.Build.Markers.Insert, cfg.Build.Markers.Wrap)
	}
	if cfg.Build.OutputNameTemplate != "{{ .RelPath }}" {
		t.Errorf("Default output name template = %q", cfg.Build.OutputNameTemplate)
	}
	if cfg.Build.DebounceMsec != 250 {
		t.Errorf("Default debounce = %d, want 250", cfg.Build.DebounceMsec)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
build:
  source_dir: site
  output_dir: out
  output_name_template: "{{ .Stem }}.out{{ .Ext }}"
  tag_keyword: put
  file_path_attribute: src
  json_path_attribute: at
  iteration_limit: 10
  strict_cycles: true
  markers:
    insert: "+"
    wrap: "~"
  debounce_msec: 100
logging:
  console:
    level: normal
  file:
    level: debug
    destination: /tmp/test.log
    mode: append
reporting:
  destination: /tmp/test-report.zip
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Build.TagKeyword != "put" {
		t.Errorf("TagKeyword = %q, want %q", cfg.Build.TagKeyword, "put")
	}
	if cfg.Build.IterationLimit != 10 {
		t.Errorf("IterationLimit = %d, want 10", cfg.Build.IterationLimit)
	}
	if !cfg.Build.StrictCycles {
		t.Error("Expected StrictCycles to be true")
	}
	if cfg.Build.Markers.Insert != "+" || cfg.Build.Markers.Wrap != "~" {
		t.Errorf("Markers = %q/%q, want +/~", cfg.Build.Markers.Insert, cfg.Build.Markers.Wrap)
	}
	if cfg.Logging.FileLogger.Level != "debug" {
		t.Errorf("File log level = %q, want debug", cfg.Logging.FileLogger.Level)
	}
	if cfg.Reporting.Destination != "/tmp/test-report.zip" {
		t.Errorf("Reporting destination = %q", cfg.Reporting.Destination)
	}
}

func TestLoadConfiguration_PartialFile(t *testing.T) {
	// values absent from the file keep their template defaults
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `build:
  iteration_limit: 3
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if cfg.Build.IterationLimit != 3 {
		t.Errorf("IterationLimit = %d, want 3", cfg.Build.IterationLimit)
	}
	if cfg.Build.TagKeyword != "insert" {
		t.Errorf("TagKeyword lost its default: %q", cfg.Build.TagKeyword)
	}
}

func TestLoadConfiguration_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unknown field",
			content: "version: 1\nno_such_section:\n  x: 1\n",
		},
		{
			name:    "bad version",
			content: "version: 2\n",
		},
		{
			name:    "empty tag keyword",
			content: "build:\n  tag_keyword: \"\"\n",
		},
		{
			name:    "negative iteration limit",
			content: "build:\n  iteration_limit: -1\n",
		},
		{
			name:    "multi character marker",
			content: "build:\n  markers:\n    insert: \"--\"\n",
		},
		{
			name:    "identical markers",
			content: "build:\n  markers:\n    insert: \"-\"\n    wrap: \"-\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}
			if _, err := LoadConfiguration(configPath); err == nil {
				t.Error("LoadConfiguration() accepted invalid configuration")
			}
		})
	}
}

func TestLoadConfiguration_MissingFile(t *testing.T) {
	if _, err := LoadConfiguration(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfiguration() accepted a missing file")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if !strings.Contains(string(data), "tag_keyword") {
		t.Error("Prepare() output does not look like the configuration template")
	}
	// the output name template must survive expansion verbatim
	if !strings.Contains(string(data), "{{ .RelPath }}") {
		t.Error("Prepare() expanded the output name template")
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	for _, frag := range []string{"version: 1", "tag_keyword: insert", "debounce_msec: 250"} {
		if !strings.Contains(string(data), frag) {
			t.Errorf("Dump() output does not contain %q", frag)
		}
	}
}
