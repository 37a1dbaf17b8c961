package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	Name     string   `toml:"test.name" env:"TEST_NAME"`
	Enabled  bool     `toml:"test.enabled" env:"TEST_ENABLED"`
	Count    int      `toml:"test.count" env:"TEST_COUNT"`
	Ratio    float64  `toml:"test.ratio" env:"TEST_RATIO"`
	Tags     []string `toml:"test.tags" env:"TEST_TAGS"`
	DeepName string   `toml:"outer.inner.name" env:"DEEP_NAME"`
	Untagged string
}

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleTOML = `
[test]
name = "from file"
enabled = true
count = 42
ratio = 2
tags = ["a", "b"]

[outer.inner]
name = "deep"
`

func TestLoadConfigFromTOML(t *testing.T) {
	opts := &testOptions{Config: writeTOML(t, sampleTOML), Untagged: "kept"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := testOptions{
		Config:   opts.Config,
		Name:     "from file",
		Enabled:  true,
		Count:    42,
		Ratio:    2,
		Tags:     []string{"a", "b"},
		DeepName: "deep",
		Untagged: "kept",
	}
	if !reflect.DeepEqual(*opts, want) {
		t.Errorf("options = %+v, want %+v", *opts, want)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("MAGNIFIER_TEST_NAME", "from env")
	t.Setenv("MAGNIFIER_TEST_COUNT", "7")
	t.Setenv("MAGNIFIER_TEST_TAGS", " x , y ")

	opts := &testOptions{Config: writeTOML(t, sampleTOML)}

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().IntVar(&opts.Count, "count", 1, "")
	cmd.Flags().BoolVar(&opts.Enabled, "enabled", false, "")
	if err := cmd.Flags().Parse([]string{"--count=99"}); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"env beats file", opts.Name, "from env"},
		{"flag beats env", opts.Count, 99},
		{"file beats unset flag default", opts.Enabled, true},
		{"env list is trimmed", opts.Tags, []string{"x", "y"}},
		{"file only", opts.DeepName, "deep"},
	}
	for _, tt := range tests {
		if !reflect.DeepEqual(tt.got, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), Name: "default"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed for a missing file: %v", err)
	}
	if opts.Name != "default" {
		t.Errorf("Name = %q, want default kept", opts.Name)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		toml    string
		env     map[string]string
		wantErr string
	}{
		{"invalid toml", "[test\nbroken", nil, "failed to parse TOML"},
		{"type mismatch", "[test]\ncount = \"many\"\n", nil, "test.count"},
		{"bad env int", "", map[string]string{"MAGNIFIER_TEST_COUNT": "ten"}, "MAGNIFIER_TEST_COUNT"},
		{"bad env bool", "", map[string]string{"MAGNIFIER_TEST_ENABLED": "maybe"}, "MAGNIFIER_TEST_ENABLED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := &testOptions{Config: writeTOML(t, tt.toml)}
			err := LoadConfig(opts, nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigRejectsNonPointer(t *testing.T) {
	if err := LoadConfig(testOptions{}, nil); err == nil {
		t.Error("LoadConfig accepted a struct value")
	}
}

func TestLookupPath(t *testing.T) {
	doc := map[string]any{
		"root": "r",
		"a": map[string]any{
			"leaf": "l",
			"b":    map[string]any{"c": int64(3)},
		},
	}
	tests := []struct {
		path string
		want any
	}{
		{"root", "r"},
		{"a.leaf", "l"},
		{"a.b.c", int64(3)},
		{"a.missing", nil},
		{"root.below", nil},
		{"nope", nil},
	}
	for _, tt := range tests {
		if got := lookupPath(doc, tt.path); got != tt.want {
			t.Errorf("lookupPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestAssign(t *testing.T) {
	var s struct {
		Ratio float64
		Count int
		Tags  []string
	}
	v := reflect.ValueOf(&s).Elem()

	if err := assignValue(v.FieldByName("Ratio"), int64(3)); err != nil || s.Ratio != 3 {
		t.Errorf("assignValue(int64) -> %v, %v", s.Ratio, err)
	}
	if err := assignString(v.FieldByName("Ratio"), "1.5"); err != nil || s.Ratio != 1.5 {
		t.Errorf("assignString(1.5) -> %v, %v", s.Ratio, err)
	}
	if err := assignValue(v.FieldByName("Count"), 2.5); err == nil {
		t.Error("assignValue accepted a float for an int field")
	}
	if err := assignValue(v.FieldByName("Tags"), []any{"a", 1}); err == nil {
		t.Error("assignValue accepted a mixed list")
	}
	if s.Tags != nil {
		t.Errorf("Tags = %v, want untouched after error", s.Tags)
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := []struct {
		field string
		want  string
	}{
		{"Port", "port"},
		{"LoggingLevel", "logging-level"},
		{"CaptureFPS", "capture-fps"},
		{"DisplayJPEGQuality", "display-jpeg-quality"},
		{"TorchLED", "torch-led"},
		{"UIQueueSize", "ui-queue-size"},
		{"CaptureBindTimeoutMs", "capture-bind-timeout-ms"},
	}
	for _, tt := range tests {
		if got := fieldNameToFlag(tt.field); got != tt.want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
}
