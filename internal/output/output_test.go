package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/bnema/displaytoggle/internal/display"
)

var sampleList = DisplayList{
	Backend: "simulated",
	Displays: []display.Display{
		{ID: 1, Name: "Built-in Retina Display", On: true, BuiltIn: true},
		{ID: 2, Name: "DELL U2720Q", On: false},
	},
}

func withFormat(t *testing.T, f Format) {
	t.Helper()
	old := OutputFormat
	OutputFormat = f
	t.Cleanup(func() { OutputFormat = old })
}

func TestFprintYAML(t *testing.T) {
	withFormat(t, FormatYAML)

	var buf bytes.Buffer
	if err := Fprint(&buf, sampleList); err != nil {
		t.Fatal(err)
	}

	if bytes.Count(buf.Bytes(), []byte("\n")) <= 1 {
		t.Errorf("YAML output should be multi-line, got:\n%s", buf.String())
	}

	var decoded DisplayList
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if len(decoded.Displays) != 2 || decoded.Displays[0].Name != "Built-in Retina Display" {
		t.Errorf("unexpected decoded displays: %+v", decoded.Displays)
	}
	if !decoded.Displays[0].BuiltIn {
		t.Error("built_in should survive the round trip")
	}
}

func TestFprintJSON(t *testing.T) {
	withFormat(t, FormatJSON)

	var buf bytes.Buffer
	if err := Fprint(&buf, sampleList); err != nil {
		t.Fatal(err)
	}

	if strings.Count(strings.TrimSpace(buf.String()), "\n") != 0 {
		t.Errorf("compact JSON should be a single line, got:\n%s", buf.String())
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["backend"] != "simulated" {
		t.Errorf("backend: got %v", decoded["backend"])
	}
}

func TestFprintText(t *testing.T) {
	withFormat(t, FormatText)

	var buf bytes.Buffer
	if err := Fprint(&buf, sampleList); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"ID", "NAME", "Built-in Retina Display", "DELL U2720Q", "built-in", "external", "1 of 2 on"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output should contain %q, got:\n%s", want, out)
		}
	}

	// Values without a text form fall back to YAML
	buf.Reset()
	if err := Fprint(&buf, map[string]int{"displays": 2}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "displays: 2" {
		t.Errorf("unexpected fallback output %q", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"text", "yaml", "json"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat should reject xml")
	}
}

func TestResultText(t *testing.T) {
	tests := []struct {
		name  string
		value Texter
		want  []string
	}{
		{"preferences", Preferences{AutoDisableBuiltin: true}, []string{"Auto-disable built-in display:", "on", "Launch at login:", "off"}},
		{"running status", Status{Running: true, Backend: "hyprland", Displays: 3, On: 2}, []string{"Running", "hyprland", "2 of 3 displays on"}},
		{"stopped status", Status{}, []string{"Not running"}},
		{"status error", Status{Running: true, LastError: "commit failed"}, []string{"Last error: commit failed"}},
		{"change", Change{Action: "off", ID: 2, Name: "DELL U2720Q"}, []string{"DELL U2720Q turned off"}},
		{"restore", Change{Action: "restore", Enabled: true}, []string{"All displays on"}},
		{"empty list", DisplayList{}, []string{"No displays found"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.value.Text()
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("Text() = %q, want it to contain %q", got, want)
				}
			}
		})
	}
}

func TestYAML(t *testing.T) {
	out, err := YAML(Preferences{LaunchAtLogin: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "launch_at_login: true") {
		t.Errorf("unexpected YAML %q", out)
	}
}
