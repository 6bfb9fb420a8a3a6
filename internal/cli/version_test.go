package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	SetBuildInfo("1.2.3", "abc1234", "2025-01-02")

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	for _, want := range []string{"renovateshard 1.2.3", "commit: abc1234", "built:  2025-01-02"} {
		if !strings.Contains(out, want) {
			t.Fatalf("Expected %q in output, got %q", want, out)
		}
	}
	if rootCmd.Version != "1.2.3 (abc1234) 2025-01-02" {
		t.Fatalf("Expected root version to be set, got %q", rootCmd.Version)
	}
}

func TestSetBuildInfo_KeepsDefaultsForEmptyValues(t *testing.T) {
	SetBuildInfo("9.9.9", "", "")
	v, c, d := BuildInfo()
	if v != "9.9.9" {
		t.Fatalf("Expected version 9.9.9, got %q", v)
	}
	if c == "" || d == "" {
		t.Fatalf("Expected commit/date to keep previous values, got %q/%q", c, d)
	}
}
