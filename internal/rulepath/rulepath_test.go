package rulepath

import (
	"os"
	"path/filepath"
	"testing"
)

// TestMapFolder verifies the deterministic folder mapping.
func TestMapFolder(t *testing.T) {
	got := MapFolder("/projects/widget", "Part1", "ipt")
	want := filepath.Join("/projects/widget", "ilogic", "Part1_ipt")
	if got != want {
		t.Errorf("MapFolder() = %q, want %q", got, want)
	}

	// Pure function: calling twice yields the identical string.
	if again := MapFolder("/projects/widget", "Part1", "ipt"); again != got {
		t.Errorf("MapFolder() not deterministic: %q vs %q", again, got)
	}
}

// TestFolderName verifies the re-association key format.
func TestFolderName(t *testing.T) {
	if got := FolderName("Assembly2", "iam"); got != "Assembly2_iam" {
		t.Errorf("FolderName() = %q, want %q", got, "Assembly2_iam")
	}
}

// TestEnsureFolder_Idempotent verifies repeated creation succeeds.
func TestEnsureFolder_Idempotent(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "ilogic", "Part1_ipt")

	if err := EnsureFolder(folder); err != nil {
		t.Fatalf("EnsureFolder() failed: %v", err)
	}
	if err := EnsureFolder(folder); err != nil {
		t.Fatalf("Second EnsureFolder() failed: %v", err)
	}

	info, err := os.Stat(folder)
	if err != nil {
		t.Fatalf("Stat() failed: %v", err)
	}
	if !info.IsDir() {
		t.Error("EnsureFolder() did not create a directory")
	}
}

// TestRuleNameFromPath verifies rule name derivation from file paths.
func TestRuleNameFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/proj/ilogic/Part1_ipt/Calc.vb", "Calc"},
		{"Calc.vb", "Calc"},
		{"/proj/ilogic/Part1_ipt/My.Rule.vb", "My.Rule"},
		{"/proj/ilogic/Part1_ipt/Calc.vb~", "Calc.vb~"},
	}

	for _, tt := range tests {
		if got := RuleNameFromPath(tt.path); got != tt.want {
			t.Errorf("RuleNameFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

// TestRuleFilePath verifies rule file path construction.
func TestRuleFilePath(t *testing.T) {
	got := RuleFilePath("/proj/ilogic/Part1_ipt", "Calc")
	want := filepath.Join("/proj/ilogic/Part1_ipt", "Calc.vb")
	if got != want {
		t.Errorf("RuleFilePath() = %q, want %q", got, want)
	}
}

// TestOwningFolderName verifies parent folder extraction.
func TestOwningFolderName(t *testing.T) {
	if got := OwningFolderName("/proj/ilogic/Part1_ipt/Calc.vb"); got != "Part1_ipt" {
		t.Errorf("OwningFolderName() = %q, want %q", got, "Part1_ipt")
	}
}

// TestIsSwapRename verifies the editor swap-file rename guard.
func TestIsSwapRename(t *testing.T) {
	tests := []struct {
		oldPath string
		newPath string
		want    bool
	}{
		{"/p/Calc.vb", "/p/Calc.vb~", true},
		{"/p/Calc.vb", "/q/Calc.vb~", true},
		{"/p/Calc.vb", "/p/Calc2.vb", false},
		{"/p/Calc.vb~", "/p/Calc.vb", false},
		{"/p/Calc.vb", "/p/Calc.vb~~", false},
	}

	for _, tt := range tests {
		if got := IsSwapRename(tt.oldPath, tt.newPath); got != tt.want {
			t.Errorf("IsSwapRename(%q, %q) = %v, want %v", tt.oldPath, tt.newPath, got, tt.want)
		}
	}
}
