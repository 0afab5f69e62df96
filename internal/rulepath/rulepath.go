// Package rulepath computes the deterministic on-disk layout for a
// document's rule files.
//
// Every tracked document maps to exactly one folder:
//
//	<governingFolder>/ilogic/<docBaseName>_<docExtension>/
//
// where governingFolder is the folder containing the document's
// nearest-ancestor ignore config. Each rule becomes one file inside
// that folder, named <ruleName>.vb. The folder name doubles as the
// re-association key: when a file change arrives, the parent folder
// name is matched back against open documents.
//
// The mapping is intentionally collision-blind. Two documents with the
// same base name and extension under the same governing folder compute
// the same path; callers detect and report that instead of this
// package inventing suffixes.
package rulepath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RuleExt is the extension of every exported rule file.
const RuleExt = ".vb"

// transferDir is the fixed directory created under the governing folder.
const transferDir = "ilogic"

// FolderName returns the per-document folder name for a document with
// the given base name and extension (extension without a leading dot).
func FolderName(baseName, extension string) string {
	return baseName + "_" + extension
}

// MapFolder returns the rule folder for a document. Pure function: no
// filesystem access, identical inputs always yield the identical path.
func MapFolder(governingFolder, baseName, extension string) string {
	return filepath.Join(governingFolder, transferDir, FolderName(baseName, extension))
}

// EnsureFolder creates the rule folder if it does not exist.
// Safe to call repeatedly.
func EnsureFolder(folder string) error {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("failed to create rule folder %s: %w", folder, err)
	}
	return nil
}

// RuleFileName returns the file name for a rule.
func RuleFileName(ruleName string) string {
	return ruleName + RuleExt
}

// RuleFilePath returns the full path of a rule file inside folder.
func RuleFilePath(folder, ruleName string) string {
	return filepath.Join(folder, RuleFileName(ruleName))
}

// RuleNameFromPath derives the rule name from a rule file path by
// stripping the directory and the rule extension. Only the rule
// extension is removed, so editor artifacts like "Calc.vb~" keep their
// full base name rather than colliding with "Calc".
func RuleNameFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), RuleExt)
}

// OwningFolderName returns the name of the immediate parent folder of
// a changed rule file. This is the key compared against FolderName
// results when resolving which document a notification belongs to.
func OwningFolderName(path string) string {
	return filepath.Base(filepath.Dir(path))
}

// IsSwapRename reports whether a rename pair is an editor-internal
// backup/swap artifact: the old file name plus a single trailing tilde
// equals the new file name. Such renames must not be interpreted as a
// user renaming a rule.
func IsSwapRename(oldPath, newPath string) bool {
	return filepath.Base(oldPath)+"~" == filepath.Base(newPath)
}
