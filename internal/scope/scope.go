// Package scope decides which documents and rules participate in
// synchronization.
//
// Participation is controlled by a plain-text config file discovered by
// walking upward from the document's folder. The file is line-oriented:
//
//	# comment line
//	@disable-transfer     suppress all export/sync for this scope
//	Test*                 glob pattern excluding matching rule names
//	ExampleRule           exact-name exclusion
//
// A document with no config file anywhere up its ancestor chain is
// entirely untracked: no folder, no watch, no export.
package scope

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFileName is the fixed name of the per-folder config file.
const ConfigFileName = ".ruleignore"

// maxSearchDepth bounds the upward walk in FindConfig. Keeps malformed
// or disconnected path strings from walking forever and caps the
// worst-case search cost.
const maxSearchDepth = 10

// disableDirective suppresses all transfer for the scope when present
// on its own line (case-insensitive).
const disableDirective = "@disable-transfer"

// Config is the parsed result of one config file.
type Config struct {
	// Path is the absolute path of the config file.
	Path string

	// TransferEnabled is false when the file contains the
	// @disable-transfer directive. Defaults to true.
	TransferEnabled bool

	// Patterns holds the ignore glob patterns in file order.
	Patterns []string
}

// GoverningFolder returns the folder containing the config file, which
// anchors the document's rule folder.
func (c Config) GoverningFolder() string {
	return filepath.Dir(c.Path)
}

// FindConfig walks from startFolder upward through parent folders
// looking for the config file. It returns the config file path and
// true on the first hit, or ("", false) when the filesystem root is
// reached or the depth bound is exhausted.
func FindConfig(startFolder string) (string, bool) {
	dir := filepath.Clean(startFolder)

	for depth := 0; depth < maxSearchDepth; depth++ {
		candidate := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Filesystem root.
			return "", false
		}
		dir = parent
	}

	return "", false
}

// ParseConfig reads a config file line by line.
//
// Blank lines and lines whose first non-whitespace character is '#'
// are skipped. A line equal to @disable-transfer (case-insensitive)
// clears TransferEnabled and contributes no pattern. Every other
// non-empty line, trimmed, becomes a pattern in file order.
//
// A read failure yields an empty pattern list with TransferEnabled
// still true, plus the error for the caller to log; the absence of a
// config is not an error and is distinguished by FindConfig returning
// false before parsing is ever attempted.
func ParseConfig(path string) (Config, error) {
	cfg := Config{
		Path:            path,
		TransferEnabled: true,
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.EqualFold(line, disableDirective) {
			cfg.TransferEnabled = false
			continue
		}
		cfg.Patterns = append(cfg.Patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("failed to scan config %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve combines FindConfig and ParseConfig for a document folder.
// The second return value is false when the folder is untracked (no
// config anywhere up the chain). Parse failures degrade to an empty
// config rather than an error; the caller logs err as a diagnostic.
func Resolve(startFolder string) (Config, bool, error) {
	path, ok := FindConfig(startFolder)
	if !ok {
		return Config{}, false, nil
	}
	cfg, err := ParseConfig(path)
	return cfg, true, err
}
