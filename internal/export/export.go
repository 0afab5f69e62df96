// Package export dumps rule text from the store into a document's rule
// folder (store → files).
//
// Exports are the echo-prone direction: every file the engine writes
// is inside a folder the watch manager observes. The engine is guarded
// by a single reentrancy flag shared across the whole bridge instance,
// so an export request arriving while one runs is dropped outright
// rather than queued, which keeps an export's own writes from looping
// back into the store.
package export

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	atomicfile "github.com/natefinch/atomic"

	"github.com/rulesync/rulesync/internal/rulepath"
	"github.com/rulesync/rulesync/internal/scope"
	"github.com/rulesync/rulesync/internal/store"
)

// WatchRegistrar registers or refreshes a document's folder watch.
// Satisfied by *watch.Manager.
type WatchRegistrar interface {
	EnsureWatch(docID, folder string) error
}

// Engine writes rule files for one bridge instance.
type Engine struct {
	store   store.Store
	watches WatchRegistrar
	logger  *log.Logger

	// running is the bridge-wide reentrancy flag.
	running atomic.Bool
}

// NewEngine creates an export engine. watches may be nil when no
// watching is wanted (one-shot CLI export). If logger is nil, a
// default stderr logger is used.
func NewEngine(st store.Store, watches WatchRegistrar, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[export] ", log.LstdFlags)
	}
	return &Engine{
		store:   st,
		watches: watches,
		logger:  logger,
	}
}

// ExportAll writes every non-ignored rule of doc into its mapped
// folder, overwriting existing files, then registers (or refreshes)
// the document's watch so export and watching are established together.
//
// If another export is already in flight on this engine, the request
// is dropped and ExportAll returns nil.
func (e *Engine) ExportAll(doc store.Document, cfg scope.Config) error {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Printf("Export already running, dropping request for %s", doc.ID)
		return nil
	}
	defer e.running.Store(false)

	folder := rulepath.MapFolder(cfg.GoverningFolder(), doc.Name, doc.Extension)
	if err := rulepath.EnsureFolder(folder); err != nil {
		return err
	}

	rules, err := e.store.ListRules(doc)
	if err != nil {
		return fmt.Errorf("failed to list rules for %s: %w", doc.ID, err)
	}

	var written, skipped int
	for _, rule := range rules {
		if scope.ShouldIgnore(rule.Name, cfg.Patterns) {
			skipped++
			continue
		}
		path := rulepath.RuleFilePath(folder, rule.Name)
		if err := atomicfile.WriteFile(path, bytes.NewReader([]byte(rule.Text))); err != nil {
			e.logger.Printf("WARNING: Failed to export rule %s: %v", rule.Name, err)
			continue
		}
		written++
	}

	e.logger.Printf("Exported %s: %d rules written, %d ignored", doc.ID, written, skipped)

	if e.watches != nil {
		if err := e.watches.EnsureWatch(doc.ID, folder); err != nil {
			return fmt.Errorf("export succeeded but watch registration failed: %w", err)
		}
	}
	return nil
}
