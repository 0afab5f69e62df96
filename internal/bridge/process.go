package bridge

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rulesync/rulesync/internal/rulepath"
	"github.com/rulesync/rulesync/internal/scope"
	"github.com/rulesync/rulesync/internal/store"
	"github.com/rulesync/rulesync/internal/watch"
)

// onRawEvent receives watcher notifications on arbitrary goroutines.
//
// The claim insert is the debounce: a burst of OS notifications for
// the same logical change collapses to at most one in-flight handler
// per (path, kind). The claim is released when the posted work
// finishes, or immediately if posting fails.
func (b *Bridge) onRawEvent(ev watch.Event) {
	if b.closing.Load() {
		return
	}

	key := claimKey{path: ev.Path, kind: ev.Kind}
	if _, loaded := b.claims.LoadOrStore(key, struct{}{}); loaded {
		return
	}

	posted := b.post(func() {
		defer b.claims.Delete(key)
		b.processEvent(ev)
	})
	if !posted {
		b.claims.Delete(key)
	}
}

// processEvent runs on the owner goroutine and applies one file change
// to the store. Every failure path is a logged diagnostic; nothing
// here may take the process down.
func (b *Bridge) processEvent(ev watch.Event) {
	if b.closing.Load() || b.store == nil {
		return
	}

	doc, ok := b.resolveDocument(ev.Path)
	if !ok {
		b.logger.Printf("No open document for changed file %s, dropping %s event", ev.Path, ev.Kind)
		return
	}

	cfg, tracked, err := scope.Resolve(filepath.Dir(doc.Path))
	if err != nil {
		b.logger.Printf("Config diagnostic for %s: %v", doc.ID, err)
	}
	if !tracked || !cfg.TransferEnabled {
		return
	}

	ruleName := rulepath.RuleNameFromPath(ev.Path)
	if scope.ShouldIgnore(ruleName, cfg.Patterns) {
		return
	}

	switch ev.Kind {
	case watch.Modified:
		b.applyModified(doc, ruleName, ev.Path)
	case watch.Created:
		b.applyCreated(doc, ruleName, ev.Path)
	case watch.Deleted:
		b.applyDeleted(doc, ruleName)
	case watch.Renamed:
		b.applyRenamed(doc, ruleName, ev)
	}
}

// resolveDocument maps a changed file back to an open document by its
// parent folder name. When no folder matches, the active document is
// the fallback; that can misattribute an edit, so the fallback is
// logged loudly enough to diagnose.
func (b *Bridge) resolveDocument(path string) (store.Document, bool) {
	parent := rulepath.OwningFolderName(path)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, doc := range b.open {
		if strings.EqualFold(rulepath.FolderName(doc.Name, doc.Extension), parent) {
			return doc, true
		}
	}

	if b.active != "" {
		if doc, ok := b.open[b.active]; ok {
			b.logger.Printf("WARNING: Folder %s matches no open document, attributing change to active document %s", parent, doc.ID)
			return doc, true
		}
	}
	return store.Document{}, false
}

func (b *Bridge) applyModified(doc store.Document, ruleName, path string) {
	_, found, err := b.store.GetRule(doc, ruleName)
	if err != nil {
		b.logger.Printf("Store lookup failed for rule %s: %v", ruleName, err)
		return
	}
	if !found {
		b.logger.Printf("Modified file %s matches no live rule in %s, ignoring", path, doc.ID)
		return
	}

	text, err := os.ReadFile(path)
	if err != nil {
		b.logger.Printf("Failed to read %s: %v", path, err)
		return
	}
	if err := b.store.SetRuleText(doc, ruleName, string(text)); err != nil {
		b.logger.Printf("Failed to update rule %s in %s: %v", ruleName, doc.ID, err)
		return
	}

	b.notifier.RuleChanged(doc, "modified", ruleName)
	b.logger.Printf("Rule %s in %s updated from %s", ruleName, doc.ID, path)
}

func (b *Bridge) applyCreated(doc store.Document, ruleName, path string) {
	_, found, err := b.store.GetRule(doc, ruleName)
	if err != nil {
		b.logger.Printf("Store lookup failed for rule %s: %v", ruleName, err)
		return
	}
	if found {
		b.logger.Printf("Created file %s duplicates existing rule %s in %s, ignoring", path, ruleName, doc.ID)
		return
	}

	text, err := os.ReadFile(path)
	if err != nil {
		b.logger.Printf("Failed to read %s: %v", path, err)
		return
	}
	if err := b.store.AddRule(doc, ruleName, string(text)); err != nil {
		b.logger.Printf("Failed to add rule %s to %s: %v", ruleName, doc.ID, err)
		return
	}

	b.notifier.RuleChanged(doc, "created", ruleName)
	b.logger.Printf("Rule %s added to %s from %s", ruleName, doc.ID, path)
}

// applyDeleted removes the rule from the store. Deleting is the one
// mutation that silently shrinks the rule set, so it logs at elevated
// visibility even on success.
func (b *Bridge) applyDeleted(doc store.Document, ruleName string) {
	_, found, err := b.store.GetRule(doc, ruleName)
	if err != nil {
		b.logger.Printf("Store lookup failed for rule %s: %v", ruleName, err)
		return
	}
	if !found {
		b.logger.Printf("Deleted file for %s matches no live rule in %s", ruleName, doc.ID)
		return
	}

	if err := b.store.DeleteRule(doc, ruleName); err != nil {
		if !errors.Is(err, store.ErrRuleNotFound) {
			b.logger.Printf("Failed to delete rule %s from %s: %v", ruleName, doc.ID, err)
		}
		return
	}

	b.notifier.RuleChanged(doc, "deleted", ruleName)
	b.logger.Printf("WARNING: Rule %s deleted from %s because its file was removed", ruleName, doc.ID)
}

// applyRenamed implements rename as delete+recreate, since the store
// addresses rules by name.
func (b *Bridge) applyRenamed(doc store.Document, ruleName string, ev watch.Event) {
	if rulepath.IsSwapRename(ev.OldPath, ev.Path) {
		// Editor backup/swap artifact, not a user rename.
		return
	}

	oldName := rulepath.RuleNameFromPath(ev.OldPath)
	old, found, err := b.store.GetRule(doc, oldName)
	if err != nil {
		b.logger.Printf("Store lookup failed for rule %s: %v", oldName, err)
		return
	}
	if !found {
		b.logger.Printf("Renamed file %s matches no live rule in %s, ignoring", ev.OldPath, doc.ID)
		return
	}

	if err := b.store.DeleteRule(doc, oldName); err != nil {
		b.logger.Printf("Failed to delete rule %s during rename: %v", oldName, err)
		return
	}
	if err := b.store.AddRule(doc, ruleName, old.Text); err != nil {
		b.logger.Printf("Failed to recreate rule %s as %s: %v", oldName, ruleName, err)
		return
	}

	b.notifier.RuleChanged(doc, "renamed", ruleName)
	b.logger.Printf("WARNING: Rule %s renamed to %s in %s", oldName, ruleName, doc.ID)
}
