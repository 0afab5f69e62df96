// Package watch maintains one file-system watch per tracked document.
//
// Each watch is non-recursive, rooted at the document's rule folder,
// and filtered to rule files. Raw fsnotify notifications are converted
// into Events: in particular, fsnotify reports a rename as a bare
// Rename on the old name followed by a Create on the new name, so the
// manager pairs the two inside a short window and emits a single
// Renamed event; an unpaired Rename matures into Deleted.
package watch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rulesync/rulesync/internal/rulepath"
)

// defaultRenameWindow is how long a bare Rename waits for its matching
// Create before being reported as a deletion.
const defaultRenameWindow = 250 * time.Millisecond

// Manager owns the docID → watch handle map. At most one live handle
// exists per document; replacing a folder updates the existing handle
// rather than creating a second one.
type Manager struct {
	handler      Handler
	logger       *log.Logger
	renameWindow time.Duration

	mu      sync.Mutex
	handles map[string]*handle
}

// NewManager creates a watch manager delivering events to handler.
// If logger is nil, a default stderr logger is used.
func NewManager(handler Handler, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[watch] ", log.LstdFlags)
	}
	return &Manager{
		handler:      handler,
		logger:       logger,
		renameWindow: defaultRenameWindow,
		handles:      make(map[string]*handle),
	}
}

// EnsureWatch guarantees a live watch for docID rooted at folder.
//
// If no handle exists one is created. If a handle exists with a
// different root, the root is updated in place; when that update
// fails, the stale handle is torn down so the next call starts fresh.
func (m *Manager) EnsureWatch(docID, folder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.handles[docID]; ok {
		if h.folder == folder {
			return nil
		}
		if err := h.watcher.Add(folder); err != nil {
			delete(m.handles, docID)
			h.stop()
			return fmt.Errorf("failed to move watch for %s to %s: %w", docID, folder, err)
		}
		if err := h.watcher.Remove(h.folder); err != nil {
			m.logger.Printf("Failed to unwatch old folder %s: %v", h.folder, err)
		}
		m.logger.Printf("Watch for %s moved: %s -> %s", docID, h.folder, folder)
		h.folder = folder
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher for %s: %w", docID, err)
	}
	if err := watcher.Add(folder); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", folder, err)
	}

	h := &handle{
		docID:        docID,
		folder:       folder,
		watcher:      watcher,
		done:         make(chan struct{}),
		renameWindow: m.renameWindow,
		handler:      m.handler,
		logger:       m.logger,
	}
	m.handles[docID] = h

	h.wg.Add(1)
	go h.run()

	m.logger.Printf("Watching %s for %s", folder, docID)
	return nil
}

// TearDown disables event delivery for docID and releases the OS
// watch. Safe to call for unknown ids.
func (m *Manager) TearDown(docID string) {
	m.mu.Lock()
	h, ok := m.handles[docID]
	if ok {
		delete(m.handles, docID)
	}
	m.mu.Unlock()

	if ok {
		h.stop()
		m.logger.Printf("Watch for %s torn down", docID)
	}
}

// TearDownAll tears down every remaining handle. Idempotent; invoked
// once at shutdown.
func (m *Manager) TearDownAll() {
	m.mu.Lock()
	handles := make([]*handle, 0, len(m.handles))
	for id, h := range m.handles {
		handles = append(handles, h)
		delete(m.handles, id)
	}
	m.mu.Unlock()

	for _, h := range handles {
		h.stop()
	}
	if len(handles) > 0 {
		m.logger.Printf("Tore down %d watches", len(handles))
	}
}

// WatchedFolder returns the folder currently watched for docID.
func (m *Manager) WatchedFolder(docID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[docID]
	if !ok {
		return "", false
	}
	return h.folder, true
}

// handle is one live OS watch over one document folder.
type handle struct {
	docID        string
	folder       string
	watcher      *fsnotify.Watcher
	done         chan struct{}
	wg           sync.WaitGroup
	renameWindow time.Duration
	handler      Handler
	logger       *log.Logger

	// pending rename state, guarded by pendingMu because the expiry
	// timer fires on its own goroutine.
	pendingMu   sync.Mutex
	pendingOld  string
	pendingStop *time.Timer
}

func (h *handle) stop() {
	select {
	case <-h.done:
		return // already stopped
	default:
	}
	close(h.done)
	if err := h.watcher.Close(); err != nil {
		h.logger.Printf("Failed to close watcher for %s: %v", h.docID, err)
	}
	h.wg.Wait()

	h.pendingMu.Lock()
	if h.pendingStop != nil {
		h.pendingStop.Stop()
	}
	h.pendingOld = ""
	h.pendingMu.Unlock()
}

// run converts raw fsnotify notifications into Events until the handle
// is stopped.
func (h *handle) run() {
	defer h.wg.Done()

	for {
		select {
		case <-h.done:
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			h.convert(event)

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Printf("Watcher error for %s: %v", h.docID, err)
		}
	}
}

func (h *handle) convert(event fsnotify.Event) {
	switch {
	case event.Has(fsnotify.Rename):
		h.beginRename(event.Name)

	case event.Has(fsnotify.Create):
		if old, ok := h.takePendingRename(); ok {
			h.handler(Event{Kind: Renamed, Path: event.Name, OldPath: old})
			return
		}
		if isRuleFile(event.Name) {
			h.handler(Event{Kind: Created, Path: event.Name})
		}

	case event.Has(fsnotify.Write):
		if isRuleFile(event.Name) {
			h.handler(Event{Kind: Modified, Path: event.Name})
		}

	case event.Has(fsnotify.Remove):
		if isRuleFile(event.Name) {
			h.handler(Event{Kind: Deleted, Path: event.Name})
		}
	}
	// Chmod and other events are ignored.
}

// beginRename stashes the old path of a rename and arms the expiry
// timer. If another rename was already pending, the earlier one
// matures into a deletion immediately.
//
// Renames of non-rule files are not stashed at all: pairing one with a
// later Create would relabel a genuine rule creation as a rename of a
// file the store has never heard of.
func (h *handle) beginRename(oldPath string) {
	if !isRuleFile(oldPath) {
		return
	}
	h.pendingMu.Lock()
	prev := h.pendingOld
	if h.pendingStop != nil {
		h.pendingStop.Stop()
	}
	h.pendingOld = oldPath
	h.pendingStop = time.AfterFunc(h.renameWindow, func() { h.expireRename(oldPath) })
	h.pendingMu.Unlock()

	if prev != "" && isRuleFile(prev) {
		h.handler(Event{Kind: Deleted, Path: prev})
	}
}

// takePendingRename consumes the pending rename, if any.
func (h *handle) takePendingRename() (string, bool) {
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()
	if h.pendingOld == "" {
		return "", false
	}
	old := h.pendingOld
	h.pendingOld = ""
	if h.pendingStop != nil {
		h.pendingStop.Stop()
		h.pendingStop = nil
	}
	return old, true
}

// expireRename fires when no Create paired with the rename in time:
// the file left the watched folder, which is a deletion from the
// store's point of view.
func (h *handle) expireRename(oldPath string) {
	h.pendingMu.Lock()
	if h.pendingOld != oldPath {
		h.pendingMu.Unlock()
		return
	}
	h.pendingOld = ""
	h.pendingStop = nil
	h.pendingMu.Unlock()

	select {
	case <-h.done:
		return
	default:
	}

	if isRuleFile(oldPath) {
		h.handler(Event{Kind: Deleted, Path: oldPath})
	}
}

func isRuleFile(path string) bool {
	return filepath.Ext(path) == rulepath.RuleExt
}
