// Package bridge wires lifecycle events, the export engine, and the
// watch manager into a bidirectional synchronizer between the rule
// store and the on-disk rule folders.
//
// The store is not safe to call from multiple goroutines, so the
// bridge owns a single "owner" goroutine consuming a FIFO work queue;
// every store call in both directions runs there. Raw watcher
// callbacks arrive on arbitrary goroutines and only do two things:
// claim their (path, kind) key to collapse notification bursts, then
// post the real work onto the owner queue.
package bridge

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rulesync/rulesync/internal/export"
	"github.com/rulesync/rulesync/internal/rulepath"
	"github.com/rulesync/rulesync/internal/scope"
	"github.com/rulesync/rulesync/internal/store"
	"github.com/rulesync/rulesync/internal/watch"
)

// defaultQueueSize bounds the owner work queue. Posts beyond it are
// dropped with a diagnostic instead of blocking watcher callbacks.
const defaultQueueSize = 256

// Notifier receives high-level sync notifications for observability.
// All methods are called from the owner goroutine and must not block.
type Notifier interface {
	DocumentTracked(doc store.Document, folder string)
	ExportComplete(doc store.Document)
	RuleChanged(doc store.Document, action, ruleName string)
	WatchError(docID string, err error)
}

type nopNotifier struct{}

func (nopNotifier) DocumentTracked(store.Document, string)      {}
func (nopNotifier) ExportComplete(store.Document)               {}
func (nopNotifier) RuleChanged(store.Document, string, string)  {}
func (nopNotifier) WatchError(string, error)                    {}

// Options configures a Bridge.
type Options struct {
	// Store holds the rules. Required.
	Store store.Store

	// Logger for bridge activity. Defaults to a stderr logger.
	Logger *log.Logger

	// Notifier for observability events. Optional.
	Notifier Notifier

	// QueueSize overrides the owner queue capacity.
	QueueSize int
}

// Bridge is the sync orchestrator. Create with New, then Start; Stop
// tears down every watch and stops the owner goroutine.
type Bridge struct {
	store    store.Store
	logger   *log.Logger
	notifier Notifier

	exporter *export.Engine
	watches  *watch.Manager

	ownerCh chan func()
	done    chan struct{}
	closing atomic.Bool
	wg      sync.WaitGroup

	// claims deduplicates in-flight notifications by (path, kind).
	claims sync.Map

	mu      sync.Mutex
	open    map[string]store.Document // docID -> open document
	folders map[string]string         // docID -> mapped rule folder
	active  string                    // docID of the active document

	startOnce sync.Once
	stopOnce  sync.Once
}

// claimKey identifies one logical pending change.
type claimKey struct {
	path string
	kind watch.ChangeKind
}

// New creates a bridge. The watch manager and export engine are owned
// by the bridge and share its lifecycle.
func New(opts Options) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[bridge] ", log.LstdFlags)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	b := &Bridge{
		store:    opts.Store,
		logger:   logger,
		notifier: notifier,
		ownerCh:  make(chan func(), queueSize),
		done:     make(chan struct{}),
		open:     make(map[string]store.Document),
		folders:  make(map[string]string),
	}
	b.watches = watch.NewManager(b.onRawEvent, logger)
	b.exporter = export.NewEngine(opts.Store, b.watches, logger)
	return b
}

// Start launches the owner goroutine. Idempotent.
func (b *Bridge) Start() {
	b.startOnce.Do(func() {
		b.wg.Add(1)
		go b.run()
		b.logger.Println("Bridge started")
	})
}

// Stop shuts the bridge down: the shutdown flag is set first so every
// entry point aborts early, then all watches are torn down and the
// owner goroutine is stopped. In-flight owner work observes the flag
// and avoids further store calls. Idempotent.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.closing.Store(true)
		b.watches.TearDownAll()
		close(b.done)
		b.wg.Wait()
		b.logger.Println("Bridge stopped")
	})
}

// run is the owner goroutine: the single context every store call is
// marshaled onto. Work items execute strictly in posting order.
func (b *Bridge) run() {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			return
		case fn := <-b.ownerCh:
			fn()
		}
	}
}

// post enqueues fn onto the owner queue. Returns false when the bridge
// is closing or the queue is full; callers holding a claim must
// release it on false.
func (b *Bridge) post(fn func()) bool {
	if b.closing.Load() {
		return false
	}
	select {
	case b.ownerCh <- fn:
		return true
	default:
		b.logger.Println("WARNING: owner queue full, dropping work item")
		return false
	}
}

// OnDocumentOpened is the lifecycle entry point for a newly opened
// document. Scope is recomputed, rules exported, and the folder watch
// established.
func (b *Bridge) OnDocumentOpened(doc store.Document) {
	b.post(func() { b.trackDocument(doc, "opened") })
}

// OnDocumentSaved re-runs scope resolution and export for a saved
// document. The config file is deliberately re-read every time; it is
// never cached across saves.
func (b *Bridge) OnDocumentSaved(doc store.Document) {
	b.post(func() { b.trackDocument(doc, "saved") })
}

// OnDocumentClosedBefore tears down tracking for a closing document.
func (b *Bridge) OnDocumentClosedBefore(docID string) {
	b.post(func() { b.untrackDocument(docID) })
}

// trackDocument runs on the owner goroutine for open and save events.
func (b *Bridge) trackDocument(doc store.Document, reason string) {
	if b.closing.Load() {
		return
	}

	b.mu.Lock()
	b.open[doc.ID] = doc
	b.active = doc.ID
	b.mu.Unlock()

	cfg, tracked, err := scope.Resolve(filepath.Dir(doc.Path))
	if err != nil {
		// Parse failure degrades to an empty config; keep going.
		b.logger.Printf("Config diagnostic for %s: %v", doc.ID, err)
	}
	if !tracked {
		b.logger.Printf("Document %s %s: no config found, untracked", doc.ID, reason)
		b.dropTracking(doc.ID)
		return
	}
	if !cfg.TransferEnabled {
		b.logger.Printf("Document %s %s: transfer disabled by %s", doc.ID, reason, cfg.Path)
		b.dropTracking(doc.ID)
		return
	}

	folder := rulepath.MapFolder(cfg.GoverningFolder(), doc.Name, doc.Extension)

	if otherID, collides := b.folderCollision(doc.ID, folder); collides {
		b.logger.Printf("WARNING: Documents %s and %s map to the same folder %s; %s stays untracked",
			doc.ID, otherID, folder, doc.ID)
		b.dropTracking(doc.ID)
		return
	}

	if err := b.exporter.ExportAll(doc, cfg); err != nil {
		b.logger.Printf("Export failed for %s: %v", doc.ID, err)
		b.notifier.WatchError(doc.ID, err)
		return
	}

	b.mu.Lock()
	b.folders[doc.ID] = folder
	b.mu.Unlock()

	b.reportOrphans(doc, cfg, folder)

	b.notifier.DocumentTracked(doc, folder)
	b.notifier.ExportComplete(doc)
	b.logger.Printf("Document %s %s: tracking %s", doc.ID, reason, folder)
}

// untrackDocument runs on the owner goroutine for close events.
func (b *Bridge) untrackDocument(docID string) {
	b.watches.TearDown(docID)

	b.mu.Lock()
	delete(b.open, docID)
	delete(b.folders, docID)
	if b.active == docID {
		b.active = ""
	}
	b.mu.Unlock()

	b.logger.Printf("Document %s closed, tracking removed", docID)
}

// dropTracking removes any watch and folder mapping for a document
// that remains open but no longer participates in sync.
func (b *Bridge) dropTracking(docID string) {
	b.watches.TearDown(docID)
	b.mu.Lock()
	delete(b.folders, docID)
	b.mu.Unlock()
}

// folderCollision reports whether another open document already owns
// the mapped folder. Deterministic naming has no collision avoidance;
// the later document loses and the condition is surfaced loudly.
func (b *Bridge) folderCollision(docID, folder string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for otherID, otherFolder := range b.folders {
		if otherID != docID && strings.EqualFold(otherFolder, folder) {
			return otherID, true
		}
	}
	return "", false
}

// reportOrphans surfaces on-disk rule files that have no store
// counterpart. The store stays authoritative: nothing is imported
// until a real file event arrives.
func (b *Bridge) reportOrphans(doc store.Document, cfg scope.Config, folder string) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		b.logger.Printf("Failed to scan %s for orphans: %v", folder, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != rulepath.RuleExt {
			continue
		}
		name := rulepath.RuleNameFromPath(entry.Name())
		if scope.ShouldIgnore(name, cfg.Patterns) {
			continue
		}
		_, found, err := b.store.GetRule(doc, name)
		if err != nil {
			b.logger.Printf("Store lookup failed for rule %s: %v", name, err)
			continue
		}
		if !found {
			b.logger.Printf("On-disk rule %s has no counterpart in document %s", name, doc.ID)
		}
	}
}

// OpenDocuments returns a snapshot of the currently open documents.
func (b *Bridge) OpenDocuments() []store.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	docs := make([]store.Document, 0, len(b.open))
	for _, doc := range b.open {
		docs = append(docs, doc)
	}
	return docs
}
