package bridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rulesync/rulesync/internal/store"
	"github.com/rulesync/rulesync/internal/watch"
)

// countingStore wraps a Store and counts every call, mutating or not.
type countingStore struct {
	store.Store
	calls     int
	mutations int
}

func (c *countingStore) ListRules(doc store.Document) ([]store.Rule, error) {
	c.calls++
	return c.Store.ListRules(doc)
}

func (c *countingStore) GetRule(doc store.Document, name string) (store.Rule, bool, error) {
	c.calls++
	return c.Store.GetRule(doc, name)
}

func (c *countingStore) SetRuleText(doc store.Document, name, text string) error {
	c.calls++
	c.mutations++
	return c.Store.SetRuleText(doc, name, text)
}

func (c *countingStore) AddRule(doc store.Document, name, text string) error {
	c.calls++
	c.mutations++
	return c.Store.AddRule(doc, name, text)
}

func (c *countingStore) DeleteRule(doc store.Document, name string) error {
	c.calls++
	c.mutations++
	return c.Store.DeleteRule(doc, name)
}

// processorFixture builds a bridge with one tracked document and a
// counting store, without starting the owner goroutine: tests call
// processEvent directly, which is equivalent to running on it.
func processorFixture(t *testing.T, configContent string) (*Bridge, *countingStore, store.Document, string) {
	t.Helper()
	doc, governing := newTestDoc(t, configContent)

	cs := &countingStore{Store: store.NewMemoryStore()}
	b := New(Options{Store: cs})

	b.mu.Lock()
	b.open[doc.ID] = doc
	b.active = doc.ID
	b.mu.Unlock()

	folder := filepath.Join(governing, "ilogic", "Part1_ipt")
	if err := os.MkdirAll(folder, 0755); err != nil {
		t.Fatalf("Failed to create rule folder: %v", err)
	}
	return b, cs, doc, folder
}

func writeRuleFile(t *testing.T, folder, name, text string) string {
	t.Helper()
	path := filepath.Join(folder, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("Failed to write rule file: %v", err)
	}
	return path
}

// TestProcess_ModifiedUpdatesRule verifies the Modified dispatch.
func TestProcess_ModifiedUpdatesRule(t *testing.T) {
	b, _, doc, folder := processorFixture(t, "# cfg\n")
	if err := b.store.AddRule(doc, "Calc", "x = 1"); err != nil {
		t.Fatalf("AddRule() failed: %v", err)
	}
	path := writeRuleFile(t, folder, "Calc.vb", "x = 2")

	b.processEvent(watch.Event{Kind: watch.Modified, Path: path})

	rule, found, _ := b.store.GetRule(doc, "Calc")
	if !found || rule.Text != "x = 2" {
		t.Errorf("Rule after modify = %+v found=%v, want text %q", rule, found, "x = 2")
	}
}

// TestProcess_ModifiedUnknownRuleNoMutation verifies a file with no
// live rule produces a diagnostic only.
func TestProcess_ModifiedUnknownRuleNoMutation(t *testing.T) {
	b, cs, _, folder := processorFixture(t, "# cfg\n")
	path := writeRuleFile(t, folder, "Ghost.vb", "boo")

	b.processEvent(watch.Event{Kind: watch.Modified, Path: path})

	if cs.mutations != 0 {
		t.Errorf("Mutations = %d, want 0", cs.mutations)
	}
}

// TestProcess_CreatedAddsRule verifies the Created dispatch.
func TestProcess_CreatedAddsRule(t *testing.T) {
	b, _, doc, folder := processorFixture(t, "# cfg\n")
	path := writeRuleFile(t, folder, "Fresh.vb", "y = 3")

	b.processEvent(watch.Event{Kind: watch.Created, Path: path})

	rule, found, _ := b.store.GetRule(doc, "Fresh")
	if !found || rule.Text != "y = 3" {
		t.Errorf("Rule after create = %+v found=%v, want text %q", rule, found, "y = 3")
	}
}

// TestProcess_CreatedDuplicateNoMutation verifies no duplicate creation.
func TestProcess_CreatedDuplicateNoMutation(t *testing.T) {
	b, cs, doc, folder := processorFixture(t, "# cfg\n")
	if err := b.store.AddRule(doc, "Calc", "original"); err != nil {
		t.Fatalf("AddRule() failed: %v", err)
	}
	cs.mutations = 0
	path := writeRuleFile(t, folder, "Calc.vb", "impostor")

	b.processEvent(watch.Event{Kind: watch.Created, Path: path})

	if cs.mutations != 0 {
		t.Errorf("Mutations = %d, want 0", cs.mutations)
	}
	rule, _, _ := b.store.GetRule(doc, "Calc")
	if rule.Text != "original" {
		t.Errorf("Rule text = %q, want untouched %q", rule.Text, "original")
	}
}

// TestProcess_DeletedRemovesRule verifies the Deleted dispatch.
func TestProcess_DeletedRemovesRule(t *testing.T) {
	b, _, doc, folder := processorFixture(t, "# cfg\n")
	if err := b.store.AddRule(doc, "Calc", "x = 1"); err != nil {
		t.Fatalf("AddRule() failed: %v", err)
	}

	b.processEvent(watch.Event{Kind: watch.Deleted, Path: filepath.Join(folder, "Calc.vb")})

	if _, found, _ := b.store.GetRule(doc, "Calc"); found {
		t.Error("Rule should be deleted from the store")
	}
}

// TestProcess_RenameMovesText verifies rename as delete+recreate with
// the captured text.
func TestProcess_RenameMovesText(t *testing.T) {
	b, _, doc, folder := processorFixture(t, "# cfg\n")
	if err := b.store.AddRule(doc, "Calc", "x=1"); err != nil {
		t.Fatalf("AddRule() failed: %v", err)
	}

	b.processEvent(watch.Event{
		Kind:    watch.Renamed,
		OldPath: filepath.Join(folder, "Calc.vb"),
		Path:    filepath.Join(folder, "Calc2.vb"),
	})

	if _, found, _ := b.store.GetRule(doc, "Calc"); found {
		t.Error("Old rule Calc should be gone")
	}
	rule, found, _ := b.store.GetRule(doc, "Calc2")
	if !found || rule.Text != "x=1" {
		t.Errorf("Calc2 = %+v found=%v, want text %q", rule, found, "x=1")
	}
}

// TestProcess_RenameUnknownRuleNoMutation verifies a rename of an
// unknown rule records a diagnostic and mutates nothing.
func TestProcess_RenameUnknownRuleNoMutation(t *testing.T) {
	b, cs, _, folder := processorFixture(t, "# cfg\n")

	b.processEvent(watch.Event{
		Kind:    watch.Renamed,
		OldPath: filepath.Join(folder, "Ghost.vb"),
		Path:    filepath.Join(folder, "Ghost2.vb"),
	})

	if cs.mutations != 0 {
		t.Errorf("Mutations = %d, want 0", cs.mutations)
	}
}

// TestProcess_SwapRenameNoStoreCalls verifies the editor swap-file
// guard produces zero store calls.
func TestProcess_SwapRenameNoStoreCalls(t *testing.T) {
	b, cs, _, folder := processorFixture(t, "# cfg\n")

	b.processEvent(watch.Event{
		Kind:    watch.Renamed,
		OldPath: filepath.Join(folder, "Calc.vb"),
		Path:    filepath.Join(folder, "Calc.vb~"),
	})

	if cs.calls != 0 {
		t.Errorf("Store calls = %d, want 0", cs.calls)
	}
}

// TestProcess_IgnoredRuleUntouched verifies the ignore check aborts
// processing before any store access.
func TestProcess_IgnoredRuleUntouched(t *testing.T) {
	b, cs, _, folder := processorFixture(t, "Test*\n")
	path := writeRuleFile(t, folder, "TestRule.vb", "x")

	b.processEvent(watch.Event{Kind: watch.Created, Path: path})

	if cs.calls != 0 {
		t.Errorf("Store calls = %d, want 0", cs.calls)
	}
}

// TestProcess_ActiveDocumentFallback verifies an orphaned folder falls
// back to the active document.
func TestProcess_ActiveDocumentFallback(t *testing.T) {
	b, _, doc, _ := processorFixture(t, "# cfg\n")

	orphan := filepath.Join(t.TempDir(), "Unknown_xyz")
	if err := os.MkdirAll(orphan, 0755); err != nil {
		t.Fatalf("Failed to create orphan folder: %v", err)
	}
	path := writeRuleFile(t, orphan, "Stray.vb", "s = 1")

	b.processEvent(watch.Event{Kind: watch.Created, Path: path})

	if _, found, _ := b.store.GetRule(doc, "Stray"); !found {
		t.Error("Change should be attributed to the active document")
	}
}

// TestProcess_NoDocumentNoMutation verifies processing aborts when
// neither folder match nor active document resolves.
func TestProcess_NoDocumentNoMutation(t *testing.T) {
	b, cs, _, folder := processorFixture(t, "# cfg\n")
	b.mu.Lock()
	b.open = map[string]store.Document{}
	b.active = ""
	b.mu.Unlock()

	path := writeRuleFile(t, folder, "Calc.vb", "x")
	b.processEvent(watch.Event{Kind: watch.Created, Path: path})

	if cs.calls != 0 {
		t.Errorf("Store calls = %d, want 0", cs.calls)
	}
}

// TestProcess_ShutdownAborts verifies the cooperative shutdown check.
func TestProcess_ShutdownAborts(t *testing.T) {
	b, cs, _, folder := processorFixture(t, "# cfg\n")
	b.closing.Store(true)

	path := writeRuleFile(t, folder, "Calc.vb", "x")
	b.processEvent(watch.Event{Kind: watch.Created, Path: path})

	if cs.calls != 0 {
		t.Errorf("Store calls = %d, want 0", cs.calls)
	}
}

// TestClaim_DedupSecondNotificationDropped verifies two notifications
// with identical (path, kind) before completion yield one mutation.
func TestClaim_DedupSecondNotificationDropped(t *testing.T) {
	b, cs, doc, folder := processorFixture(t, "# cfg\n")
	b.Start()
	defer b.Stop()

	path := writeRuleFile(t, folder, "Calc.vb", "x = 1")
	ev := watch.Event{Kind: watch.Created, Path: path}
	key := claimKey{path: ev.Path, kind: ev.Kind}

	// Hold the claim, simulating an in-flight handler.
	if _, loaded := b.claims.LoadOrStore(key, struct{}{}); loaded {
		t.Fatal("Claim unexpectedly taken")
	}

	// Both of these collapse against the held claim.
	b.onRawEvent(ev)
	b.onRawEvent(ev)

	// Release and wait for any stray work.
	b.claims.Delete(key)
	if _, found := ownerGetRule(t, b, doc, "Calc"); found {
		t.Error("Claimed notifications should have been dropped")
	}

	// A fresh notification after release is processed exactly once.
	b.onRawEvent(ev)
	if _, found := ownerGetRule(t, b, doc, "Calc"); !found {
		t.Error("Post-release notification should be processed")
	}
	if cs.mutations != 1 {
		t.Errorf("Mutations = %d, want 1", cs.mutations)
	}
}
