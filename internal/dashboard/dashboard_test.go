package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rulesync/rulesync/internal/store"
)

func testDoc() store.Document {
	return store.Document{ID: "doc-1", Path: "/tmp/Part1.ipt", Name: "Part1", Extension: "ipt"}
}

func startTestServer(t *testing.T) *Server {
	t.Helper()
	config := &Config{
		Port:   0, // Use random available port
		Logger: log.New(os.Stderr, "[test] ", log.LstdFlags),
	}
	server := NewServer(config)
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })

	time.Sleep(100 * time.Millisecond)
	return server
}

func TestServerStartStop(t *testing.T) {
	config := &Config{
		Port:   0,
		Logger: log.New(os.Stderr, "[test] ", log.LstdFlags),
	}

	server := NewServer(config)

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	addr := server.GetAddr()
	if addr == "" {
		t.Fatal("Server address is empty")
	}

	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestWebSocketConnection(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws://" + server.GetAddr() + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if count := server.ClientCount(); count != 1 {
		t.Errorf("Expected 1 client, got %d", count)
	}

	// Read welcome message
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read welcome message: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if msg.Type != MessageTypeStats {
		t.Errorf("Expected welcome message type %s, got %s", MessageTypeStats, msg.Type)
	}
}

func TestRuleUpdateBroadcast(t *testing.T) {
	server := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws://" + server.GetAddr() + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Read welcome message
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("Failed to read welcome message: %v", err)
	}

	handler := NewHandler(server, nil)
	handler.RuleChanged(testDoc(), "modified", "Calc")

	// First broadcast after the welcome is the rule update itself.
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read broadcast: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if msg.Type != MessageTypeRuleUpdate {
		t.Fatalf("Expected message type %s, got %s", MessageTypeRuleUpdate, msg.Type)
	}

	var update RuleUpdateData
	if err := json.Unmarshal(msg.Data, &update); err != nil {
		t.Fatalf("Failed to unmarshal rule data: %v", err)
	}
	if update.DocID != "doc-1" || update.Rule != "Calc" || update.Action != "modified" {
		t.Errorf("Unexpected rule update: %+v", update)
	}
}

func TestHandlerStats(t *testing.T) {
	server := startTestServer(t)
	handler := NewHandler(server, nil)

	doc := testDoc()
	handler.DocumentTracked(doc, "/tmp/ilogic/Part1_ipt")
	handler.ExportComplete(doc)
	handler.RuleChanged(doc, "created", "Calc")
	handler.RuleChanged(doc, "deleted", "Old")
	handler.WatchError(doc.ID, errors.New("boom"))

	stats := handler.GetStats()
	if stats.Documents != 1 {
		t.Errorf("Documents = %d, want 1", stats.Documents)
	}
	if stats.Exports != 1 {
		t.Errorf("Exports = %d, want 1", stats.Exports)
	}
	if stats.RuleChanges != 2 {
		t.Errorf("RuleChanges = %d, want 2", stats.RuleChanges)
	}
	if stats.ByAction["created"] != 1 || stats.ByAction["deleted"] != 1 {
		t.Errorf("ByAction = %v, want created:1 deleted:1", stats.ByAction)
	}
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := startTestServer(t)

	resp, err := http.Get("http://" + server.GetAddr() + "/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Health status = %v, want ok", body["status"])
	}
}
