// Package dashboard provides event handling and message formatting for the dashboard.
package dashboard

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/rulesync/rulesync/internal/store"
)

// Handler formats bridge notifications as dashboard messages. It
// satisfies the bridge's Notifier interface, so a started Server plus a
// Handler is all the wiring a monitored bridge needs.
type Handler struct {
	server *Server
	logger *log.Logger

	// Statistics tracking
	statsMu sync.Mutex
	stats   StatsData
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server: server,
		logger: logger,
		stats: StatsData{
			ByAction: make(map[string]int),
		},
	}
}

// DocumentTracked handles a document entering sync tracking
func (h *Handler) DocumentTracked(doc store.Document, folder string) {
	h.logger.Printf("Document tracked: %s -> %s", doc.ID, folder)

	h.statsMu.Lock()
	h.stats.Documents++
	h.statsMu.Unlock()

	data := DocUpdateData{
		DocID:  doc.ID,
		Name:   doc.Name,
		Action: "tracked",
		Folder: folder,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal document data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeDocUpdate,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})

	h.broadcastStats()
}

// ExportComplete handles a finished full export
func (h *Handler) ExportComplete(doc store.Document) {
	h.logger.Printf("Export complete: %s", doc.ID)

	h.statsMu.Lock()
	h.stats.Exports++
	h.statsMu.Unlock()

	data := ExportCompleteData{
		DocID: doc.ID,
		Name:  doc.Name,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal export data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeExportComplete,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// RuleChanged handles a single rule mutation flowing back into the store
func (h *Handler) RuleChanged(doc store.Document, action, ruleName string) {
	h.logger.Printf("Rule %s: %s in %s", action, ruleName, doc.ID)

	h.statsMu.Lock()
	h.stats.RuleChanges++
	h.stats.ByAction[action]++
	h.statsMu.Unlock()

	data := RuleUpdateData{
		DocID:  doc.ID,
		Rule:   ruleName,
		Action: action,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal rule data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeRuleUpdate,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})

	h.broadcastStats()
}

// WatchError handles a watch or export failure
func (h *Handler) WatchError(docID string, err error) {
	h.logger.Printf("Watch error for %s: %v", docID, err)

	h.statsMu.Lock()
	h.stats.Errors++
	h.statsMu.Unlock()

	data := WatchErrorData{
		DocID: docID,
		Error: err.Error(),
	}

	dataJSON, merr := json.Marshal(data)
	if merr != nil {
		h.logger.Printf("Failed to marshal error data: %v", merr)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeWatchError,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// broadcastStats sends current statistics to all clients
func (h *Handler) broadcastStats() {
	dataJSON, err := json.Marshal(h.GetStats())
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// GetStats returns a copy of the current statistics
func (h *Handler) GetStats() StatsData {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()

	byAction := make(map[string]int, len(h.stats.ByAction))
	for k, v := range h.stats.ByAction {
		byAction[k] = v
	}
	stats := h.stats
	stats.ByAction = byAction
	return stats
}
