package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rulesync/rulesync/internal/bridge"
	"github.com/rulesync/rulesync/internal/dashboard"
	"github.com/rulesync/rulesync/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the sync daemon, mirroring edits back into the database",
	Long: `Watch opens every registered document, exports its rules, and then
watches the rule folders for changes. File edits, creations, deletions,
and renames flow back into the database until interrupted.

With --dashboard-port set, a WebSocket dashboard broadcasts sync events
to connected clients in real time.

Example usage:
  rulesync watch
  rulesync watch --dashboard-port 8080

Connect a dashboard client:
  ws://localhost:8080/ws`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("dashboard-port")

		st, err := openStore()
		if err != nil {
			return fmt.Errorf("failed to open rule database: %w", err)
		}
		defer st.Close()

		opts := bridge.Options{
			Store:  st,
			Logger: newLogger("[bridge] "),
		}

		var dash *dashboard.Server
		if port > 0 {
			dash = dashboard.NewServer(&dashboard.Config{
				Port:   port,
				Logger: newLogger("[dashboard] "),
			})
			if err := dash.Start(); err != nil {
				return fmt.Errorf("failed to start dashboard: %w", err)
			}
			opts.Notifier = dashboard.NewHandler(dash, newLogger("[dashboard] "))
			fmt.Printf("Dashboard: ws://localhost:%d/ws\n", port)
		}

		b := bridge.New(opts)
		b.Start()

		docs, err := st.ListDocuments()
		if err != nil {
			b.Stop()
			return err
		}
		for _, doc := range docs {
			b.OnDocumentOpened(doc)
		}

		ui.Successf("Watching %d document(s), press Ctrl+C to stop", len(docs))

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		<-ctx.Done()

		fmt.Println("\nShutting down...")
		b.Stop()
		if dash != nil {
			if err := dash.Stop(); err != nil {
				ui.Errorf("Dashboard shutdown: %v", err)
			}
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().Int("dashboard-port", 0, "serve a WebSocket dashboard on this port (0 = disabled)")
	rootCmd.AddCommand(watchCmd)
}
