package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rulesync/rulesync/internal/export"
	"github.com/rulesync/rulesync/internal/scope"
	"github.com/rulesync/rulesync/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all rules from the database to their rule folders",
	Long: `Export writes every rule of every registered document to its on-disk
rule folder, then exits. No watches are established.

Documents with no reachable config file, or whose config contains
@disable-transfer, are skipped. Rules matching ignore patterns are not
written.

Example usage:
  rulesync export
  rulesync export --db /path/to/rules.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return fmt.Errorf("failed to open rule database: %w", err)
		}
		defer st.Close()

		docs, err := st.ListDocuments()
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println(ui.Dim("No documents registered, nothing to export"))
			return nil
		}

		engine := export.NewEngine(st, nil, newLogger("[export] "))

		exported, skipped := 0, 0
		for _, doc := range docs {
			cfg, tracked, err := scope.Resolve(filepath.Dir(doc.Path))
			if err != nil {
				ui.Warningf("Config problem for %s: %v", doc.ID, err)
			}
			if !tracked || !cfg.TransferEnabled {
				fmt.Println(ui.Dim(fmt.Sprintf("Skipping %s (not tracked)", doc.ID)))
				skipped++
				continue
			}
			if err := engine.ExportAll(doc, cfg); err != nil {
				ui.Errorf("Export failed for %s: %v", doc.ID, err)
				os.Exit(1)
			}
			exported++
		}

		ui.Successf("Exported %d document(s), skipped %d", exported, skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
