package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rulesync/rulesync/internal/rulepath"
	"github.com/rulesync/rulesync/internal/scope"
	"github.com/rulesync/rulesync/internal/ui"
)

// docStatus is the per-document report emitted by the status command.
type docStatus struct {
	ID         string   `yaml:"id"`
	Path       string   `yaml:"path"`
	Tracked    bool     `yaml:"tracked"`
	ConfigPath string   `yaml:"config,omitempty"`
	Disabled   bool     `yaml:"disabled,omitempty"`
	RuleFolder string   `yaml:"rule_folder,omitempty"`
	RuleCount  int      `yaml:"rule_count"`
	Ignored    []string `yaml:"ignored,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report tracking state for every registered document",
	Long: `Status resolves the sync scope of each registered document and reports
whether it is tracked, which config governs it, where its rule folder
maps to, and which rules the ignore patterns suppress.

Example usage:
  rulesync status
  rulesync status --format yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "text" && format != "yaml" {
			return fmt.Errorf("invalid format %q: must be text or yaml", format)
		}

		st, err := openStore()
		if err != nil {
			return fmt.Errorf("failed to open rule database: %w", err)
		}
		defer st.Close()

		docs, err := st.ListDocuments()
		if err != nil {
			return err
		}

		statuses := make([]docStatus, 0, len(docs))
		for _, doc := range docs {
			ds := docStatus{ID: doc.ID, Path: doc.Path}

			rules, err := st.ListRules(doc)
			if err != nil {
				return err
			}
			ds.RuleCount = len(rules)

			cfg, tracked, err := scope.Resolve(filepath.Dir(doc.Path))
			if err != nil {
				ui.Warningf("Config problem for %s: %v", doc.ID, err)
			}
			if tracked {
				ds.ConfigPath = cfg.Path
				ds.Disabled = !cfg.TransferEnabled
				ds.Tracked = cfg.TransferEnabled
			}
			if ds.Tracked {
				ds.RuleFolder = rulepath.MapFolder(cfg.GoverningFolder(), doc.Name, doc.Extension)
				names := make([]string, len(rules))
				for i, r := range rules {
					names[i] = r.Name
				}
				ds.Ignored = cfg.Ignored(names)
			}
			statuses = append(statuses, ds)
		}

		if format == "yaml" {
			return yaml.NewEncoder(os.Stdout).Encode(statuses)
		}

		printStatuses(statuses)
		return nil
	},
}

func printStatuses(statuses []docStatus) {
	if len(statuses) == 0 {
		fmt.Println(ui.Dim("No documents registered"))
		return
	}
	for _, ds := range statuses {
		fmt.Println(ui.Header(ds.ID))
		fmt.Printf("  path:   %s\n", ds.Path)
		switch {
		case ds.Disabled:
			fmt.Printf("  state:  %s\n", ui.Warning("transfer disabled"))
		case !ds.Tracked:
			fmt.Printf("  state:  %s\n", ui.Dim("untracked (no config)"))
		default:
			fmt.Printf("  state:  %s\n", ui.Success("tracked"))
			fmt.Printf("  config: %s\n", ds.ConfigPath)
			fmt.Printf("  folder: %s\n", ds.RuleFolder)
		}
		fmt.Printf("  rules:  %d", ds.RuleCount)
		if len(ds.Ignored) > 0 {
			fmt.Printf("  (%d ignored)", len(ds.Ignored))
		}
		fmt.Println()
	}
}

func init() {
	statusCmd.Flags().String("format", "text", "output format (text|yaml)")
	rootCmd.AddCommand(statusCmd)
}
