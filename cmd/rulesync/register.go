package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rulesync/rulesync/internal/store"
	"github.com/rulesync/rulesync/internal/ui"
)

var registerCmd = &cobra.Command{
	Use:   "register <document-path>",
	Short: "Register a document in the rule database",
	Long: `Register adds a document to the database so export, watch, and status
operate on it. The document id defaults to the base file name and can
be overridden with --id.

Example usage:
  rulesync register /work/parts/Part1.ipt
  rulesync register --id bracket /work/parts/Bracket.iam`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")

		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		base := filepath.Base(path)
		ext := strings.TrimPrefix(filepath.Ext(base), ".")
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if id == "" {
			id = base
		}

		st, err := openStore()
		if err != nil {
			return fmt.Errorf("failed to open rule database: %w", err)
		}
		defer st.Close()

		doc := store.Document{ID: id, Path: path, Name: name, Extension: ext}
		if err := st.RegisterDocument(doc); err != nil {
			return err
		}

		ui.Successf("Registered %s (%s)", id, path)
		return nil
	},
}

var addRuleCmd = &cobra.Command{
	Use:   "add-rule <doc-id> <rule-name> [file]",
	Short: "Add a rule to a registered document",
	Long: `Add-rule stores a new named rule under a registered document. The rule
text is read from the given file, or from stdin when no file is given.

Example usage:
  rulesync add-rule Part1.ipt Calc calc.vb
  cat calc.vb | rulesync add-rule Part1.ipt Calc`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		docID, ruleName := args[0], args[1]

		var text []byte
		var err error
		if len(args) == 3 {
			text, err = os.ReadFile(args[2])
		} else {
			text, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("failed to read rule text: %w", err)
		}

		st, err := openStore()
		if err != nil {
			return fmt.Errorf("failed to open rule database: %w", err)
		}
		defer st.Close()

		doc, err := findDocument(st, docID)
		if err != nil {
			return err
		}
		if err := st.AddRule(doc, ruleName, string(text)); err != nil {
			return err
		}

		ui.Successf("Added rule %s to %s", ruleName, docID)
		return nil
	},
}

// findDocument resolves a registered document by id.
func findDocument(st *store.SQLiteStore, docID string) (store.Document, error) {
	docs, err := st.ListDocuments()
	if err != nil {
		return store.Document{}, err
	}
	for _, doc := range docs {
		if doc.ID == docID {
			return doc, nil
		}
	}
	return store.Document{}, fmt.Errorf("document %s is not registered", docID)
}

func init() {
	registerCmd.Flags().String("id", "", "document id (default: base file name)")
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(addRuleCmd)
}
