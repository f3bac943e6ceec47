package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robalobadob/spotthebot/internal/snippet"
	"github.com/robalobadob/spotthebot/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a snippet corpus and upsert it into the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		corpus, err := snippet.LoadFile(args[0])
		if err != nil {
			return err
		}
		cfg, db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := store.NewSnippets(db, cfg.SnippetSalt).Import(cmd.Context(), corpus)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d snippets from %s\n", n, args[0])
		return nil
	},
}
