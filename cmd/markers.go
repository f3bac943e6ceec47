package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robalobadob/spotthebot/internal/store"
)

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "Show the global tag marker table",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		_, db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		rows, err := store.NewMarkers(db).Top(cmd.Context(), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-24s  %7s  %9s\n", "Tag", "Correct", "Incorrect")
		fmt.Fprintln(out, strings.Repeat("─", 44))
		for _, r := range rows {
			fmt.Fprintf(out, "%-24s  %7d  %9d\n", r.Tag, r.Correct, r.Incorrect)
		}
		fmt.Fprintf(out, "\n%d markers\n", len(rows))
		return nil
	},
}

func init() {
	markersCmd.Flags().Int("limit", 20, "Maximum number of markers to list")
}
