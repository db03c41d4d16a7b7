package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/leads"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Maintain duplicate flags on the current search results",
}

var duplicatesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear every duplicate flag on the current search results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("duplicates"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cleared, err := leads.NewService(st, nil).ClearDuplicateFlags(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %d duplicate flags\n", cleared)
		return err
	},
}

var duplicatesFlagCmd = &cobra.Command{
	Use:   "flag",
	Short: "Recompute duplicate flags on the current search results against an owner's saved leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		owner, _ := cmd.Flags().GetString("owner")
		if err := cfg.Validate("duplicates"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		flagged, err := leads.NewService(st, nil).FlagDuplicates(ctx, owner)
		fmt.Fprintf(cmd.OutOrStdout(), "%d current results are duplicates\n", flagged)
		return err
	},
}

func init() {
	duplicatesFlagCmd.Flags().String("owner", "", "owner id whose saved leads are compared (required)")
	_ = duplicatesFlagCmd.MarkFlagRequired("owner")

	duplicatesCmd.AddCommand(duplicatesClearCmd, duplicatesFlagCmd)
	rootCmd.AddCommand(duplicatesCmd)
}
