package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the search result cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired search cache entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("cache"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cache, closeCache, err := initCache(ctx, st)
		if err != nil {
			return err
		}
		defer closeCache() //nolint:errcheck

		p, ok := cache.(cachePurger)
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "cache driver %s expires entries itself\n", cfg.Cache.Driver)
			return nil
		}
		n, err := p.Purge(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("cache purged", zap.String("driver", cfg.Cache.Driver), zap.Int("removed", n))
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
