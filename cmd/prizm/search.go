package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// searchCMD runs one ranked search against the in-memory store and prints the result.
func searchCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Rank the seeded businesses against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args, " ")
			candidates, err := a.store.SearchBusinesses(ctx, query)
			if err != nil {
				return err
			}
			res := a.matcher.Match(ctx, query, candidates)
			logger.Debug("search finished", zap.Int("matched", res.Matched), zap.Bool("fallback", res.Fallback))

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res.Businesses); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			return nil
		},
	}
}
