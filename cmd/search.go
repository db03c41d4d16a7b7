package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/model"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for leads in a location or across a state",
	Long: "Runs one search. With --location the area around that place is crawled; with --region the " +
		"largest cities of that state are crawled in turn. Results matching the owner's saved leads are flagged.",
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.String("type", "", "business type to search for (required)")
	f.String("location", "", "single location, e.g. \"Austin, TX\"")
	f.Int("radius", 0, "search radius in meters (default from config)")
	f.String("region", "", "state to crawl, e.g. TX or Texas")
	f.Int("max-results", 60, "maximum number of results")
	f.Int("max-areas", 10, "maximum number of areas for a state-wide search")
	f.String("owner", "", "owner id whose saved leads are used for duplicate flagging")
	f.Bool("json", false, "print the result as JSON")
	_ = searchCmd.MarkFlagRequired("type")
	searchCmd.MarkFlagsMutuallyExclusive("location", "region")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req, err := searchRequestFromFlags(cmd)
	if err != nil {
		return err
	}
	owner, _ := cmd.Flags().GetString("owner")
	asJSON, _ := cmd.Flags().GetBool("json")

	env, err := initLeads(ctx, "search")
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.Service.Search(ctx, owner, req)
	if err != nil {
		return eris.Wrap(err, "search")
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printResult(cmd.OutOrStdout(), result)
}

func searchRequestFromFlags(cmd *cobra.Command) (model.SearchRequest, error) {
	f := cmd.Flags()
	var req model.SearchRequest
	req.BusinessType, _ = f.GetString("type")
	req.Location, _ = f.GetString("location")
	req.RadiusMeters, _ = f.GetInt("radius")
	req.Region, _ = f.GetString("region")
	req.MaxResults, _ = f.GetInt("max-results")
	if req.StateWide() {
		req.MaxAreas, _ = f.GetInt("max-areas")
	}
	return req, req.Validate()
}

func printResult(w io.Writer, res *model.SearchResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tWEBSITE\tLOCATION\tDISTANCE\tDUPLICATE")
	for _, b := range res.Businesses {
		dup := ""
		if b.IsDuplicate {
			dup = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.Name, b.Website, b.Location, b.DistanceLabel, dup)
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "write results")
	}

	summary := fmt.Sprintf("%d results", res.Total)
	if res.AreasPlanned > 0 {
		summary += fmt.Sprintf(" from %d of %d areas", res.AreasSearched, res.AreasPlanned)
	}
	if res.FromCache {
		summary += " (cached)"
	}
	fmt.Fprintln(w, summary)
	for _, f := range res.Failed {
		fmt.Fprintf(w, "skipped %s: %s\n", f.Area, f.Reason)
	}
	return nil
}
