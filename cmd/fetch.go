package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tonimelisma/eduapi-client/internal/app"
	"github.com/tonimelisma/eduapi-client/internal/ui"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <path>...",
	Short: "GET several paths concurrently",
	Long: `Fetches every path concurrently through one client, at most
fetch.concurrency at a time. If the credential has expired, a single refresh
serves all of them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		return fetchLogic(a, cmd, args)
	},
}

func fetchLogic(a *app.App, cmd *cobra.Command, args []string) error {
	quiet, _ := cmd.Flags().GetBool("quiet")

	var onDone func(app.FetchResult)
	if !quiet {
		bar := ui.NewProgressBar(len(args), "Fetching")
		onDone = func(app.FetchResult) { _ = bar.Add(1) }
	}
	results := a.FetchAll(cmd.Context(), args, onDone)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("%s: failed\n", r.Path)
			ui.PrintError(r.Err)
			continue
		}
		ui.DisplayResponse(r.Response)
	}
	if failed > 0 {
		ui.PrintError(fmt.Errorf("%d of %d requests failed", failed, len(results)))
		return errReported
	}
	return nil
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().BoolP("quiet", "q", false, "Do not show a progress bar")
}
