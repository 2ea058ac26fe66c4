package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/recordlink/internal/fetcher"
	"github.com/sells-group/recordlink/pkg/sparql"
)

var (
	fetchQuery     string
	fetchQueryFile string
	fetchOut       string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download SPARQL query results as CSV",
	Long:  "Runs a SPARQL query against the configured endpoint (Wikidata by default) and saves the CSV result.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		query, err := readQuery(fetchQuery, fetchQueryFile)
		if err != nil {
			return err
		}

		client := sparql.NewClient(
			sparql.WithEndpoint(cfg.SPARQL.Endpoint),
			sparql.WithFetcher(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
				UserAgent:   cfg.SPARQL.UserAgent,
				Timeout:     time.Duration(cfg.SPARQL.TimeoutSecs) * time.Second,
				MaxAttempts: 1,
			})),
		)
		return client.DownloadCSV(cmd.Context(), query, fetchOut)
	},
}

func readQuery(inline, path string) (string, error) {
	switch {
	case inline != "" && path != "":
		return "", eris.New("fetch: use either --query or --query-file")
	case inline != "":
		return inline, nil
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrapf(err, "fetch: read query %s", path)
		}
		return string(data), nil
	default:
		return "", eris.New("fetch: --query or --query-file is required")
	}
}

func init() {
	fetchCmd.Flags().StringVar(&fetchQuery, "query", "", "SPARQL query text")
	fetchCmd.Flags().StringVar(&fetchQueryFile, "query-file", "", "path to a file holding the SPARQL query")
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "destination CSV path (required)")
	_ = fetchCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(fetchCmd)
}
