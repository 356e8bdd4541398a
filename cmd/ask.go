package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var askDocs []string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return eris.New("question must not be empty")
		}

		reg, err := initRegistry(cmd.Context(), "query")
		if err != nil {
			return err
		}
		defer reg.Close()

		result := reg.Router.Route(cmd.Context(), question, askDocs)

		fmt.Printf("Source: %s (%.0fms)\n\n", result.Source, float64(result.ProcessingTime.Milliseconds()))
		fmt.Println(result.Answer)
		if result.Sentiment != "" {
			fmt.Printf("\nSentiment: %s\n", result.Sentiment)
		}
		for _, chart := range result.Charts {
			fmt.Printf("\n[chart] %s: %s (%d points)\n", chart.Type, chart.Title, len(chart.Data))
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringSliceVar(&askDocs, "docs", nil, "restrict retrieval to these document IDs")
	rootCmd.AddCommand(askCmd)
}
