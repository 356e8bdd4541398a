package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	ingestCompany string
	ingestYear    int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest documents into the index",
	Long:  "Loads .txt, .md, or .xlsx files, chunks and embeds them, and stores them in the document index.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestCompany == "" {
			return eris.New("--company is required")
		}
		if ingestYear == 0 {
			return eris.New("--year is required")
		}

		reg, err := initRegistry(cmd.Context(), "ingest")
		if err != nil {
			return err
		}
		defer reg.Close()

		for _, path := range args {
			docID, chunks, err := reg.Ingester.IngestFile(cmd.Context(), path, ingestCompany, ingestYear)
			if err != nil {
				return eris.Wrapf(err, "ingest %s", path)
			}
			fmt.Printf("%s: stored as %s (%d chunks)\n", path, docID, chunks)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCompany, "company", "", "company the documents belong to")
	ingestCmd.Flags().IntVar(&ingestYear, "year", 0, "fiscal year of the documents")
	rootCmd.AddCommand(ingestCmd)
}
