package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var docsLimit int

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List indexed documents, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := initRegistry(cmd.Context(), "ingest")
		if err != nil {
			return err
		}
		defer reg.Close()

		docs, err := reg.Index.Recent(cmd.Context(), docsLimit)
		if err != nil {
			return err
		}

		if len(docs) == 0 {
			fmt.Println("no documents indexed")
			return nil
		}
		for _, d := range docs {
			fmt.Printf("%s  %-24s %-16s %d  %s\n",
				d.ID, d.Filename, d.Company, d.Year, d.CreatedAt.Format("2006-01-02"))
		}
		return nil
	},
}

func init() {
	docsCmd.Flags().IntVar(&docsLimit, "limit", 50, "maximum documents to list")
	rootCmd.AddCommand(docsCmd)
}
