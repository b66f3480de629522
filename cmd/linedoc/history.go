package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"linedoc/internal/config"
	"linedoc/internal/journal"

	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	var (
		limit     int
		documents bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent downloads (or extraction runs with --documents)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ExpandPath(source.Get("JOURNAL_PATH", ""))
			if path == "" {
				return fmt.Errorf("JOURNAL_PATH is not set; the journal is disabled")
			}
			j, err := journal.NewSQLiteJournal(path, logger)
			if err != nil {
				return err
			}
			defer j.Close()

			ctx := context.Background()
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			defer tw.Flush()

			if documents {
				entries, err := j.RecentDocuments(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, "TIME\tSOURCE\tRECORDS\tSTATUS")
				for _, e := range entries {
					src := e.Name
					if e.Bucket != "" {
						src = "gs://" + e.Bucket + "/" + e.Name
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.CreatedAt.Local().Format(time.DateTime), src, e.Records, status(e.Success, e.Error))
				}
				return nil
			}

			entries, err := j.RecentDownloads(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, "TIME\tKIND\tMESSAGE\tTIER\tSIZE\tSTATUS\tPATH")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					e.CreatedAt.Local().Format(time.DateTime), e.Kind, e.MessageID, e.Tier, e.Size, status(e.Success, e.Error), e.Path)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	cmd.Flags().BoolVar(&documents, "documents", false, "show extraction runs instead of downloads")
	return cmd
}

func status(ok bool, errMsg string) string {
	if ok {
		return "ok"
	}
	if len(errMsg) > 60 {
		errMsg = errMsg[:57] + "..."
	}
	return "failed: " + errMsg
}
