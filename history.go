package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/paste-proxy/internal/history"
)

var errHistoryDisabled = errors.New("upload history is disabled (history_db = \"off\")")

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded uploads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries (0 = all)")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	store, err := openHistory(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}

	if store == nil {
		return errHistoryDisabled
	}
	defer store.Close()

	records, err := store.List(ctx, limit)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(records)
	}

	if len(records) == 0 {
		cc.Statusf("No uploads recorded.\n")
		return nil
	}

	printTable(os.Stdout, []string{"WHEN", "STATUS", "SIZE", "TRIES", "NAME", "LINK"}, historyRows(records))

	return nil
}

func historyRows(records []history.Record) [][]string {
	rows := make([][]string, 0, len(records))

	for i := range records {
		r := &records[i]

		link := r.Link
		if r.Status == history.StatusFailed {
			link = r.Error
		}

		rows = append(rows, []string{
			formatTime(r.CreatedAt),
			string(r.Status),
			formatSize(r.Size),
			strconv.Itoa(r.Attempts),
			r.OriginalName,
			link,
		})
	}

	return rows
}

func newLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <remote-name>",
		Short: "Print the retrieval link for an uploaded image",
		Long: `Print the inline retrieval link for an uploaded object. When the upload
is in the history, its recorded link is printed; otherwise the link is
derived from the configured API origin.`,
		Args: cobra.ExactArgs(1),
		RunE: runLink,
	}
}

func runLink(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()
	name := args[0]

	store, err := openHistory(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}

	if store != nil {
		defer store.Close()

		rec, lookupErr := store.Lookup(ctx, name)
		if lookupErr == nil && rec.Link != "" {
			fmt.Println(rec.Link)
			return nil
		}

		if lookupErr != nil && !errors.Is(lookupErr, history.ErrNotFound) {
			return lookupErr
		}
	}

	if err := cc.Cfg.RequireAPIOrigin(); err != nil {
		return err
	}

	fmt.Println(newFileBrowserClient(cc.Cfg, cc.Logger).RawURL(name))

	return nil
}
