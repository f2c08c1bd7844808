package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/spiderlog/internal/collection"
	"github.com/HendryAvila/spiderlog/internal/feeding"
	"github.com/HendryAvila/spiderlog/internal/metrics"
)

// eventCommand builds "feed" or "molt".
func eventCommand(flags *globalFlags, kind string) *cobra.Command {
	var date string

	noun := map[string]string{"feed": "feeding", "molt": "molt"}[kind]

	cmd := &cobra.Command{
		Use:   kind + " <spider>",
		Short: fmt.Sprintf("Record a %s (spider id or exact name)", noun),
		Long: fmt.Sprintf(`Record a %s for a spider, today unless --date is given.

The spider is looked up by id first, then by exact name. An older date is
added to the history without moving the last %s date backwards.`, noun, noun),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := feeding.Today()
			if date != "" {
				normalized, err := feeding.Normalize(date)
				if err != nil {
					return err
				}
				d = normalized
			}

			app, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			sp, err := resolveSpider(ctx, app.Store, args[0])
			if err != nil {
				return err
			}

			var (
				res     *collection.UpdateResult
				added   bool
				current string
			)
			if kind == "feed" {
				res, err = app.Store.RecordFeeding(ctx, sp.ID, d)
				if err == nil {
					added, current = res.FeedingAdded, res.Spider.LastFed
					if added {
						app.Metrics.RecordEvent(metrics.EventFeeding)
					}
				}
			} else {
				res, err = app.Store.RecordMolt(ctx, sp.ID, d)
				if err == nil {
					added, current = res.MoltAdded, res.Spider.LastMolt
					if added {
						app.Metrics.RecordEvent(metrics.EventMolt)
					}
				}
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !added {
				fmt.Fprintf(out, "%s on %s was already recorded for %s.\n", strings.ToUpper(noun[:1])+noun[1:], feeding.ToUI(d), sp.Name)
				return nil
			}
			fmt.Fprintf(out, "Recorded %s for %s on %s.\n", noun, sp.Name, feeding.ToUI(d))
			if current != d {
				fmt.Fprintf(out, "Last %s stays %s.\n", noun, feeding.ToUI(current))
			}
			if res.Spider.Status != "" {
				fmt.Fprintf(out, "Status: %s\n", statusLabel(res.Spider.Status))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date, yyyy-MM-dd or dd-MM-yyyy (default: today)")
	return cmd
}

// resolveSpider finds a spider by id or by exact (case-insensitive) name.
func resolveSpider(ctx context.Context, store *collection.Store, ref string) (*collection.Spider, error) {
	ref = strings.TrimSpace(ref)
	sp, err := store.GetSpider(ctx, ref)
	if err == nil {
		return sp, nil
	}
	if !errors.Is(err, collection.ErrNotFound) {
		return nil, err
	}

	list, err := store.ListSpiders(ctx, collection.ListOptions{Query: ref})
	if err != nil {
		return nil, err
	}
	var matches []collection.Spider
	for _, s := range list {
		if strings.EqualFold(s.Name, ref) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no spider with id or name %q", ref)
	case 1:
		return &matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return nil, fmt.Errorf("%d spiders are named %q, use an id: %s", len(matches), ref, strings.Join(ids, ", "))
	}
}
