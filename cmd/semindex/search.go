package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/semindex"
)

const expandConcurrency = 4

// farFuture stands in for an open upper date bound; ranges are clamped to the histogram.
var farFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the index",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "docs",
				Usage: "Rank whole documents instead of chunks",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results (default from config)",
			},
			&cli.BoolFlag{
				Name:  "expand",
				Usage: "Load and show the content of every result",
			},
			&cli.IntSliceFlag{
				Name:  "tag",
				Usage: "Only sources with this tag id (repeatable)",
			},
			&cli.IntSliceFlag{
				Name:  "source-type",
				Usage: "Only sources of this source type id (repeatable)",
			},
			&cli.StringFlag{Name: "created-from", Usage: "Created on or after `DATE` (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "created-to", Usage: "Created on or before `DATE` (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "modified-from", Usage: "Modified on or after `DATE` (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "modified-to", Usage: "Modified on or before `DATE` (YYYY-MM-DD)"},
		},
		Action: runSearch,
	}
}

func runSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("search: QUERY is required")
	}

	var extra []semindex.Option
	if cmd.Bool("docs") {
		extra = append(extra, semindex.WithMode(semindex.ModeDocs))
	}
	if n := cmd.Int("limit"); n > 0 {
		extra = append(extra, semindex.WithLimit(n))
	}

	s, err := openSession(cmd, "cli", extra...)
	if err != nil {
		return err
	}
	defer s.close()

	if err := applyFilters(ctx, s.client.Filters(), cmd); err != nil {
		return err
	}

	search := s.client.Search()
	if err := search.Submit(ctx, query); err != nil {
		renderNotification(os.Stderr, s.client.Notifications().Current())
		return errReported
	}

	if cmd.Bool("expand") {
		expandAll(ctx, s, search.Results())
	}

	st := search.Snapshot()
	renderResults(os.Stdout, &st)
	return nil
}

// expandAll loads the content of every result. Failures leave a placeholder in place.
func expandAll(ctx context.Context, s *session, results []semindex.Result) {
	var g errgroup.Group
	g.SetLimit(expandConcurrency)
	for i := range results {
		id := results[i].ID()
		g.Go(func() error {
			if err := s.client.Search().Expand(ctx, id); err != nil {
				s.logger.Debug("expand failed", zap.Int("id", id), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func applyFilters(ctx context.Context, f *semindex.FilterState, cmd *cli.Command) error {
	if ids := cmd.IntSlice("tag"); len(ids) > 0 {
		f.SetTags(semindex.NewSelection(ids...))
	}
	if ids := cmd.IntSlice("source-type"); len(ids) > 0 {
		f.SetSourceTypes(semindex.NewSelection(ids...))
	}
	if err := applyDates(ctx, f, semindex.HistogramCreateDate,
		cmd.String("created-from"), cmd.String("created-to")); err != nil {
		return err
	}
	return applyDates(ctx, f, semindex.HistogramModifyDate,
		cmd.String("modified-from"), cmd.String("modified-to"))
}

// applyDates narrows kind to [from, to]. Either bound may be empty.
// The histogram is loaded first since ranges are positioned on it.
func applyDates(ctx context.Context, f *semindex.FilterState, kind semindex.HistogramKind, from, to string) error {
	if from == "" && to == "" {
		return nil
	}
	start, err := parseDate(from, time.Time{})
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	end, err := parseDate(to, farFuture)
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	if _, err := f.Histogram(ctx, kind); err != nil {
		return fmt.Errorf("load %s histogram: %w", kind, err)
	}
	if _, err := f.SetDateRangeDates(kind, start, end); err != nil {
		return fmt.Errorf("%s range: %w", kind, err)
	}
	return nil
}

func parseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD", s)
	}
	return t, nil
}
