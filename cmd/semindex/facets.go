package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/semindex"
)

func facetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "facets",
		Usage: "List tags, source types and date histograms available for filtering",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(cmd, "cli")
			if err != nil {
				return err
			}
			defer s.close()

			f := s.client.Filters()
			var (
				tags    []semindex.TagCount
				types   []semindex.SourceTypeCount
				created []semindex.HistogramBucket
				changed []semindex.HistogramBucket
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() (err error) { tags, err = f.TagFacets(gctx); return err })
			g.Go(func() (err error) { types, err = f.SourceTypeFacets(gctx); return err })
			g.Go(func() (err error) { created, err = f.CreateDateHistogram(gctx); return err })
			g.Go(func() (err error) { changed, err = f.ModifyDateHistogram(gctx); return err })
			if err := g.Wait(); err != nil {
				renderNotification(os.Stderr, s.client.Notifications().Current())
				return errReported
			}

			fmt.Fprintln(os.Stdout, headerStyle.Render("Tags"))
			for _, t := range tags {
				fmt.Fprintln(os.Stdout, facetLine(t.Tag.ID, t.Tag.Name, t.Count))
			}
			fmt.Fprintln(os.Stdout, headerStyle.Render("Source types"))
			for _, t := range types {
				fmt.Fprintln(os.Stdout, facetLine(t.SourceType.ID, t.SourceType.Name, t.Count))
			}
			fmt.Fprintln(os.Stdout, headerStyle.Render("Created"))
			for _, line := range histogramBars(created) {
				fmt.Fprintln(os.Stdout, line)
			}
			fmt.Fprintln(os.Stdout, headerStyle.Render("Modified"))
			for _, line := range histogramBars(changed) {
				fmt.Fprintln(os.Stdout, line)
			}
			return nil
		},
	}
}
