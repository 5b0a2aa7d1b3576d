package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/semindex"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Search as you type: every stdin line replaces the query",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := openSession(cmd, "cli")
			if err != nil {
				return err
			}
			defer s.close()

			search := s.client.Search()
			unsubscribe := s.client.Notifications().Subscribe(func(n semindex.Notification) {
				if n.Visible {
					renderNotification(os.Stderr, n)
					return
				}
				st := search.Snapshot()
				renderResults(os.Stdout, &st)
			})
			defer unsubscribe()

			d := search.DebouncedSubmit(ctx, s.cfg.Search.Debounce())
			defer d.Stop()

			fmt.Fprintln(os.Stderr, metaStyle.Render("Type a query, Ctrl-D to quit"))
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				search.SetQuery(scanner.Text())
				d.Trigger()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			d.Flush()
			d.Wait()
			return nil
		},
	}
}
