package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/semindex"
)

func contentCommand() *cli.Command {
	return &cli.Command{
		Name:      "content",
		Usage:     "Print the content section of an embedding",
		ArgsUsage: "ID",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := strconv.Atoi(cmd.Args().First())
			if err != nil {
				return fmt.Errorf("content: ID must be an integer, got %q", cmd.Args().First())
			}

			s, err := openSession(cmd, "cli")
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.client.Search().Expand(ctx, id); err != nil {
				renderNotification(os.Stderr, s.client.Notifications().Current())
				return errReported
			}
			text, _ := s.client.Search().Content(id)
			if text == semindex.ContentNotAvailable {
				fmt.Fprintln(os.Stdout, metaStyle.Render(text))
				return nil
			}
			fmt.Fprintln(os.Stdout, contentStyle.Render(text))
			return nil
		},
	}
}
