package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"symfind/internal/search/ctags"
	"symfind/internal/watch"
)

func tagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "Build or reuse the ctags cache of the project",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Regenerate even if the cache is fresh",
			},
			&cli.BoolFlag{
				Name:    "print",
				Aliases: []string{"p"},
				Usage:   "Print the cached tag lines",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Keep running and regenerate the cache when files change",
			},
		},
		Action: runTags,
	}
}

func runTags(c *cli.Context) error {
	cfg := sess.cfg
	cmd := ctags.NewCommand(cfg.Tags.CtagsBin, sess.root, cfg.Exclude, sess.logger)
	if err := ctags.EnsureJSONSupport(c.Context, cmd.Bin); err != nil {
		return err
	}

	cache := ctags.NewCache(cmd, cfg.Tags.CacheDir, cfg.Exclude, sess.logger)
	defer cache.Close()

	total, path, ok := 0, "", false
	if !c.Bool("force") {
		total, path, ok = cache.Cached(c.Context)
	}
	if !ok {
		var err error
		total, path, err = cache.Create(c.Context)
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(c.App.ErrWriter, "%d tags in %s\n", total, path)

	if c.Bool("print") {
		lines, err := cache.Lines(c.Context)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(c.App.Writer, line)
		}
	}

	if !c.Bool("watch") {
		return nil
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(sess.root, cfg.Exclude, cfg.Tags.WatchDebounce.Duration, func(ctx context.Context, paths []string) {
		if err := cache.Invalidate(ctx); err != nil {
			sess.logger.Error("invalidating tag cache", "error", err)
			return
		}
		total, _, err := cache.Create(ctx)
		if err != nil {
			if ctx.Err() == nil {
				sess.logger.Error("regenerating tag cache", "error", err)
			}
			return
		}
		sess.logger.Info("tag cache regenerated", "changed", len(paths), "tags", total)
		fmt.Fprintf(c.App.ErrWriter, "%d tags in %s (%d files changed)\n", total, cache.Path(), len(paths))
	}, sess.logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
