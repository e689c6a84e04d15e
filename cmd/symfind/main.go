package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/panjf2000/ants/v2"
	"github.com/urfave/cli/v2"

	"symfind/internal/config"
	"symfind/internal/logging"
	"symfind/internal/search/definitions"
	"symfind/internal/search/ripgrep"
	"symfind/internal/search/usages"
)

const version = "0.1.0"

// session is the state shared by all commands, built in the Before hook.
type session struct {
	root   string
	cfg    config.Config
	logger *slog.Logger
	pool   *ants.Pool
	runner *ripgrep.Runner
	rules  *definitions.RuleTable
}

var sess *session

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "symfind: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "symfind",
		Usage:                  "Find symbol definitions and usages with ripgrep",
		Version:                version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"C"},
				Usage:   "Project root to search",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file (default: <dir>/" + config.FileName + " if present)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"L"},
				Usage:   "Log level (debug, info, warn, error); overrides SYMFIND_LOG_LEVEL",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			defsCommand(),
			usagesCommand(),
			grepCommand(),
			tagsCommand(),
			langsCommand(),
		},
	}
}

func setup(c *cli.Context) error {
	logCfg := logging.LoadConfigFromEnv("symfind")
	if name := c.String("log-level"); name != "" {
		level, ok := logging.ParseLevel(name)
		if !ok {
			return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", name)
		}
		logCfg.Level = level
	}
	logger := logging.New(logCfg)
	slog.SetDefault(logger)

	root, err := filepath.Abs(c.String("dir"))
	if err != nil {
		return fmt.Errorf("failed to resolve root path %q: %w", c.String("dir"), err)
	}

	cfg, err := config.Load(root, c.String("config"))
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded", "root", root, "config", cfg.String())

	rules := definitions.DefaultRules()
	if path := cfg.Search.Rules; path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		extra, err := definitions.LoadRuleTable(path)
		if err != nil {
			return err
		}
		rules = rules.Merge(extra)
	}

	pool, err := ants.NewPool(cfg.Search.Workers)
	if err != nil {
		return fmt.Errorf("creating decode pool: %w", err)
	}

	runner := ripgrep.NewRunner(cfg.Search.RgBin,
		ripgrep.WithPool(pool),
		ripgrep.WithChunkLines(cfg.Search.ChunkLines),
		ripgrep.WithLogger(logger))

	sess = &session{
		root:   root,
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		runner: runner,
		rules:  rules,
	}
	return nil
}

func teardown(*cli.Context) error {
	if sess != nil && sess.pool != nil {
		sess.pool.Release()
	}
	return nil
}

func (s *session) finder() *usages.Finder {
	return usages.NewFinder(s.runner, s.rules,
		usages.WithDir(s.root),
		usages.WithTimeout(s.cfg.Search.Timeout.Duration),
		usages.WithLogger(s.logger))
}

// language resolves a --lang value given either as a ripgrep type or as a
// file extension.
func (s *session) language(name string) (string, error) {
	if s.rules.Supports(name) {
		return name, nil
	}
	if lang := definitions.LanguageByExt(name); lang != "" && s.rules.Supports(lang) {
		return lang, nil
	}
	return "", fmt.Errorf("no definition rules for %q (see `symfind langs`)", name)
}
