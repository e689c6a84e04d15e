package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"symfind/internal/matcher"
	"symfind/internal/search/definitions"
	"symfind/internal/search/ripgrep"
)

func langFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "lang",
		Aliases: []string{"l"},
		Usage:   "Language as a ripgrep type (rust, go, py) or file extension (rs)",
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "json",
		Aliases: []string{"j"},
		Usage:   "Output as JSON",
	}
}

func wordArg(c *cli.Context) (ripgrep.Word, error) {
	if c.NArg() < 1 {
		return ripgrep.Word{}, errors.New("missing word")
	}
	return ripgrep.NewWord(c.Args().First())
}

func defsCommand() *cli.Command {
	return &cli.Command{
		Name:      "defs",
		Aliases:   []string{"d"},
		Usage:     "Find definitions of a word",
		ArgsUsage: "<word>",
		Flags:     []cli.Flag{langFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			word, err := wordArg(c)
			if err != nil {
				return err
			}
			lang, err := sess.language(c.String("lang"))
			if err != nil {
				return err
			}

			defs, err := sess.finder().Definitions(c.Context, word, lang)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return writeJSON(c.App.Writer, defs)
			}
			for _, r := range defs {
				for _, m := range r.Matches {
					fmt.Fprintf(c.App.Writer, "[%s] %s\n", r.Kind, m.GrepLine())
				}
			}
			return nil
		},
	}
}

func usagesCommand() *cli.Command {
	return &cli.Command{
		Name:      "usages",
		Aliases:   []string{"u"},
		Usage:     "Find definitions and usages of a word, optionally filtered by a query",
		ArgsUsage: "<word>",
		Flags: []cli.Flag{
			langFlag(),
			jsonFlag(),
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Filter: 'exact ^prefix suffix$ !inverse",
			},
			&cli.StringFlag{
				Name:  "case",
				Usage: "Case matching of the query: smart, ignore, respect (default from config)",
			},
		},
		Action: func(c *cli.Context) error {
			word, err := wordArg(c)
			if err != nil {
				return err
			}
			lang, err := sess.language(c.String("lang"))
			if err != nil {
				return err
			}

			mode := sess.cfg.Search.Case
			if c.IsSet("case") {
				mode = c.String("case")
			}
			caseMatching, ok := matcher.ParseCaseMatching(mode)
			if !ok {
				return fmt.Errorf("unknown case mode %q", mode)
			}
			exact, inverse := matcher.ParseQuery(c.String("query"))
			m := matcher.NewUsageMatcherWithCase(exact, inverse, caseMatching)

			res, err := sess.finder().Usages(c.Context, word, lang, m)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return writeJSON(c.App.Writer, res)
			}
			for _, u := range res.Usages {
				line := u.GrepLine()
				if u.IsDefinition() {
					line = "[" + string(u.Kind) + "] " + line
				}
				fmt.Fprintln(c.App.Writer, line)
			}
			return nil
		},
	}
}

func grepCommand() *cli.Command {
	return &cli.Command{
		Name:      "grep",
		Aliases:   []string{"g"},
		Usage:     "List non-comment occurrences of a word",
		ArgsUsage: "<word>",
		Flags: []cli.Flag{
			langFlag(),
			jsonFlag(),
			&cli.StringFlag{
				Name:  "ext",
				Usage: "Search files with this extension instead of a ripgrep type",
			},
			&cli.BoolFlag{
				Name:    "regexp",
				Aliases: []string{"e"},
				Usage:   "Treat spaces in the word as .* instead of matching whole words",
			},
		},
		Action: func(c *cli.Context) error {
			word, err := wordArg(c)
			if err != nil {
				return err
			}
			f := sess.finder()

			var matches []ripgrep.Match
			switch {
			case c.String("ext") != "":
				if c.Bool("regexp") {
					return errors.New("--regexp needs --lang")
				}
				matches, err = f.OccurrencesByExt(c.Context, word, c.String("ext"))
			case c.String("lang") != "":
				lang := c.String("lang")
				if l := definitions.LanguageByExt(lang); l != "" {
					lang = l
				}
				if c.Bool("regexp") {
					matches, err = f.RegexpSearch(c.Context, word, lang)
				} else {
					matches, err = f.Occurrences(c.Context, word, lang)
				}
			default:
				return errors.New("one of --lang or --ext is required")
			}
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return writeJSON(c.App.Writer, matches)
			}
			for _, m := range matches {
				fmt.Fprintln(c.App.Writer, m.GrepLine())
			}
			return nil
		},
	}
}

func langsCommand() *cli.Command {
	return &cli.Command{
		Name:  "langs",
		Usage: "List languages with definition rules and their kinds",
		Flags: []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			out := make(map[string][]definitions.DefinitionKind)
			for _, lang := range sess.rules.Languages() {
				kinds, err := sess.rules.Kinds(lang)
				if err != nil {
					return err
				}
				out[lang] = kinds
			}
			if c.Bool("json") {
				return writeJSON(c.App.Writer, out)
			}
			for _, lang := range sess.rules.Languages() {
				names := make([]string, 0, len(out[lang]))
				for _, k := range out[lang] {
					names = append(names, string(k))
				}
				fmt.Fprintf(c.App.Writer, "%-10s %s\n", lang, strings.Join(names, " "))
			}
			return nil
		},
	}
}
