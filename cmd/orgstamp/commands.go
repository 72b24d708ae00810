package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/starford/orgstamp/internal"
	"github.com/starford/orgstamp/internal/models"
	"github.com/starford/orgstamp/internal/orgdate"
	"github.com/starford/orgstamp/internal/stamper"
)

// activeFlag applies --inactive over the configured default.
func activeFlag(cmd *cli.Command, def bool) bool {
	if cmd.IsSet("inactive") {
		return !cmd.Bool("inactive")
	}
	return def
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Print the timestamp a modifier resolves to",
		ArgsUsage: "[MODIFIER...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "anchor", Usage: "Anchor date YYYY-MM-DD (default today)"},
			&cli.BoolFlag{Name: "inactive", Usage: "Print [...] instead of <...>"},
			&cli.BoolFlag{Name: "explain", Usage: "Also print the matching rule"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			anchor := orgdate.DateOf(stamper.RealClock{}.Now())
			if a := cmd.String("anchor"); a != "" {
				if anchor, err = orgdate.ParseDate(a); err != nil {
					return err
				}
			}
			res, err := orgdate.Explain(anchor, strings.Join(cmd.Args().Slice(), " "))
			if err != nil {
				return err
			}
			out := orgdate.Format(res.Moment, activeFlag(cmd, cfg.Stamp.Active))
			if cmd.Bool("explain") && res.Rule != "" {
				out += "\t" + res.Rule
			}
			_, err = fmt.Fprintln(os.Stdout, out)
			return err
		},
	}
}

func insertCommand() *cli.Command {
	return &cli.Command{
		Name:    "insert",
		Aliases: []string{"stamp"},
		Usage:   "Insert a timestamp into a note; prompts on stdin when no modifier is given",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "note", Aliases: []string{"n"}, Usage: "Note path relative to the vault", Required: true},
			&cli.IntFlag{Name: "line", Aliases: []string{"l"}, Usage: "1-based line", Required: true},
			&cli.IntFlag{Name: "column", Usage: "1-based byte column", Value: 1},
			&cli.StringFlag{Name: "modifier", Aliases: []string{"m"}, Usage: "Date modifier"},
			&cli.BoolFlag{Name: "inactive", Usage: "Insert [...] instead of <...>"},
			&cli.StringFlag{Name: "if-match", Usage: "Expected note checksum"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			vault, err := internal.OpenVault([]internal.Option{
				internal.WithConfig(cfg),
				internal.WithLogger(cliLogger(cfg)),
			})
			if err != nil {
				return err
			}
			defer vault.Close()

			var prompt stamper.UserPrompt = stamper.NewReaderPrompt(os.Stdin, os.Stderr)
			if cmd.IsSet("modifier") {
				prompt = stamper.StaticPrompt(cmd.String("modifier"))
			}
			pos := models.Position{Line: int(cmd.Int("line")), Column: int(cmd.Int("column"))}
			ins, err := vault.Service.Stamp(ctx, cmd.String("note"), pos, prompt,
				activeFlag(cmd, cfg.Stamp.Active), cmd.String("if-match"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(os.Stdout, "%s:%d:%d %s\n", ins.Path, ins.Position.Line, ins.Position.Column, ins.Stamp)
			return err
		},
	}
}

func agendaCommand() *cli.Command {
	return &cli.Command{
		Name:  "agenda",
		Usage: "List timestamps found in the vault for the coming days",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "First day YYYY-MM-DD (default today)"},
			&cli.IntFlag{Name: "days", Aliases: []string{"d"}, Usage: "Number of days (default from config)"},
			&cli.BoolFlag{Name: "inactive", Usage: "Include [...] timestamps"},
			&cli.BoolFlag{Name: "no-color", Usage: "Disable colored output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			vault, err := internal.OpenVault([]internal.Option{
				internal.WithConfig(cfg),
				internal.WithLogger(cliLogger(cfg)),
			})
			if err != nil {
				return err
			}
			defer vault.Close()

			from := vault.Service.Today()
			if f := cmd.String("from"); f != "" {
				if from, err = orgdate.ParseDate(f); err != nil {
					return err
				}
			}
			days := cfg.Stamp.AgendaDays
			if cmd.IsSet("days") {
				days = int(cmd.Int("days"))
			}
			entries, err := vault.Service.Agenda(ctx, from, days, cmd.Bool("inactive"))
			if err != nil {
				return err
			}
			if cmd.Bool("no-color") {
				color.NoColor = true
			}
			printAgenda(os.Stdout, entries)
			return nil
		},
	}
}

// printAgenda writes entries grouped by day.
func printAgenda(w io.Writer, entries []models.StampEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No timestamps in range.")
		return
	}
	dayColor := color.New(color.FgCyan, color.Bold)
	timeColor := color.New(color.FgYellow)
	inactiveColor := color.New(color.Faint)

	current := ""
	for _, e := range entries {
		if e.Date != current {
			current = e.Date
			header := e.Date
			if m, err := orgdate.ParseDate(e.Date); err == nil {
				header = m.String()
			}
			dayColor.Fprintln(w, header)
		}
		clock := "     "
		if e.Time != "" {
			clock = e.Time
		}
		title := e.Title
		if title == "" {
			title = e.Path
		}
		line := fmt.Sprintf("  %s  %s  (%s:%d)", timeColor.Sprint(clock), title, e.Path, e.Line)
		if !e.Active {
			line = inactiveColor.Sprint(line)
		}
		fmt.Fprintln(w, line)
	}
}
