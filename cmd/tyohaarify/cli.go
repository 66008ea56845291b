// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"tyohaarify/internal/ai"
	"tyohaarify/internal/export"
	"tyohaarify/internal/generator"
	"tyohaarify/internal/mcp"
	"tyohaarify/internal/models"
	"tyohaarify/internal/tools"
)

func newCLIApp() *cli.App {
	return &cli.App{
		Name:    "tyohaarify",
		Usage:   "Festival greeting cards: web app, edge worker and card tools",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(),
			edgeCmd(),
			syncCmd(),
			exportCmd(),
			purgeCmd(),
			mcpCmd(),
		},
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web app and the card API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides HOST and PORT)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(os.Stdout)
			if err != nil {
				return err
			}
			if addr := c.String("addr"); addr != "" {
				return serve(c.Context, cfg, addr)
			}
			return serve(c.Context, cfg, cfg.Addr())
		},
	}
}

func edgeCmd() *cli.Command {
	return &cli.Command{
		Name:  "edge",
		Usage: "Run the offline caching worker in front of the web app",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "origin", Usage: "Origin base URL (overrides ORIGIN_URL)"},
			&cli.BoolFlag{Name: "memory", Usage: "Keep caches in memory instead of Valkey"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(os.Stdout)
			if err != nil {
				return err
			}
			if origin := c.String("origin"); origin != "" {
				cfg.OriginURL = origin
			}
			return runEdge(c.Context, cfg, c.Bool("memory"))
		},
	}
}

func syncCmd() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Replay card requests queued while offline, once",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			res, err := syncOnce(c.Context, cfg)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Render a card to a file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "festival", Aliases: []string{"f"}, Usage: "Festival id", Required: true},
			&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Value: "classic", Usage: "Template id"},
			&cli.IntFlag{Name: "image", Aliases: []string{"i"}, Usage: "Festival image index"},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Greeting message (festival default when empty)"},
			&cli.StringFlag{Name: "sender", Aliases: []string{"s"}, Usage: "Sender name"},
			&cli.StringFlag{Name: "format", Value: string(models.FormatPNG), Usage: "png, jpeg, webp or pdf"},
			&cli.StringFlag{Name: "preset", Usage: "Social preset name, e.g. instagram-post"},
			&cli.StringFlag{Name: "paper", Usage: "PDF paper size: a4, letter or a5"},
			&cli.BoolFlag{Name: "bundle", Usage: "Write a zip with every social preset"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory", Value: "."},
			&cli.BoolFlag{Name: "browser", Usage: "Rasterize with headless Chromium"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			festivals, err := openFestivals(cfg.FestivalsFile)
			if err != nil {
				return err
			}
			gen := generator.New(festivals)

			opts := []export.Option{export.WithTimeout(cfg.ExportTimeout)}
			if c.Bool("browser") {
				browser := export.NewBrowser(cfg.ChromeBin, cfg.BaseURL)
				defer browser.Close()
				opts = append(opts, export.WithBrowser(browser))
			}
			exporter := export.New(gen, opts...)

			state := models.CardState{
				FestivalID: c.String("festival"),
				TemplateID: c.String("template"),
				ImageIndex: c.Int("image"),
				Message:    c.String("message"),
				SenderName: c.String("sender"),
			}
			if state.Message == "" {
				f, ok := festivals.Find(state.FestivalID)
				if !ok {
					return fmt.Errorf("unknown festival %q", state.FestivalID)
				}
				state.Message = f.DefaultMessage
			}
			state = gen.Sanitize(state)
			format := models.ExportFormat(c.String("format"))

			var name string
			var data []byte
			if c.Bool("bundle") {
				data, name, err = exporter.Bundle(c.Context, state, format)
				if err != nil {
					return err
				}
			} else {
				req := export.Request{State: state, Format: format}
				if p := c.String("preset"); p != "" {
					preset, ok := export.FindPreset(p)
					if !ok {
						return fmt.Errorf("unknown preset %q", p)
					}
					req.Width, req.Height, req.Purpose = preset.Width, preset.Height, preset.Name
				}
				if req.Paper, err = export.ParsePaper(c.String("paper")); err != nil {
					return err
				}
				artifact, err := exporter.Export(c.Context, req)
				if err != nil {
					return err
				}
				if artifact.Degraded {
					fmt.Fprintln(os.Stderr, "note: rendered without a browser, some styling is simplified")
				}
				name, data = artifact.Filename, artifact.Data
			}

			path := filepath.Join(c.String("out"), name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Println(path)
			return nil
		},
	}
}

func purgeCmd() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Delete expired share links and old analytics events",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "analytics-age", Value: 90 * 24 * time.Hour, Usage: "Delete analytics events older than this, 0 keeps them"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(os.Stdout)
			if err != nil {
				return err
			}
			return purge(c.Context, cfg, c.Duration("analytics-age"))
		},
	}
}

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the card tools over MCP on stdin/stdout",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			festivals, err := openFestivals(cfg.FestivalsFile)
			if err != nil {
				return err
			}
			registry := ai.NewRegistry(cfg.AIProvider, providerConfigs(cfg))
			return mcp.Run(tools.NewService(generator.New(festivals), registry, nil), Version)
		},
	}
}
