package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notemaster/internal"
	"github.com/starford/notemaster/internal/backup"
	"github.com/starford/notemaster/internal/persist"
	"github.com/starford/notemaster/internal/store"
	pkgconfig "github.com/starford/notemaster/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

// runExport writes a dated backup of the persisted state into --dir.
func runExport(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	slot, err := persist.Open(cfg.Data.SQLitePath)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer slot.Close()

	snap, ok, err := slot.Load()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return fmt.Errorf("no saved state in %s", cfg.Data.SQLitePath)
	}

	dir := cmd.String("dir")
	if dir == "" {
		dir = "."
	}
	path, err := backup.Export(snap, dir)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// runImport replaces the persisted state from a backup file.
func runImport(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	file := cmd.String("file")
	if file == "" {
		return fmt.Errorf("--file is required")
	}
	snap, err := backup.ReadFile(file)
	if err != nil {
		return err
	}

	slot, err := persist.Open(cfg.Data.SQLitePath)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer slot.Close()

	st := store.New()
	st.Import(snap)
	if err := slot.Save(st.Snapshot()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	fmt.Printf("imported %s\n", file)
	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "notemaster",
		Usage:  "Local-first note app with folders, Markdown notes, and per-note AI chat",
		Action: runServe,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server (default)",
				Action: runServe,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "mcp",
				Usage:  "Start the MCP server on stdio",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "export",
				Usage:  "Write a dated backup of the saved state",
				Action: runExport,
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Directory to write the backup into",
						Value: ".",
					},
				},
			},
			{
				Name:   "import",
				Usage:  "Replace the saved state from a backup file",
				Action: runImport,
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "file",
						Usage: "Backup file to import",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
