// Command legaldraft drafts documents interactively in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"legaldraft/internal/app"
	"legaldraft/internal/config"
	"legaldraft/internal/logger"
	"legaldraft/internal/service"
	"legaldraft/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, jurisdiction, logFile string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/legaldraft/config.yaml if not provided)")
	flag.StringVar(&jurisdiction, "jurisdiction", "", "Jurisdiction recorded on templates ingested from the given files")
	flag.StringVar(&logFile, "log-file", filepath.Join(os.TempDir(), "legaldraft.log"), "File receiving log output while the UI owns the terminal")
	flag.Parse()
	inputs := flag.Args()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// stderr belongs to the full-screen UI
	if err := logger.InitWithOutput(cfg.Log.Level, "json", logFile); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	ctx := context.Background()
	application, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	defer application.Close(ctx)
	if err := application.Start(ctx); err != nil {
		log.Fatalf("start failed: %v", err)
	}

	for _, path := range inputs {
		res, err := application.Ingestor.IngestDocument(ctx, service.UploadInput{
			Path:         path,
			Filename:     filepath.Base(path),
			Jurisdiction: jurisdiction,
		})
		if err != nil {
			log.Fatalf("ingest %s failed: %v", path, err)
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "%s: %s\n", path, w)
		}
	}

	header := fmt.Sprintf("%d templates available. Esc starts over, Ctrl+C quits.", application.Index.Len())
	if _, err := tea.NewProgram(tui.New(application.Drafter, header), tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
