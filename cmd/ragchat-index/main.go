package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"ragchat/internal/app"
	"ragchat/internal/logger"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, deleteName string
	var verbose bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragchat/config.yaml if not provided)")
	flag.StringVar(&deleteName, "delete", "", "Remove the named document from both indexes instead of ingesting")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Parse()
	logger.SetVerbose(verbose)

	paths := flag.Args()
	if deleteName == "" && len(paths) == 0 {
		fmt.Println("Usage: ragchat-index [--config=config.yaml] file1.txt [file2.txt ...]")
		fmt.Println("       ragchat-index --delete=document.pdf")
		os.Exit(1)
	}

	cfg, err := app.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	svc, closer, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer closer()

	if deleteName != "" {
		removed, err := svc.DeleteDocument(ctx, deleteName)
		if err != nil {
			color.Red("delete failed: %v", err)
			os.Exit(1)
		}
		if removed {
			color.Green("removed %s", deleteName)
		} else {
			color.Yellow("%s was not indexed", deleteName)
		}
		return
	}

	changed, err := svc.Populate(ctx, paths)
	if err != nil {
		color.Red("ingest failed: %v", err)
		os.Exit(1)
	}
	if changed {
		color.Green("ingested %d document(s)", len(paths))
	} else {
		color.Yellow("nothing new to ingest")
	}
}
