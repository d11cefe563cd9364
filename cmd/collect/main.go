package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognicore/reviewscope/internal/logging"
	"github.com/cognicore/reviewscope/pkg/reviewscope"
	"github.com/cognicore/reviewscope/pkg/reviewscope/collect"
	"github.com/cognicore/reviewscope/pkg/reviewscope/config"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "Config file (optional)")
		dbPath   = flag.String("db", "", "Database path (overrides config)")
		appID    = flag.String("app", "", "App identifier (required)")
		appName  = flag.String("name", "", "App display name")
		target   = flag.Int("target", 500, "Number of reviews to process")
		actor    = flag.String("actor", os.Getenv("USER"), "Who requested the run")
		taskType = flag.String("type", collect.TaskQuick, "Task type: quick or full")
		jsonl    = flag.String("jsonl", "", "Import from a JSONL dump instead of the configured source")
	)
	flag.Parse()

	if *appID == "" {
		log.Fatal("--app required")
	}
	if *target <= 0 {
		log.Fatal("--target must be positive")
	}
	if *taskType != collect.TaskQuick && *taskType != collect.TaskFull {
		log.Fatalf("--type must be %s or %s", collect.TaskQuick, collect.TaskFull)
	}

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}
	if *jsonl != "" {
		cfg.Source = config.Source{Kind: config.SourceJSONL, Path: *jsonl}
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := reviewscope.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatal("Failed to open engine: ", err)
	}
	defer eng.Close()

	if task, running, err := eng.Tracker().Active(ctx, *appID, *actor); err != nil {
		log.Fatal("Failed to check running tasks: ", err)
	} else if running {
		log.Fatalf("Collection %s for %s is already %s (%d%%)", task.ID, *appID, task.Status, task.ProgressPercent)
	}

	name := *appName
	if name == "" {
		name = cfg.AppName(*appID)
	}
	sum, err := eng.Collect(ctx, collect.Request{
		AppID:    *appID,
		AppName:  name,
		Actor:    *actor,
		Target:   *target,
		TaskType: *taskType,
	})

	fmt.Printf("task %s: %s (%s)\n", sum.TaskID, sum.Status, sum.StopReason)
	fmt.Printf("  new: %d  duplicates: %d  pages: %d\n", sum.New, sum.Duplicates, sum.Pages)
	if err != nil {
		fmt.Fprintf(os.Stderr, "collection failed: %v\n", err)
		os.Exit(1)
	}
}
