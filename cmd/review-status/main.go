package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/cognicore/reviewscope/internal/logging"
	"github.com/cognicore/reviewscope/pkg/reviewscope"
	"github.com/cognicore/reviewscope/pkg/reviewscope/config"
	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "Config file (optional)")
		dbPath  = flag.String("db", "", "Database path (overrides config)")
		appID   = flag.String("app", "", "App identifier (required)")
		actor   = flag.String("actor", os.Getenv("USER"), "Show the running task for this actor")
		limit   = flag.Int("limit", 10, "Recent tasks to list")
	)
	flag.Parse()

	if *appID == "" {
		log.Fatal("--app required")
	}

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	eng, err := reviewscope.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatal("Failed to open engine: ", err)
	}
	defer eng.Close()

	st, err := eng.Status(ctx, *appID, *actor, *limit)
	if err != nil {
		log.Fatal("Failed to read status: ", err)
	}

	s := st.Stats
	fmt.Printf("%s\n", cfg.AppName(*appID))
	fmt.Printf("  reviews scored: %s\n", humanize.Comma(int64(s.Total)))
	fmt.Printf("  positive: %s (%.1f%%)  negative: %s (%.1f%%)  neutral: %s (%.1f%%)\n",
		humanize.Comma(int64(s.Positive)), s.PositivePercentage,
		humanize.Comma(int64(s.Negative)), s.NegativePercentage,
		humanize.Comma(int64(s.Neutral)), s.NeutralPercentage)
	fmt.Printf("  average sentiment: %.4f\n", s.AvgSentiment)

	if st.Active != nil {
		fmt.Printf("\nrunning: %s\n", describe(*st.Active))
	}
	if len(st.Recent) > 0 {
		fmt.Println("\nrecent tasks:")
		for _, t := range st.Recent {
			fmt.Printf("  %s\n", describe(t))
		}
	}
}

func describe(t store.Task) string {
	line := fmt.Sprintf("%s %-5s %-8s %3d%% %s/%s, created %s",
		t.ID, t.TaskType, t.Status, t.ProgressPercent,
		humanize.Comma(int64(t.Current)), humanize.Comma(int64(t.Target)),
		humanize.Time(t.CreatedAt))
	if t.CompletedAt != nil && t.StartedAt != nil {
		line += ", took " + strings.TrimSpace(humanize.RelTime(*t.StartedAt, *t.CompletedAt, "", ""))
	}
	switch {
	case t.ErrorMessage != "":
		line += ": " + t.ErrorMessage
	case t.ResultMessage != "":
		line += ": " + t.ResultMessage
	}
	return line
}
