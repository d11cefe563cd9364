package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cognicore/reviewscope/internal/logging"
	"github.com/cognicore/reviewscope/pkg/reviewscope"
	"github.com/cognicore/reviewscope/pkg/reviewscope/config"
	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
	"github.com/cognicore/reviewscope/pkg/reviewscope/topics"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "Config file (optional)")
		dbPath  = flag.String("db", "", "Database path (overrides config)")
		apps    = flag.String("app", "", "App identifier, or a comma-separated list to compare (required)")
		filter  = flag.String("filter", "none", "Sentiment filter: none, positive or negative")
		asJSON  = flag.Bool("json", false, "Print JSON")
	)
	flag.Parse()

	if *apps == "" {
		log.Fatal("--app required")
	}
	polarity, ok := store.ParsePolarity(*filter)
	if !ok {
		log.Fatalf("--filter must be none, positive or negative, got %q", *filter)
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

	var ids []string
	for _, id := range strings.Split(*apps, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	if len(ids) == 1 {
		res, err := eng.DiscoverTopics(ctx, ids[0], polarity)
		if err != nil {
			log.Fatal("Topic discovery failed: ", err)
		}
		if *asJSON {
			printJSON(res)
			return
		}
		printResult(cfg.AppName(ids[0]), res)
		return
	}

	cmp, err := eng.CompareTopics(ctx, ids, polarity)
	if err != nil {
		log.Fatal("Topic comparison failed: ", err)
	}
	if *asJSON {
		printJSON(cmp)
		return
	}
	for _, id := range ids {
		printResult(cfg.AppName(id), cmp.Results[id])
	}
	fmt.Println("Common themes:")
	for _, lc := range cmp.Common {
		fmt.Printf("  %-40s %d apps\n", lc.Label, lc.Count)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal(err)
	}
}

func printResult(name string, res topics.Result) {
	fmt.Printf("== %s (%s reviews: %d raw, %d usable)\n", name, res.Filter, res.RawCount, res.UsableCount)
	if !res.OK() {
		fmt.Printf("  %s\n\n", res.Message)
		return
	}
	for i, t := range res.Distinct {
		fmt.Printf("%d. %s  [%d mentions, %.1f%%]\n", i+1, t.Label, t.Mentions, t.MentionPercentage)
		fmt.Printf("   terms: %s\n", strings.Join(t.Terms(5), ", "))
		for _, q := range t.Quotes {
			fmt.Printf("   > %q (%d stars)\n", q.Text, q.Rating)
		}
	}
	fmt.Println()
}
