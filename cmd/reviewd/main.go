package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognicore/reviewscope/internal/logging"
	"github.com/cognicore/reviewscope/internal/scheduler"
	"github.com/cognicore/reviewscope/pkg/reviewscope"
	"github.com/cognicore/reviewscope/pkg/reviewscope/config"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "Config file (required)")
		once    = flag.Bool("once", false, "Run every scheduled app once and exit")
	)
	flag.Parse()

	if *cfgPath == "" {
		log.Fatal("--config required")
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if cfg.Schedule.Spec == "" || len(cfg.Schedule.Apps) == 0 {
		log.Fatal("config has no schedule")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := reviewscope.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatal("Failed to open engine: ", err)
	}
	defer eng.Close()

	jobs := make([]scheduler.Job, len(cfg.Schedule.Apps))
	for i, a := range cfg.Schedule.Apps {
		name := a.AppName
		if name == "" {
			name = cfg.AppName(a.AppID)
		}
		jobs[i] = scheduler.Job{AppID: a.AppID, AppName: name, Target: a.Target, TaskType: a.TaskType}
	}

	sched, err := scheduler.New(cfg.Schedule.Spec, cfg.Schedule.Actor, jobs, eng, eng.Tracker(), logger)
	if err != nil {
		log.Fatal("Failed to create scheduler: ", err)
	}

	if *once {
		for _, out := range sched.RunOnce(ctx) {
			logger.Info("scheduled run", "app", out.AppID, "skipped", out.Skipped,
				"task", out.Summary.TaskID, "new", out.Summary.New, "stop", out.Summary.StopReason, "err", out.Err)
		}
		return
	}

	logger.Info("reviewd started", "spec", cfg.Schedule.Spec, "apps", len(jobs))
	sched.Start(ctx)
	<-ctx.Done()
	logger.Info("shutting down")
	sched.Stop()
}
