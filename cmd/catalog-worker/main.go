package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/feedpipe/catalog-worker/internal/checkpoint"
	"github.com/feedpipe/catalog-worker/internal/config"
	"github.com/feedpipe/catalog-worker/internal/eventbus"
	"github.com/feedpipe/catalog-worker/internal/maintenance"
	"github.com/feedpipe/catalog-worker/internal/orchestrator"
	"github.com/feedpipe/catalog-worker/internal/runtimeEnv"
	"github.com/feedpipe/catalog-worker/internal/storage"
	"github.com/feedpipe/catalog-worker/pkg/log"
	"github.com/google/gops/agent"
)

func main() {
	var flagConfigFile, flagLogLevel string
	var flagGops bool
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the default configuration by those specified in `config.json`")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "One of debug, info, notice, warn, err, crit")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.Parse()

	log.SetLogLevel(flagLogLevel)

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := runtimeEnv.LoadEnv("./.env"); err != nil && !os.IsNotExist(err) {
		log.Fatalf("parsing './.env' file failed: %s", err.Error())
	}

	if err := config.Init(flagConfigFile); err != nil {
		log.Fatalf("config.Init failed: %s", err.Error())
	}

	db, err := checkpoint.Connect(config.Keys.DBDriver, config.Keys.DB)
	if err != nil {
		log.Fatalf("checkpoint.Connect failed: %s", err.Error())
	}
	store := checkpoint.NewSQLStore(db, config.Keys.DBDriver)

	objects, err := storage.NewS3Store(context.Background(), storage.Config{
		Endpoint: config.Keys.S3Endpoint,
		Region:   config.Keys.S3Region,
	})
	if err != nil {
		log.Fatalf("storage.NewS3Store failed: %s", err.Error())
	}

	if config.Keys.NatsAddress != "" {
		nc, err := eventbus.Connect(config.Keys.NatsAddress)
		if err != nil {
			log.Warnf("eventbus.Connect failed, continuing without event forwarding: %s", err.Error())
		} else {
			defer nc.Close()
		}
	}

	if err := maintenance.Start(store, config.Keys.StaleLeaseWindowDuration()); err != nil {
		log.Fatalf("maintenance.Start failed: %s", err.Error())
	}
	defer maintenance.Shutdown()

	orch := &orchestrator.Orchestrator{
		Checkpoint:    store,
		Objects:       objects,
		ImportBucket:  config.Keys.ImportBucket,
		ExportsBucket: config.Keys.ExportsBucket,
		Budget:        config.Keys.InvocationBudget(),
	}

	serverInit(orch)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		serverStart()
	}()

	runtimeEnv.SystemdNotify(true, "running")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	runtimeEnv.SystemdNotify(false, "stopping")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	serverShutdown(ctx)
	wg.Wait()
}
