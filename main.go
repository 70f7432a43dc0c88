package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hodlflow/config"
	"hodlflow/internal/archive"
	"hodlflow/internal/cache"
	"hodlflow/internal/dataset"
	"hodlflow/internal/fetcher"
	"hodlflow/internal/merge"
	"hodlflow/internal/server"
	"hodlflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Hodlflow.Name,
		"version": cfg.Hodlflow.Version,
	}).Info("starting hodlflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleShutdown(cancel, log)

	logger.InitCloudWatch(cfg.Storage.S3.Region, cfg.Hodlflow.Name, cfg.Logging.DashboardName)
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	cacheMgr, err := cache.NewManager(cfg)
	if err != nil {
		log.WithError(err).Error("failed to initialize cache")
		os.Exit(1)
	}

	f := fetcher.New(cfg)
	merger := merge.New(f, cfg.Fetch.MaxConsecutiveMissing)

	var archiver dataset.Archiver
	if cfg.Storage.S3.Enabled {
		uploader, err := archive.NewUploader(cfg)
		if err != nil {
			log.WithError(err).Error("failed to create archive uploader")
			os.Exit(1)
		}
		archiver = uploader
	} else {
		log.WithComponent("main").Info("S3 storage disabled; skipping archival")
	}

	svc := dataset.NewService(cfg, cacheMgr, merger, f, archiver)

	var wg sync.WaitGroup

	if apiServer := server.NewServer(cfg.Server, svc); apiServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := apiServer.Run(ctx); err != nil {
				log.WithError(err).Error("api server failed")
				cancel()
			}
		}()
	} else {
		log.WithComponent("main").Info("api server disabled")
	}

	if cfg.Fetch.RefreshInterval > 0 {
		refresher := dataset.NewRefresher(svc, cfg.Fetch.RefreshInterval)
		if err := refresher.Start(ctx); err != nil {
			log.WithError(err).Error("failed to start refresher")
			os.Exit(1)
		}
		defer refresher.Stop()
	} else {
		log.WithComponent("main").Info("scheduled refresh disabled")
	}

	<-ctx.Done()
	wg.Wait()
	log.Info("hodlflow stopped")
}

func handleShutdown(cancel context.CancelFunc, log *logger.Log) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	sig := <-ch
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown requested")
	cancel()
}
