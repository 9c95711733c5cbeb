package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"landwatch/internal/api"
	"landwatch/internal/bot"
	"landwatch/internal/config"
	"landwatch/internal/fetch"
	"landwatch/internal/land"
	"landwatch/internal/proxy"
	"landwatch/internal/store"
	"landwatch/internal/stream"
	"landwatch/internal/supervisor"
	"landwatch/internal/worker"
)

// BuildCommit is set at build time via -ldflags.
var BuildCommit = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("config: %v", err)
		os.Exit(1)
	}

	log.Println("Initializing landwatch...")
	log.Printf("build: %s", BuildCommit)
	log.Printf("max land: %d, fetch concurrency: %d", cfg.MaxLand, cfg.FetchConcurrency)

	stateStore, err := store.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Printf("store: %v", err)
		os.Exit(2)
	}
	defer stateStore.Close()

	var yielder proxy.Yielder
	if cfg.ProxyEnabled {
		yielder = proxy.NewWebshareYielder(cfg.WebshareToken, 5*time.Minute)
		log.Println("proxy pool: webshare enabled")
	}

	fetcher := fetch.NewHTTPFetcher(cfg.PWWSEndpoint, nil)
	dispatcher := fetch.NewDispatcher(fetcher, fetch.Config{
		Concurrency: cfg.FetchConcurrency,
		Timeout:     cfg.FetchTimeout,
		Yielder:     yielder,
	})

	sup := supervisor.New(cfg.MaxLand, func(l land.Id) supervisor.Runnable {
		return worker.New(l, stateStore, dispatcher)
	})

	broadcaster := stream.New(stateStore, cfg.MaxLand, cfg.StreamQueueSize)

	apiServer := api.NewServer(stateStore, broadcaster, cfg.MaxLand, api.Config{
		Port:           cfg.APIPort,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		RateLimitTTL:   time.Duration(cfg.RateLimitTTLMin) * time.Minute,
	})

	var chatBot *bot.Bot
	if cfg.BotEnabled() {
		chatBot, err = bot.New(bot.Config{
			BotToken:        cfg.SlackBotToken,
			AppToken:        cfg.SlackAppToken,
			TrackerChannel:  cfg.SlackTrackerChannel,
			IndustryChannel: cfg.SlackIndustryChannel,
			TrackerInterval: cfg.BotTrackerInterval,
			LowSec:          cfg.BotTrackerLowSec,
			HighSec:         cfg.BotTrackerHighSec,
			MaxLand:         cfg.MaxLand,
		}, stateStore)
		if err != nil {
			log.Printf("bot: %v", err)
			os.Exit(1)
		}
	} else {
		log.Println("chat bot disabled (SLACK_BOT_TOKEN/SLACK_APP_TOKEN not set)")
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()
	go func() {
		if err := broadcaster.Run(ctx); err != nil {
			log.Printf("broadcaster: %v", err)
		}
	}()
	go func() {
		log.Printf("api: listening on :%s", cfg.APIPort)
		if err := apiServer.Start(); err != nil {
			log.Printf("api: %v", err)
		}
	}()
	if chatBot != nil {
		go func() {
			if err := chatBot.Run(ctx); err != nil {
				log.Printf("bot: %v", err)
			}
		}()
	}

	<-sigCh
	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownGraceSec)*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown: %v", err)
	}

	cancel()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Println("shutdown grace period exceeded, exiting anyway")
	}
}
