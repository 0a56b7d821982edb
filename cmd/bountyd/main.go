package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/flyfishlabs/bountyd/internal/agents"
	"github.com/flyfishlabs/bountyd/internal/config"
	"github.com/flyfishlabs/bountyd/internal/crawler"
	"github.com/flyfishlabs/bountyd/internal/domain"
	"github.com/flyfishlabs/bountyd/internal/firehose"
	"github.com/flyfishlabs/bountyd/internal/httpserver"
	"github.com/flyfishlabs/bountyd/internal/ledger"
	"github.com/flyfishlabs/bountyd/internal/openai"
	"github.com/flyfishlabs/bountyd/internal/pinata"
	"github.com/flyfishlabs/bountyd/internal/quiz"
	"github.com/flyfishlabs/bountyd/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	repo, err := sqlite.NewRepository(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()
	logger.Info("database ready", "path", cfg.DatabasePath)

	store, err := pinata.NewClient(pinata.Config{
		JWT:          cfg.PinataJWT,
		Gateway:      cfg.PinataGateway,
		DatasetLabel: cfg.DatasetLabel,
	}, logger)
	if err != nil {
		return fmt.Errorf("create content store: %w", err)
	}

	models, err := openai.NewClient(openai.Config{
		BaseURL:    cfg.OpenAIBaseURL,
		APIKey:     cfg.OpenAIKey,
		EmbedModel: cfg.EmbeddingModel,
		ChatModel:  cfg.CompletionModel,
	})
	if err != nil {
		return fmt.Errorf("create model client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain, err := ledger.NewClient(ctx, ledger.Config{
		RPCURL:          cfg.LedgerRPCURL,
		PrivateKeyHex:   cfg.LedgerPrivateKey,
		ContractAddress: cfg.LedgerContract,
		ChainID:         cfg.LedgerChainID,
	}, logger)
	if err != nil {
		return fmt.Errorf("create ledger client: %w", err)
	}
	defer chain.Close()
	logger.Info("connected to ledger", "contract", cfg.LedgerContract, "chainId", cfg.LedgerChainID)

	bounties := domain.NewBountyService(domain.BountyServiceDeps{
		Posts:           store,
		Ranker:          domain.NewRanker(models, cfg.MinPostLength, logger),
		Completer:       models,
		Store:           store,
		Ledger:          chain,
		IDs:             repo,
		Logger:          logger,
		ExplorerBaseURL: cfg.ExplorerBaseURL,
		TopCandidates:   cfg.TopCandidates,
	})

	manager := agents.NewManager(repo, logger)
	pages := crawler.New(logger)
	quizzes := quiz.NewGenerator(pages, models, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Live ingestion is optional; without a firehose URL the service works
	// off already-published datasets.
	if cfg.FirehoseURL != "" {
		subscriber := firehose.NewSubscriber(
			cfg.FirehoseURL,
			cfg.FirehoseKeywords,
			cfg.FirehoseBatchSize,
			store,
			repo,
			logger,
		)
		go func() {
			if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("firehose subscriber exited with error", "error", err)
			}
		}()
	}

	server := httpserver.NewServer(cfg.Port, bounties, manager, pages, quizzes, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port)

	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}
