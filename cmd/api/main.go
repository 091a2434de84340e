package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"signbridge/config"
	"signbridge/correlation"
	"signbridge/db"
	"signbridge/docstore"
	"signbridge/esign"
	"signbridge/legacy"
)

const templateFileName = "MemberApplication.pdf"

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := correlation.NewRepository(pool)

	provider, err := esign.NewHTTPProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey, nil, logger)
	if err != nil {
		return err
	}

	bridge, err := legacy.NewBridge(
		cfg.Legacy.BaseURI,
		cfg.Legacy.Environment,
		cfg.Legacy.Library,
		&http.Client{Timeout: cfg.Legacy.Timeout},
		logger,
	)
	if err != nil {
		return err
	}

	storage, err := docstore.NewFileStore(cfg.Provider.DocPath)
	if err != nil {
		return err
	}

	filler := esign.NewFileTemplate(filepath.Join(cfg.Provider.DocPath, templateFileName))

	signatures := esign.NewService(provider, repo, bridge, storage, filler,
		cfg.Provider.SenderEmail, cfg.Provider.DocExpiryDays, logger)

	srv := newServer(logger, signatures, cfg.Provider.CallbackKey, cfg.JWTSecret,
		pool.Ping, bridge.Ping)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
