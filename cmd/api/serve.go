package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"proposals/api/internal/app"
	"proposals/api/internal/draft"
	"proposals/api/internal/export"
	"proposals/api/internal/generation"
	"proposals/api/internal/search"
	"proposals/api/internal/store"
)

func newServeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return rt.serve(ctx)
		},
	}
}

func (rt *runtime) serve(ctx context.Context) error {
	cfg := rt.cfg
	logger := rt.logger

	db, err := rt.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	dataStore := store.NewPostgresStore(db)

	var drafts draft.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis for drafts")
		redisStore, err := draft.NewRedisStore(cfg.RedisURL, cfg.DraftTTL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		drafts = redisStore
	} else {
		logger.Info("using in-memory drafts")
		drafts = draft.NewMemoryStore(cfg.DraftTTL)
	}

	// A nil *Meili must not reach search.NewService as a non-nil interface.
	var index search.Index
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
		index = meiliClient
	}
	searchService := search.NewService(index, dataStore, logger)

	var uploader export.Uploader
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		objectStore, err := export.NewObjectStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, cfg.PresignTTL)
		if err != nil {
			return err
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			logger.Warn("object storage unavailable, exports will be inline only", zap.Error(err))
		} else {
			uploader = objectStore
		}
	}
	exportService := export.NewService(dataStore, uploader, logger)

	service := app.New(cfg, app.Dependencies{
		Store:     dataStore,
		Drafts:    drafts,
		Generator: rt.assembler(),
		Search:    searchService,
		Export:    exportService,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.NewHTTPServer(service, cfg.CORSOrigin, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Generation streams can run for minutes.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("proposals API listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// assembler prefers the remote generator when one is configured and always
// keeps the local simulator as a fallback.
func (rt *runtime) assembler() *generation.Assembler {
	var primary generation.Generator
	if strings.TrimSpace(rt.cfg.GeneratorURL) != "" {
		primary = generation.NewHTTPGenerator(rt.cfg.GeneratorURL, rt.cfg.GeneratorAPIKey, rt.logger)
	}
	return generation.NewAssembler(primary, generation.NewFallbackGenerator(rt.cfg.FallbackDelay), rt.logger)
}
