// Command partes-server runs the work-order tracking backend.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/artevasinkaizen-cmd/partesapp/internal/auth"
	"github.com/artevasinkaizen-cmd/partesapp/internal/blob"
	"github.com/artevasinkaizen-cmd/partesapp/internal/config"
	"github.com/artevasinkaizen-cmd/partesapp/internal/mailer"
	"github.com/artevasinkaizen-cmd/partesapp/internal/server"
	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
	"github.com/artevasinkaizen-cmd/partesapp/internal/storage/postgres"
	"github.com/artevasinkaizen-cmd/partesapp/internal/storage/sqlite"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("init storage", zap.Error(err))
	}
	defer store.Close()

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal("init blob store", zap.Error(err))
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	var codeMailer auth.Mailer
	if cfg.SMTPConfigured() {
		codeMailer = mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	}
	authSvc := auth.NewService(store, tokens, cfg.RefreshTTL, codeMailer, logger)

	if cfg.SeedAdmin {
		if err := authSvc.SeedAdmin(ctx); err != nil {
			logger.Fatal("seed admin", zap.Error(err))
		}
	}

	srv := server.New(cfg, logger, store, blobs, authSvc)

	go func() {
		logger.Info("partes backend listening",
			zap.String("addr", cfg.HTTPAddress()),
			zap.String("storage", cfg.StorageDriver),
			zap.String("blobs", cfg.BlobDriver),
		)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("graceful shutdown", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.StorageDriver == config.DriverPostgres {
		return postgres.Open(ctx, cfg.DatabaseURL)
	}
	return sqlite.Open(cfg.SQLitePath)
}

func openBlobStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	if cfg.BlobDriver == config.BlobS3 {
		return blob.NewS3Store(ctx, blob.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	return blob.NewLocalStore(cfg.UploadDir)
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
