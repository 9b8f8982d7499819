package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petermazzocco/go-notes-project/internal/auth"
	"github.com/petermazzocco/go-notes-project/internal/config"
	"github.com/petermazzocco/go-notes-project/internal/flash"
	"github.com/petermazzocco/go-notes-project/internal/handlers"
	"github.com/petermazzocco/go-notes-project/internal/media"
	"github.com/petermazzocco/go-notes-project/internal/media/imgproc"
	"github.com/petermazzocco/go-notes-project/internal/notes"
	"github.com/petermazzocco/go-notes-project/internal/upload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the notes HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := newLogger(cfg)

			repo, err := openRepository(cmd, cfg, log)
			if err != nil {
				return err
			}

			uploader, err := newUploader(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			var opts []upload.Option
			if cfg.ImageNormalize {
				opts = append(opts, upload.WithTransformer(imgproc.NewNormalizer(cfg.ImageMaxDimension)))
			}

			store := auth.NewCookieStore(cfg.SessionSecret, cfg.SecureCookies)
			toasts := flash.New(store)
			h := handlers.New(
				repo,
				notes.NewEditor(repo, toasts, log),
				upload.New(repo, uploader, cfg.MediaFolder, log, opts...),
				toasts,
				log,
			)

			routes := handlers.RouterConfig{Sessions: store, Log: log}
			if cfg.AuthDisabled {
				log.Warn("authentication disabled; mutating routes are open")
			} else {
				auth.UseGoogle(store, cfg.GoogleKey, cfg.GoogleSecret, cfg.GoogleCallbackURL)
				routes.Auth = auth.NewHandlers(repo, store, log)
			}

			srv := &http.Server{
				Addr:              ":" + cfg.Port,
				Handler:           handlers.NewRouter(h, routes),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return listen(cmd.Context(), srv, log)
		},
	}
}

func newUploader(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (media.Uploader, error) {
	switch cfg.MediaBackend {
	case "r2":
		client, err := media.NewR2Client(ctx, media.R2Config{
			AccountID:       cfg.AccountID,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
			Bucket:          cfg.BucketName,
			PublicURL:       cfg.PublicURL,
		})
		if err != nil {
			return nil, err
		}
		return media.Instrumented("r2", media.NewR2Store(client, cfg.BucketName, cfg.PublicURL, log)), nil
	case "minio":
		client, err := media.NewMinioClient(media.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Secure:    cfg.MinioSecure,
		})
		if err != nil {
			return nil, err
		}
		host := cfg.MinioPublicHost
		if host == "" {
			host = cfg.MinioEndpoint
		}
		return media.Instrumented("minio", media.NewMinioStore(client, cfg.BucketName, host, log)), nil
	default:
		return nil, fmt.Errorf("unsupported MEDIA_BACKEND %q", cfg.MediaBackend)
	}
}

// listen serves until SIGINT or SIGTERM, then drains in-flight requests.
func listen(ctx context.Context, srv *http.Server, log logrus.FieldLogger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("starting API server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
