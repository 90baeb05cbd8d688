package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	server "github.com/kazz187/taskboard/internal"
	"github.com/kazz187/taskboard/internal/attachment"
	"github.com/kazz187/taskboard/internal/channel"
	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/idgen"
	"github.com/kazz187/taskboard/internal/task"
	taskrepo "github.com/kazz187/taskboard/internal/task/repositoryimpl"
	"github.com/kazz187/taskboard/pkg/clog"
	"github.com/kazz187/taskboard/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	ids := idgen.NewULID()

	// Setup registry
	taskRepo := taskrepo.NewMemoryRepository()
	if err := seed(ctx, env, taskRepo, ids); err != nil {
		slog.Error("failed to seed tasks", "error", err)
		os.Exit(1)
	}

	// Setup attachment storage
	var store storage.Storage
	switch env.AttachmentEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region, env.S3PublicURL)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.BaseDir, env.AttachmentBaseURL())
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}
	uploader := attachment.NewStorageUploader(store, env.Folder, ids)

	// Setup servers
	hub := channel.NewHub(taskRepo, ids,
		channel.WithSendBuffer(env.SendBuffer),
		channel.WithMaxMessageBytes(env.MaxMessageBytes),
	)
	taskServer := task.NewServer(taskRepo, ids)
	attachmentServer := attachment.NewServer(taskRepo, uploader, store, env.UploadTmpDir, env.UploadMaxBytes)
	srv := server.NewServer(env, taskServer, attachmentServer, hub)

	var wg conc.WaitGroup
	wg.Go(func() { hub.Run(ctx) })
	wg.Go(func() {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	})

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	wg.Wait()
}

func seed(ctx context.Context, env *config.Env, repo task.Repository, ids idgen.Generator) error {
	var tasks []*task.Task
	if env.SeedExamples {
		tasks = append(tasks, taskrepo.SeedExamples(ids)...)
	}
	if env.SeedFile != "" {
		fromFile, err := taskrepo.LoadSeedFile(env.SeedFile, ids)
		if err != nil {
			return err
		}
		tasks = append(tasks, fromFile...)
	}
	if err := taskrepo.Seed(ctx, repo, tasks); err != nil {
		return err
	}
	slog.Info("seeded tasks", "count", len(tasks))
	return nil
}
