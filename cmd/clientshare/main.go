package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/hexavel/clientshare/internal/cache"
	"github.com/hexavel/clientshare/internal/config"
	"github.com/hexavel/clientshare/internal/db"
	"github.com/hexavel/clientshare/internal/handler"
	"github.com/hexavel/clientshare/internal/job"
	"github.com/hexavel/clientshare/internal/middleware"
	"github.com/hexavel/clientshare/internal/repo"
	"github.com/hexavel/clientshare/internal/schedule"
	"github.com/hexavel/clientshare/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "clientshare",
		Short: "client sharing portal backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run clientshare server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
	)

	userRepo := repo.NewUserRepo(conn)
	clientRepo := repo.NewClientRepo(conn)
	shareCodeRepo := repo.NewShareCodeRepo(conn)
	sharedAccessRepo := repo.NewSharedAccessRepo(conn)

	clientReader := cache.WrapLruCacheToClientGetter(
		clientRepo,
		cfg.Sharing.ClientCacheSize,
		time.Duration(cfg.Sharing.ClientCacheTTLSeconds)*time.Second,
	)

	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	clientService := service.NewClientService(clientRepo)
	shareService := service.NewShareService(shareCodeRepo, sharedAccessRepo, clientRepo, clientReader, service.ShareOptions{
		MaxCodesPerHour:    cfg.Sharing.MaxCodesPerHour,
		DefaultExpiryHours: cfg.Sharing.DefaultExpiryHours,
		MaxExpiryHours:     cfg.Sharing.MaxExpiryHours,
		MaxUsesLimit:       cfg.Sharing.MaxUsesLimit,
	})

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Clients:   handler.NewClientHandler(clientService),
		Shares:    handler.NewShareHandler(shareService),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewShareCodeCleanupJob(shareCodeRepo), cfg.Sharing.CleanupCron); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
