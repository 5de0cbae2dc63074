package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/videohub/internal/config"
	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/httpserver"
	"github.com/Skotchmaster/videohub/internal/media"
	"github.com/Skotchmaster/videohub/internal/metrics"
	authmw "github.com/Skotchmaster/videohub/internal/middleware"
	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/repo"
	"github.com/Skotchmaster/videohub/internal/search"
	"github.com/Skotchmaster/videohub/internal/service"
	pkgdb "github.com/Skotchmaster/videohub/pkg/db"
	"github.com/Skotchmaster/videohub/pkg/logging"
	loggingmw "github.com/Skotchmaster/videohub/pkg/middleware/logging"
	"github.com/Skotchmaster/videohub/pkg/tokens"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := pkgdb.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.WithContext(initCtx).AutoMigrate(models.AllModels()...); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	store, err := media.NewS3Store(initCtx, media.Config{
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		PublicURL: cfg.S3PublicURL,
	})
	if err != nil {
		log.Fatalf("object storage init error: %v", err)
	}

	var (
		publisher service.EventPublisher = events.Nop{}
		producer  *events.Producer
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		publisher = producer
	} else {
		logger.Info("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}

	var indexer service.ChannelIndexer = search.Nop{}
	if cfg.ESURL != "" {
		esClient, err := search.NewClient(initCtx, search.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			logger.Warn("search_disabled", "error", err)
		} else {
			indexer = search.NewChannelIndex(esClient, cfg.ESIndex)
		}
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	codec := tokens.NewCodec(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	r := repo.New(db)

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.RequestID(),
		collector.Middleware(),
		loggingmw.RequestLogger(logger),
		middleware.Recover(),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     []string{cfg.CORSOrigin},
			AllowCredentials: cfg.CORSOrigin != "*",
		}),
	)

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:          service.NewAuthService(r, codec, store, publisher, indexer, collector),
			CookieSecure: cfg.CookieSecure,
			TempDir:      cfg.UploadTempDir,
		},
		ChannelHandler: &httpserver.ChannelHTTP{Svc: service.NewChannelService(r, publisher, indexer)},
		HistoryHandler: &httpserver.HistoryHTTP{Svc: &service.HistoryService{Repo: r}},
		Guard:          authmw.NewGuard(codec, r),
		Ready:          func(ctx context.Context) error { return pkgdb.Ping(ctx, db) },
		Metrics:        metrics.Handler(prometheus.DefaultGatherer),
		AuthRate:       rate.Limit(cfg.AuthRate),
		AuthBurst:      cfg.AuthBurst,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting_down")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db_close_failed", "error", err)
	}

	logger.Info("shutdown_complete")
}
