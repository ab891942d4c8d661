package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/pixelfall/pixelfall/client"
	"github.com/pixelfall/pixelfall/internal/config"
	"github.com/pixelfall/pixelfall/internal/domain"
	"github.com/pixelfall/pixelfall/internal/infra/database"
	"github.com/pixelfall/pixelfall/internal/infra/gateway"
	"github.com/pixelfall/pixelfall/internal/infra/repository"
	"github.com/pixelfall/pixelfall/internal/present/rest"
	"github.com/pixelfall/pixelfall/internal/present/rest/middleware"
	"github.com/pixelfall/pixelfall/internal/service"
	"github.com/pixelfall/pixelfall/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if conf.Server.EnableTrace {
		cleanup, err := setupTraceProvider(conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to setup trace provider", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer cleanup()
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		slog.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = database.MigratePostgres(db)
	if err != nil {
		slog.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, "", conf.Server.RedisDB)
	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	blobClient := client.New(conf.Server.BlobEndpoint, conf.Server.BlobToken)
	blobs := gateway.NewBlobGateway(blobClient)

	albumRepo := repository.NewAlbumRepository(db, mc)
	mediaRepo := repository.NewMediaRepository(db, mc)

	signal := service.NewSignalService(rdb)

	domainConf := domain.Config{
		AdminTokenHash: conf.Server.AdminTokenHash,
		UploadTimeout:  conf.Uploads.UploadTimeout(),
		PersistTimeout: conf.Uploads.PersistTimeout(),
		DebounceWindow: conf.Uploads.DebounceWindow(),
	}

	order := usecase.NewOrderUsecase(albumRepo, mediaRepo, signal)
	dedup := usecase.NewDedupUsecase(mediaRepo, blobs, signal)
	media := usecase.NewMediaUsecase(mediaRepo, blobs, signal)
	album := usecase.NewAlbumUsecase(albumRepo, mediaRepo, blobs)
	upload := usecase.NewUploadReconciler(order, blobs, signal, domainConf.UploadTimeout, domainConf.PersistTimeout)

	handler := rest.NewHandler(domainConf, order, dedup, media, album, upload, signal)
	auth := middleware.NewAuthMiddleware(domainConf)

	e := echo.New()
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("pixelfall"))
	}

	handler.RegisterRoutes(e, auth)

	e.Logger.Fatal(e.Start(conf.Server.Addr))
}

func setupTraceProvider(endpoint string) (func(), error) {
	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "pixelfall"),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Error("failed to shutdown trace provider", slog.String("error", err.Error()))
		}
	}
	return cleanup, nil
}
