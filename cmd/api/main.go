package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/inventario-bom/internal/bootstrap"
	httpRouter "github.com/jhoicas/inventario-bom/internal/interfaces/http"
	"github.com/jhoicas/inventario-bom/pkg/config"
	"github.com/jhoicas/inventario-bom/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.StorageDriver).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()
	deps, err := bootstrap.New(ctx, cfg, log, true)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar dependencias")
	}
	defer deps.Close()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Inventario BOM API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		ItemUC:        deps.ItemUC,
		ProductUC:     deps.ProductUC,
		BreakdownUC:   deps.BreakdownUC,
		RebuildUC:     deps.RebuildUC,
		TransactionUC: deps.TransactionUC,
		ConversionUC:  deps.ConversionUC,
		Gatherer:      deps.Registry,
		JWTSecret:     cfg.JWT.Secret,
		AppName:       cfg.App.Name,
		Logger:        log.Named("http"),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Si el proceso muere antes, el job queda activo y el próximo arranque lo marca como fallido.
	log.Info().Msg("esperando job de conversión en curso")
	deps.ConversionUC.Wait()

	log.Info().Msg("aplicación detenida")
}
