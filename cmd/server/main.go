package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmacy_pos_backend/internal/config"
	"pharmacy_pos_backend/internal/database"
	"pharmacy_pos_backend/internal/jobs"
	"pharmacy_pos_backend/internal/metrics"
	"pharmacy_pos_backend/internal/middleware"
	"pharmacy_pos_backend/internal/router"
	"pharmacy_pos_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.InitLogger("info", true)
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogPretty)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
	utils.LogInfo("Server stopped")
}

func run(cfg *config.Config) error {
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	jwtManager, err := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	if err != nil {
		return err
	}
	m := metrics.NewMetrics(nil)
	svc := router.NewServices(db, cfg, jwtManager, m)

	sweeper, err := jobs.NewExpirySweeper(svc.Subscriptions, cfg.SweepSchedule)
	if err != nil {
		return err
	}

	engine := newEngine(cfg, m)
	router.Setup(engine, svc, jwtManager, m)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.LogInfo("Server starting", map[string]interface{}{"port": cfg.Port})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	sweeper.Start()

	g.Go(func() error {
		<-gctx.Done()
		utils.LogInfo("Shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sweeper.Stop(shutdownCtx); err != nil {
			utils.LogError(err, "Expiry sweeper did not stop cleanly")
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newEngine(cfg *config.Config, m *metrics.Metrics) *gin.Engine {
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Trace-ID"}
	corsConfig.ExposeHeaders = []string{"X-Trace-ID"}
	corsConfig.AllowCredentials = true

	engine.Use(
		gin.Recovery(),
		middleware.TraceIDMiddleware(),
		utils.GinLogger(),
		m.Middleware(),
		cors.New(corsConfig),
	)
	return engine
}
