package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parqueadero/internal/api"
	"parqueadero/internal/api/handler"
	"parqueadero/internal/api/middleware"
	"parqueadero/internal/config"
	"parqueadero/internal/repository/postgresql"
	"parqueadero/internal/service"
)

func main() {
	// 1. Configuración
	cfg := config.Load()

	logger := initLogger(cfg.Debug)
	defer logger.Sync()
	logger.Info("configuración cargada", zap.String("puerto", cfg.ServerPort))

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("zona horaria no válida", zap.String("zona", cfg.Timezone), zap.Error(err))
	}

	// 2. Base de datos
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		logger.Fatal("no se pudo conectar a la base de datos", zap.Error(err))
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := postgresql.Migrate(migrateCtx, db); err != nil {
		cancelMigrate()
		logger.Fatal("no se pudieron aplicar las migraciones", zap.Error(err))
	}
	cancelMigrate()
	logger.Info("base de datos lista")

	// 3. Repositorios
	userRepo := postgresql.NewPgUserRepository(db)
	cellRepo := postgresql.NewPgCellRepository(db)
	vehicleRepo := postgresql.NewPgVehicleRepository(db)
	sessionRepo := postgresql.NewPgSessionRepository(db, logger)
	historyRepo := postgresql.NewPgHistoryRepository(db)
	restrictionRepo := postgresql.NewPgRestrictionRepository(db)
	incidentRepo := postgresql.NewPgIncidentRepository(db)

	// 4. Hub de websockets para los tableros
	wsManager := handler.NewWebSocketManager(logger)
	go wsManager.Start()

	// 5. Servicios
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours)
	restrictionService := service.NewRestrictionService(restrictionRepo, location, logger)
	parkingService := service.NewParkingService(cellRepo, vehicleRepo, sessionRepo, restrictionService, wsManager, logger)
	historyService := service.NewHistoryService(historyRepo, logger)
	incidentService := service.NewIncidentService(incidentRepo, sessionRepo, logger)

	authMiddleware := middleware.NewAuthMiddleware(authService, logger)

	// 6. Router y servidor HTTP
	router := api.SetupRouter(authService, parkingService, restrictionService,
		historyService, incidentService, authMiddleware, wsManager, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		logger.Info("servidor escuchando", zap.String("puerto", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("error en ListenAndServe", zap.Error(err))
		}
	}()

	// Apagado ordenado
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("apagando el servidor...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("el servidor no se apagó a tiempo", zap.Error(err))
	}
	logger.Info("servidor apagado")
}

func initLogger(debug bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
