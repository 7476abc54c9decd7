package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"parqueadero/internal/api/handler"
	"parqueadero/internal/api/middleware"
	"parqueadero/internal/domain"
	"parqueadero/internal/service"
)

func SetupRouter(
	authService *service.AuthService,
	parkingService *service.ParkingService,
	restrictionService *service.RestrictionService,
	historyService *service.HistoryService,
	incidentService *service.IncidentService,
	authMw *middleware.AuthMiddleware,
	wsManager *handler.WebSocketManager,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Canal en vivo para los tableros; la conexión no requiere token.
	wsHandler := handler.NewWebSocketHandler(wsManager, logger)
	r.GET("/ws", wsHandler.HandleWebSocket)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handler.NewAuthHandler(authService)
	r.POST("/api/registro", authHandler.Register)
	r.POST("/api/login", authHandler.Login)

	api := r.Group("/api")
	api.Use(authMw.Authenticate())
	{
		vehicleH := handler.NewVehicleHandler(parkingService)
		vehicleRoutes := api.Group("/vehiculos")
		{
			vehicleRoutes.POST("", vehicleH.CreateVehicle)
			vehicleRoutes.GET("", vehicleH.GetAllVehicles)
		}

		cellH := handler.NewCellHandler(parkingService)
		cellRoutes := api.Group("/celdas")
		{
			cellRoutes.GET("/estado", cellH.GetInventory)
			cellRoutes.POST("", authMw.AuthorizeRole(domain.RoleAdmin), cellH.CreateCell)
			cellRoutes.PUT("/:id/retirar", authMw.AuthorizeRole(domain.RoleAdmin), cellH.RetireCell)
		}

		parkingH := handler.NewParkingHandler(parkingService)
		parkingRoutes := api.Group("/parqueo")
		{
			parkingRoutes.POST("/entrada", parkingH.RegisterEntry)
			parkingRoutes.POST("/salida", parkingH.RegisterExit)
			parkingRoutes.GET("/estacionados", parkingH.GetParked)
		}

		historyH := handler.NewHistoryHandler(historyService)
		api.GET("/historial", historyH.GetHistory)

		restrictionH := handler.NewRestrictionHandler(restrictionService)
		restrictionRoutes := api.Group("/pico-placa")
		{
			restrictionRoutes.GET("", restrictionH.GetAllRules)
			restrictionRoutes.POST("", authMw.AuthorizeRole(domain.RoleAdmin), restrictionH.CreateRule)
			restrictionRoutes.DELETE("/:id", authMw.AuthorizeRole(domain.RoleAdmin), restrictionH.DeleteRule)
		}

		incidentH := handler.NewIncidentHandler(incidentService)
		incidentRoutes := api.Group("/incidencias")
		{
			incidentRoutes.POST("", incidentH.RecordIncident)
			incidentRoutes.GET("", incidentH.GetAllIncidents)
		}
	}
	return r
}
