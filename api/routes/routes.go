package routes

import (
	"example.com/fleetops/api/handlers"
	"example.com/fleetops/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes sets up all the routes for the server
func SetupRoutes(r *gin.Engine, svc service.Service, log *logrus.Logger) {
	// Health check
	r.GET("/health", handlers.HealthCheck)

	api := r.Group("/api/v1")

	drivers := api.Group("/drivers")
	driverHandler := handlers.NewDriverHandler(svc, log)
	drivers.POST("/upload", driverHandler.UploadDrivers)
	drivers.GET("/data", driverHandler.ListDrivers)
	drivers.PUT("/data/:id", driverHandler.UpdateDriver)
	drivers.DELETE("/data/:id", driverHandler.DeleteDriver)
	drivers.POST("/data/bulk-delete", driverHandler.BulkDeleteDrivers)

	fleet := api.Group("/fleet")
	fleetHandler := handlers.NewFleetHandler(svc, log)
	fleet.POST("/upload", fleetHandler.UploadFleet)
	fleet.GET("/data", fleetHandler.ListFleet)
	fleet.GET("/filters", fleetHandler.FleetFilters)
	fleet.GET("/plate/:plat", fleetHandler.FleetByPlate)
	fleet.GET("/roster", fleetHandler.FleetRoster)
	fleet.POST("/export", fleetHandler.ExportFleet)
	fleet.GET("/info", fleetHandler.FleetInfo)
	fleet.PUT("/data/:id", fleetHandler.UpdateFleet)
	fleet.DELETE("/data/:id", fleetHandler.DeleteFleet)
	fleet.POST("/data/bulk-delete", fleetHandler.BulkDeleteFleet)
	fleet.DELETE("/data", fleetHandler.DeleteAllFleet)

	sellers := api.Group("/sellers")
	sellerHandler := handlers.NewSellerHandler(svc, log)
	sellers.POST("/upload", sellerHandler.UploadSellers)
	sellers.GET("/data", sellerHandler.ListSellers)
	sellers.PUT("/data/:id", sellerHandler.UpdateSeller)
	sellers.DELETE("/data/:id", sellerHandler.DeleteSeller)
	sellers.POST("/data/bulk-delete", sellerHandler.BulkDeleteSellers)

	bonuses := api.Group("/bonuses")
	bonusHandler := handlers.NewBonusHandler(svc, log)
	bonuses.POST("/upload", bonusHandler.ReplaceBonuses)
	bonuses.POST("/append", bonusHandler.AppendBonuses)
	bonuses.GET("/data", bonusHandler.ListBonuses)
	bonuses.GET("/hub/:hub", bonusHandler.BonusesByHub)
	bonuses.DELETE("/data", bonusHandler.DeleteAllBonuses)

	orders := api.Group("/projects/:project/orders")
	orderHandler := handlers.NewOrderHandler(svc, log)
	orders.POST("/upload", orderHandler.UploadOrders)
	orders.GET("/data", orderHandler.ListOrders)
	orders.GET("/data/:id", orderHandler.GetOrder)
	orders.PUT("/data/:id", orderHandler.UpdateOrder)
	orders.DELETE("/data/:id", orderHandler.DeleteOrder)
	orders.DELETE("/data", orderHandler.DeleteAllOrders)
	orders.POST("/assign", orderHandler.AssignOrders)
	orders.POST("/:orderId/unassign", orderHandler.UnassignOrder)
	orders.POST("/validate-sender", orderHandler.ValidateSender)
	orders.POST("/validate-senders", orderHandler.ValidateSenders)

	messages := api.Group("/messages")
	messageHandler := handlers.NewMessageHandler(svc, log)
	messages.POST("/upload", messageHandler.UploadMessages)
	messages.GET("/data", messageHandler.ListMessages)
	messages.DELETE("/data", messageHandler.DeleteAllMessages)
	messages.POST("/send", messageHandler.SendMessages)
	messages.GET("/logs", messageHandler.MessageLogs)
	messages.GET("/logs/export", messageHandler.ExportMessageLogs)
	messages.GET("/statistics", messageHandler.MessageStatistics)
}
