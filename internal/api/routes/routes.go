package routes

import (
	"github.com/nassert93-sketch/PharmaConnect/config"
	"github.com/nassert93-sketch/PharmaConnect/internal/api/handlers"
	"github.com/nassert93-sketch/PharmaConnect/internal/api/middleware"
	"github.com/nassert93-sketch/PharmaConnect/internal/models"
	"github.com/nassert93-sketch/PharmaConnect/internal/routing"
	"github.com/nassert93-sketch/PharmaConnect/internal/s3"
	"github.com/nassert93-sketch/PharmaConnect/internal/socket"
	"github.com/nassert93-sketch/PharmaConnect/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupRouter receives the wired dependencies and declares every route.
func SetupRouter(
	engine *routing.Engine,
	orderStore *store.OrderStore,
	directory *store.Directory,
	policy *store.Policy,
	cfg config.Config,
	db *mongo.Database,
	s3Uploader *s3.Uploader,
	wsHub *socket.Hub,
) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	userHandler := &handlers.UserHandler{DB: db, Cfg: cfg}
	orderHandler := &handlers.OrderHandler{Engine: engine, Store: orderStore, S3Uploader: s3Uploader, DB: db}
	pharmacyHandler := &handlers.PharmacyHandler{Engine: engine, Store: orderStore, Directory: directory}
	driverHandler := &handlers.DriverHandler{Engine: engine, Store: orderStore}
	adminHandler := &handlers.AdminHandler{Store: orderStore, Directory: directory, Policy: policy, DB: db}
	webSocketHandler := &handlers.WebSocketHandler{Hub: wsHub}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/ws", webSocketHandler.HandleConnection)

		auth := apiV1.Group("/auth")
		{
			auth.POST("/login", userHandler.Login)
			auth.POST("/register", userHandler.Register)
		}

		// Patient surface.
		orders := apiV1.Group("/orders")
		orders.Use(middleware.Authenticate())
		orders.Use(middleware.Authorize(models.RolePatient))
		{
			orders.POST("/", orderHandler.CreateOrder)
			orders.GET("/", orderHandler.GetMyOrders)
			orders.GET("/:id", orderHandler.GetOrderByID)
			orders.POST("/:id/select-quote", orderHandler.SelectQuote)
		}
		apiV1.GET("/payment-methods", middleware.Authenticate(), orderHandler.ListActivePaymentMethods)

		// Pharmacy surface.
		pharmacy := apiV1.Group("/pharmacy")
		pharmacy.Use(middleware.Authenticate())
		pharmacy.Use(middleware.Authorize(models.RolePharmacy))
		{
			pharmacy.GET("/orders", pharmacyHandler.GetOrders)
			pharmacy.POST("/orders/:id/accept", pharmacyHandler.AcceptOrder)
			pharmacy.POST("/orders/:id/refuse", pharmacyHandler.RefuseOrder)
			pharmacy.POST("/orders/:id/quote", pharmacyHandler.SubmitQuote)
			pharmacy.POST("/orders/:id/ready", pharmacyHandler.MarkReady)
			pharmacy.PUT("/status", pharmacyHandler.SetStatus)
		}

		// Driver surface.
		driver := apiV1.Group("/driver")
		driver.Use(middleware.Authenticate())
		driver.Use(middleware.Authorize(models.RoleDriver))
		{
			driver.GET("/orders", driverHandler.GetOrders)
			driver.POST("/orders/:id/pickup", driverHandler.PickupOrder)
			driver.POST("/orders/:id/deliver", driverHandler.DeliverOrder)
		}

		// Admin surface.
		admin := apiV1.Group("/admin")
		admin.Use(middleware.Authenticate())
		admin.Use(middleware.Authorize(models.RoleAdmin))
		{
			admin.GET("/routing-config", adminHandler.GetRoutingConfig)
			admin.PUT("/routing-config", adminHandler.UpdateRoutingConfig)

			admin.GET("/orders", adminHandler.GetAllOrders)

			pharmacies := admin.Group("/pharmacies")
			{
				pharmacies.GET("/", adminHandler.GetPharmacies)
				pharmacies.POST("/", adminHandler.CreatePharmacy)
				pharmacies.PUT("/:id", adminHandler.UpdatePharmacy)
				pharmacies.DELETE("/:id", adminHandler.DeletePharmacy)
			}

			admin.GET("/users", adminHandler.GetUsers)
			admin.POST("/users/:uid/approve", adminHandler.ApproveUser)
			admin.POST("/users/:uid/reject", adminHandler.RejectUser)

			methods := admin.Group("/payment-methods")
			{
				methods.GET("/", adminHandler.GetPaymentMethods)
				methods.POST("/", adminHandler.CreatePaymentMethod)
				methods.PUT("/:code", adminHandler.UpdatePaymentMethod)
				methods.DELETE("/:code", adminHandler.DeletePaymentMethod)
			}
		}
	}

	return router
}
