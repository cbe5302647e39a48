package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/archive"
	"dental-receptionist-server/internal/bridge"
	"dental-receptionist-server/internal/config"
	"dental-receptionist-server/internal/events"
	"dental-receptionist-server/internal/flows"
	"dental-receptionist-server/internal/handlers"
	"dental-receptionist-server/internal/middleware"
	"dental-receptionist-server/internal/models"
)

// Dependencies is everything the handlers are built from.
type Dependencies struct {
	// Context lives as long as the server. Voice calls end when it is done.
	Context context.Context
	DB      *gorm.DB
	Cfg     *config.Config
	Log     *zap.Logger
	Events  events.Publisher
	Archive archive.Archiver
	Bridge  *bridge.Bridge
	Dial    handlers.ModelDialer
	Flows   *flows.Router
	// Now returns the clinic's local time.
	Now func() time.Time
}

// Sessions are the long-lived calls and conversations behind the routes.
type Sessions struct {
	Voice         *handlers.VoiceHandler
	Conversations *handlers.ConversationHandler
}

// Drain waits for live calls to end, then archives every open conversation.
// Call it after the HTTP server has shut down.
func (s Sessions) Drain(ctx context.Context) error {
	err := s.Voice.Wait(ctx)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.Conversations.Close(closeCtx)
	return err
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, d Dependencies) Sessions {
	cfg := d.Cfg
	ctx := d.Context
	if ctx == nil {
		ctx = context.Background()
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(d.DB, cfg, d.Log)
	userHandler := handlers.NewUserHandler(d.DB, d.Log)
	voiceHandler := handlers.NewVoiceHandler(ctx, cfg, d.Bridge, d.Dial, d.Log)
	conversationHandler := handlers.NewConversationHandler(d.Flows, d.Archive, d.Now, d.Log)
	dashboardHandler := handlers.NewDashboardHandler(d.DB, d.Now, d.Log)
	appointmentHandler := handlers.NewAppointmentHandler(d.DB, d.Log)
	patientHandler := handlers.NewPatientHandler(d.DB, d.Log)
	complaintHandler := handlers.NewComplaintHandler(d.DB, d.Log)
	orderHandler := handlers.NewOrderHandler(d.DB, d.Events, d.Log)
	businessHandler := handlers.NewBusinessHandler(d.DB, d.Log)

	// Telephony
	router.GET("/voice", voiceHandler.IncomingCall)
	router.POST("/voice", voiceHandler.IncomingCall)
	router.GET("/media-stream", voiceHandler.MediaStream)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		conversationRoutes := public.Group("/conversations")
		{
			conversationRoutes.POST("", conversationHandler.StartConversation)
			conversationRoutes.POST("/:id/messages", conversationHandler.SendMessage)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
		}

		private.GET("/dashboard", dashboardHandler.GetDashboard)

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("", appointmentHandler.ListAppointments)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
		}

		patientRoutes := private.Group("/patients")
		{
			patientRoutes.GET("", patientHandler.ListPatients)
			patientRoutes.GET("/:id", patientHandler.GetPatient)
		}

		complaintRoutes := private.Group("/complaints")
		{
			complaintRoutes.GET("", complaintHandler.ListComplaints)
			complaintRoutes.PATCH("/:id/status", complaintHandler.UpdateComplaintStatus)
		}

		orderRoutes := private.Group("/orders")
		{
			orderRoutes.GET("", orderHandler.ListOrders)
			orderRoutes.POST("", orderHandler.CreateOrder)
			orderRoutes.PATCH("/:id/status", orderHandler.UpdateOrderStatus)
		}

		private.GET("/business-logs", businessHandler.ListBusinessLogs)
		private.GET("/suppliers", businessHandler.ListSuppliers)

		// Admin-only routes
		userRoutes := private.Group("/users")
		userRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			userRoutes.GET("", userHandler.GetUsers)
			userRoutes.POST("", userHandler.CreateUser)
			userRoutes.DELETE("/:id", userHandler.DeleteUser)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})

	return Sessions{Voice: voiceHandler, Conversations: conversationHandler}
}
