package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillswap-service/internal/api/handlers"
	"skillswap-service/internal/api/middleware"
	"skillswap-service/internal/config"
	"skillswap-service/internal/database"
	"skillswap-service/internal/realtime"
	"skillswap-service/internal/repositories/postgres"
	"skillswap-service/internal/services"
)

type Router struct {
	engine         *gin.Engine
	wsHandler      *handlers.WSHandler
	authHandler    *handlers.AuthHandler
	userHandler    *handlers.UserHandler
	skillHandler   *handlers.SkillHandler
	requestHandler *handlers.RequestHandler
	chatHandler    *handlers.ChatHandler
	authMW         *middleware.AuthMiddleware
}

func NewRouter(
	cfg *config.Config,
	hub *realtime.Hub,
	db *gorm.DB,
	redisClient *database.RedisClient,
	minioClient *database.MinIOClient,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	engine.Use(middleware.LogApi())

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	skillRepo := postgres.NewSkillRepository(db)
	requestRepo := postgres.NewRequestRepository(db)
	roomRepo := postgres.NewRoomRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	videoService := services.NewVideoService(cfg.Video.APIKey, cfg.Video.Secret, cfg.Video.TokenTTL)
	storageService := services.NewStorageService(minioClient)
	presenceService := services.NewPresenceService(redisClient)

	return &Router{
		engine:         engine,
		wsHandler:      handlers.NewWSHandler(hub, cfg.Server.AllowedOrigins),
		authHandler:    handlers.NewAuthHandler(authService),
		userHandler:    handlers.NewUserHandler(userRepo),
		skillHandler:   handlers.NewSkillHandler(skillRepo),
		requestHandler: handlers.NewRequestHandler(requestRepo, skillRepo, roomRepo),
		chatHandler:    handlers.NewChatHandler(roomRepo, messageRepo, storageService, videoService, presenceService),
		authMW:         middleware.NewAuthMiddleware(cfg.JWT.Secret),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.engine.Group("/api/v1")

	// WebSocket endpoint; browsers cannot set headers on the handshake,
	// so the token rides the query string
	api.GET("/ws",
		r.authMW.RequireWSAuth(),
		r.wsHandler.HandleWebSocket,
	)

	// Public routes (no authentication required)
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", r.authHandler.Register)
		authRoutes.POST("/login", r.authHandler.Login)
	}

	// Authenticated routes
	auth := api.Group("/")
	auth.Use(r.authMW.RequireAuth())
	{
		users := auth.Group("/users")
		{
			users.GET("/profile", r.userHandler.GetProfile)
			users.PUT("/profile", r.userHandler.UpdateProfile)
		}

		skills := auth.Group("/skills")
		{
			skills.GET("/", r.skillHandler.Browse)
			skills.GET("/mine", r.skillHandler.ListMine)
			skills.POST("/", r.skillHandler.Create)
			skills.DELETE("/:id", r.skillHandler.Delete)
		}

		requests := auth.Group("/requests")
		{
			requests.POST("/", r.requestHandler.Create)
			requests.GET("/incoming", r.requestHandler.ListIncoming)
			requests.GET("/outgoing", r.requestHandler.ListOutgoing)
			requests.PUT("/:id", r.requestHandler.Respond)
		}

		chats := auth.Group("/chats")
		{
			chats.GET("/", r.chatHandler.ListRooms)
			chats.GET("/:id", r.chatHandler.GetRoom)
			chats.PUT("/:id/read", r.chatHandler.MarkRead)
			chats.POST("/:id/files", r.chatHandler.UploadFile)
			chats.GET("/:id/video-token", r.chatHandler.VideoToken)
			chats.GET("/:id/partner-status", r.chatHandler.PartnerStatus)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
