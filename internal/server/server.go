// Package server assembles the HTTP surface: routing, CORS, auth and
// tenant middleware, and the websocket endpoint.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"eatgreet/internal/auth"
	"eatgreet/internal/catalog"
	"eatgreet/internal/common/httpx"
	"eatgreet/internal/config"
	"eatgreet/internal/connections/rabbitmq"
	"eatgreet/internal/domain"
	"eatgreet/internal/events"
	"eatgreet/internal/gateway"
	"eatgreet/internal/notifier"
	"eatgreet/internal/orders"
	"eatgreet/internal/restaurants"
	"eatgreet/internal/stats"
	"eatgreet/internal/tenant"
	"eatgreet/internal/upload"
)

type Server struct {
	cfg      *config.Config
	log      *logrus.Entry
	db       *sql.DB
	mq       *rabbitmq.Client
	hub      *gateway.Hub
	consumer *gateway.Consumer
	engine   *gin.Engine
}

// New wires repositories, services and handlers onto a gin engine.
func New(cfg *config.Config, log *logrus.Entry, db *sql.DB, mq *rabbitmq.Client) *Server {
	pub := events.NewPublisher(mq)

	usersRepo := auth.NewUsersRepository(db)
	authSvc := auth.NewAuthService(usersRepo, cfg.Auth)
	authHandler := auth.NewHandler(authSvc)

	restaurantsRepo := restaurants.NewRestaurantsRepository(db)
	restaurantsHandler := restaurants.NewHandler(restaurantsRepo)

	catalogRepo := catalog.NewCatalogRepository(db)
	catalogHandler := catalog.NewHandler(catalogRepo, pub, log)

	ordersRepo := orders.NewOrdersRepository(db)
	ordersSvc := orders.NewOrdersService(ordersRepo, pub, cfg.Orders, log)
	ordersHandler := orders.NewHandler(ordersSvc)

	statsRepo := stats.NewStatsRepository(db)
	statsHandler := stats.NewHandler(statsRepo, ordersRepo)

	uploadHandler := upload.NewHandler(cfg.Upload, log)

	hub := gateway.NewHub(log)
	gatewayHandler := gateway.NewHandler(hub, pub, log)

	s := &Server{
		cfg:      cfg,
		log:      log,
		db:       db,
		mq:       mq,
		hub:      hub,
		consumer: gateway.NewConsumer(mq, hub, log),
	}
	s.engine = s.routes(authSvc, authHandler, restaurantsRepo, restaurantsHandler,
		catalogHandler, ordersHandler, statsHandler, uploadHandler, gatewayHandler)
	return s
}

func (s *Server) routes(
	authSvc auth.AuthServiceInterface,
	authHandler *auth.Handler,
	resolver tenant.ResolverInterface,
	restaurantsHandler *restaurants.Handler,
	catalogHandler *catalog.Handler,
	ordersHandler *orders.Handler,
	statsHandler *stats.Handler,
	uploadHandler *upload.Handler,
	gatewayHandler *gateway.Handler,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLog())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", tenant.HeaderName},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/health", s.health)
	engine.GET("/ws", gatewayHandler.Serve)

	api := engine.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/profile", auth.Middleware(authSvc), authHandler.GetProfile)
		authGroup.PUT("/profile", auth.Middleware(authSvc), authHandler.UpdateProfile)
	}

	restGroup := api.Group("/restaurant")
	{
		restGroup.GET("", auth.Middleware(authSvc), auth.RequireRoles(domain.RoleSuperAdmin), restaurantsHandler.List)
		restGroup.GET("/slug/:slug", restaurantsHandler.GetBySlug)
		restGroup.GET("/:id", restaurantsHandler.GetByID)
	}

	staff := auth.RequireRoles(domain.RoleAdmin, domain.RoleKitchen, domain.RoleSuperAdmin)
	adminOnly := auth.RequireRoles(domain.RoleAdmin, domain.RoleSuperAdmin)

	// Public tenant-scoped reads. Optional auth lets a logged-in admin's
	// claims win tenant resolution.
	public := api.Group("", auth.Optional(authSvc), tenant.Middleware(resolver))
	{
		public.GET("/menu", catalogHandler.ListMenu)
		public.GET("/menu/:id", catalogHandler.GetMenuItem)
		public.GET("/categories", catalogHandler.ListCategories)
		public.POST("/orders", ordersHandler.Create)
		public.GET("/orders", ordersHandler.List)
		public.GET("/orders/table-status/:tableNumber", ordersHandler.TableStatus)
		public.GET("/orders/:id", ordersHandler.Get)
	}

	// Kitchen display resolves its tenant from the path, not a session.
	api.GET("/orders/kitchen/:restaurantName", tenantFromParam("restaurantName"),
		tenant.Middleware(resolver), ordersHandler.Kitchen)

	mutate := api.Group("", auth.Middleware(authSvc), tenant.Middleware(resolver))
	{
		mutate.PUT("/orders/:id/status", staff, ordersHandler.UpdateStatus)
		mutate.PUT("/orders/:id/advance", staff, ordersHandler.Advance)
		mutate.PUT("/orders/:id/items/:idx/status", staff, ordersHandler.UpdateItemStatus)
		mutate.PUT("/orders/:id/items/status", staff, ordersHandler.UpdateRoundStatus)

		mutate.POST("/menu", adminOnly, catalogHandler.CreateMenuItem)
		mutate.PUT("/menu/:id", adminOnly, catalogHandler.UpdateMenuItem)
		mutate.DELETE("/menu/:id", adminOnly, catalogHandler.DeleteMenuItem)
		mutate.POST("/categories", adminOnly, catalogHandler.CreateCategory)
		mutate.PUT("/categories/:id", adminOnly, catalogHandler.UpdateCategory)
		mutate.DELETE("/categories/:id", adminOnly, catalogHandler.DeleteCategory)

		mutate.GET("/stats/sales", adminOnly, statsHandler.Sales)
		mutate.GET("/stats/admin", adminOnly, statsHandler.Admin)
	}

	api.GET("/stats/super", auth.Middleware(authSvc), auth.RequireRoles(domain.RoleSuperAdmin), statsHandler.Super)

	uploadGroup := api.Group("/upload", auth.Middleware(authSvc), adminOnly)
	{
		uploadGroup.POST("/signature", uploadHandler.Signature)
		uploadGroup.POST("/cleanup", uploadHandler.Cleanup)
	}

	return engine
}

// Run serves HTTP and the event consumer until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		if err := s.consumer.Run(ctx); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Error("gateway consumer stopped")
		}
	}()
	return httpx.New(s.cfg.Server.Port, s.engine).Run(ctx)
}

// RunNotifier runs the console event tail instead of the HTTP server.
func (s *Server) RunNotifier(ctx context.Context, pattern string) error {
	return notifier.New(s.mq, s.log, pattern).Run(ctx)
}

func (s *Server) health(c *gin.Context) {
	status := http.StatusOK
	dbOK := s.db.PingContext(c.Request.Context()) == nil
	mqOK := s.mq.Ping() == nil
	if !dbOK || !mqOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"database": dbOK,
		"broker":   mqOK,
		"sockets":  s.hub.Size(),
	})
}

// tenantFromParam copies a path segment into the tenant header before
// resolution runs.
func tenantFromParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v := c.Param(param); v != "" {
			c.Request.Header.Set(tenant.HeaderName, v)
		}
		c.Next()
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		}).Debug("request")
	}
}
