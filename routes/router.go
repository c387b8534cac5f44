package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/text/language"

	"github.com/cppla/eventboard/board"
	"github.com/cppla/eventboard/config"
	"github.com/cppla/eventboard/controllers"
	"github.com/cppla/eventboard/middleware"
	"github.com/cppla/eventboard/utils"
)

// NewBoardService builds the board engine from configuration.
func NewBoardService(cfg config.AppConfig, seeder board.Seeder) *board.Service {
	lang, err := language.Parse(cfg.ContentLanguage)
	if err != nil {
		utils.Sugar.Warnf("unknown content language %q, collating as Korean", cfg.ContentLanguage)
		lang = language.Korean
	}
	return board.NewService(board.NewStore(seeder), board.Options{
		PinnedCap:      cfg.NoticePinnedCap,
		FallbackAuthor: cfg.FallbackAuthor,
		Language:       lang,
		Sanitize:       utils.Sanitize,
	})
}

// SetupRouter wires routes, middlewares, and controllers. cache may be nil.
func SetupRouter(svc *board.Service, cache controllers.ListCache) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		utils.Sugar.Warnf("gin access log disabled: %v", err)
		r.Use(gin.Recovery())
	}
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authController := controllers.NewAuthController()
	boardController := controllers.NewBoardController(svc, cache)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/login", middleware.RateLimitMiddleware(), authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	registerBoard(api.Group("/boards/:kind"), boardController)
	registerBoard(api.Group("/events/:eventId/boards/:kind"), boardController)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}

// registerBoard mounts the six board operations on g.
func registerBoard(g *gin.RouterGroup, c *controllers.BoardController) {
	g.GET("", c.List)
	g.GET("/:id", c.Detail)

	protected := g.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("", c.Create)
	protected.PUT("/:id", c.Update)
	protected.DELETE("/:id", c.Delete)
	protected.POST("/:id/reply", middleware.AdminRequired(), c.Reply)
}
