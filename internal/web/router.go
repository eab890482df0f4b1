package web

import (
	"embed"
	"html/template"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/auth"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/middleware"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/upload"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/workbench"
)

//go:embed templates/*.html
var templateFS embed.FS

// Deps wires the router. Tokens and Auth are nil when accounts are off.
type Deps struct {
	Store        *workbench.Store
	Stager       *upload.Stager
	Tokens       *auth.Tokens
	Auth         *auth.Handler
	CORSOrigins  []string
	SecureCookie bool
	Sentry       bool
	Logger       *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if d.Logger != nil {
		r.Use(middleware.RequestLogger(d.Logger))
	}
	if d.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templateFS, "templates/*.html")))

	authEnabled := d.Tokens != nil
	h := NewHandler(d.Store, d.Stager, d.SecureCookie, authEnabled)

	// ───────────────────────── HEALTH ─────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ───────────────────────── AUTH ─────────────────────────
	r.GET("/login", h.LoginPage)
	if d.Auth != nil {
		authGroup := r.Group("/auth")
		{
			authGroup.POST("/register", d.Auth.Register)
			authGroup.POST("/login", d.Auth.Login)
			authGroup.POST("/logout", h.EndSession, d.Auth.Logout)
		}
	}

	// ───────────────────────── FORM ─────────────────────────
	form := r.Group("/")
	if authEnabled {
		form.Use(middleware.Auth(d.Tokens))
	}
	{
		form.GET("", h.Index)
		form.POST("patient", h.UpdatePatient)
		form.POST("files", h.UploadFiles)
		form.POST("extract", h.Extract)
		form.POST("generate", h.Generate)
		form.POST("reset", h.Reset)
	}

	api := form.Group("/api")
	{
		api.GET("/session", h.Session)
		api.GET("/calories", h.Calories)
	}

	// ───────────────────────── ADMIN ─────────────────────────
	if authEnabled {
		admin := r.Group("/admin")
		admin.Use(
			middleware.Auth(d.Tokens),
			middleware.RequireRole(auth.RoleAdmin),
		)
		{
			admin.GET("/sessions", h.Stats)
		}
	}

	return r
}
