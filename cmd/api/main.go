package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"linuxos/internal/config"
	"linuxos/internal/database"
	"linuxos/internal/domain/article"
	"linuxos/internal/domain/attachment"
	"linuxos/internal/domain/contenttype"
	"linuxos/internal/domain/hitcount"
	"linuxos/internal/domain/staticpage"
	"linuxos/internal/middleware"
	jwtsvc "linuxos/internal/pkg/jwt"
	"linuxos/internal/pkg/metrics"
	"linuxos/internal/pkg/storage"
)

// maxFormMemory is the part of a multipart body kept in memory; the rest spills to temp files.
const maxFormMemory = 32 << 20

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.AppEnv == "prod" || cfg.AppEnv == "production" || cfg.AppEnv == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	ctx := context.Background()
	registry := contenttype.NewRegistry(db)

	sessionType, err := registry.IdentifierFor(ctx, &attachment.UploadSession{})
	if err != nil {
		log.Fatalf("register upload session content type: %v", err)
	}
	articleType, err := registry.IdentifierFor(ctx, &article.Article{})
	if err != nil {
		log.Fatalf("register article content type: %v", err)
	}

	quota, err := attachment.BuildQuota(ctx, registry, cfg.AttachmentMaxSize, cfg.AttachmentSizeForContent)
	if err != nil {
		log.Fatalf("attachment quota: %v", err)
	}

	files := storage.NewFileSystem(cfg.MediaRoot, cfg.MediaURL)
	jwt := jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL)

	attachmentService := attachment.NewService(attachment.NewRepository(db), files, quota, sessionType)
	attachmentHandler := attachment.NewHandler(attachmentService, registry)

	articleService := article.NewService(
		article.NewRepository(db),
		hitcount.NewRepository(db),
		attachmentService,
		files,
		articleType,
	)
	articleHandler := article.NewHandler(articleService, attachmentService, maxFormMemory)

	r := gin.New()
	r.MaxMultipartMemory = maxFormMemory
	r.Use(gin.Logger(), middleware.ErrorLogger(), middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())
	r.Static(cfg.MediaURL, cfg.MediaRoot)
	staticpage.RegisterRoutes(r)

	v1 := r.Group("/api/v1")
	{
		attachment.RegisterRoutes(v1, attachmentHandler)
		articleHandler.RegisterRoutes(v1)

		admin := v1.Group("/admin")
		admin.Use(middleware.JWTAuth(jwt), middleware.AdminOnly())
		{
			attachment.RegisterAdminRoutes(admin, attachmentHandler)
			articleHandler.RegisterAdminRoutes(admin)
		}
	}

	log.Printf("api listening addr=%s env=%s", cfg.HTTPAddr, cfg.AppEnv)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatal(err)
	}
}
