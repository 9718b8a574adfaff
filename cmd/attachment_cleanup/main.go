package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"linuxos/internal/config"
	"linuxos/internal/database"
	"linuxos/internal/domain/attachment"
	"linuxos/internal/domain/contenttype"
	"linuxos/internal/pkg/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx := context.Background()
	sessionType, err := contenttype.NewRegistry(db).IdentifierFor(ctx, &attachment.UploadSession{})
	if err != nil {
		log.Fatalf("resolve upload session content type: %v", err)
	}

	files := storage.NewFileSystem(cfg.MediaRoot, cfg.MediaURL)
	// Quota is irrelevant for discarding.
	svc := attachment.NewService(attachment.NewRepository(db), files, attachment.Quota{Default: attachment.Unlimited}, sessionType)

	discarded, err := svc.CleanupExpiredSessions(ctx, cfg.UploadSessionTTL)
	if err != nil {
		log.Fatalf("cleanup upload sessions failed: %v", err)
	}

	log.Printf("attachment cleanup completed: sessions=%d max_age=%s", discarded, cfg.UploadSessionTTL)
}
