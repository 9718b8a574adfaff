package database

import (
	"gorm.io/gorm"

	"linuxos/internal/domain/article"
	"linuxos/internal/domain/attachment"
	"linuxos/internal/domain/contenttype"
	"linuxos/internal/domain/hitcount"
)

// Migrate creates or updates the schema of every persisted model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&contenttype.ContentType{},
		&attachment.UploadSession{},
		&attachment.TemporaryAttachment{},
		&attachment.Attachment{},
		&article.Category{},
		&article.Article{},
		&hitcount.HitCount{},
	)
}
