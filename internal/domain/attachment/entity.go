package attachment

import (
	"path"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileLocator resolves stored names to public URLs and absolute paths.
type FileLocator interface {
	URL(name string) string
	Path(name string) string
}

// StoredFile is the part shared by temporary and permanent attachments:
// the owner reference plus the file in storage.
type StoredFile struct {
	ContentTypeID int64  `gorm:"column:content_type_id;not null;index:,composite:owner,priority:1" json:"content_type_id"`
	ObjectID      int64  `gorm:"column:object_id;not null;index:,composite:owner,priority:2" json:"object_id"`
	OriginalName  string `gorm:"column:original_name;type:varchar(255);not null" json:"original_name"`
	Path          string `gorm:"column:attachment;type:varchar(500);not null" json:"-"`
	Size          int64  `gorm:"column:size;not null" json:"size"`
}

// Basename is the file name part of the stored path.
func (f StoredFile) Basename() string {
	if f.Path == "" {
		return ""
	}
	return path.Base(f.Path)
}

func (f StoredFile) URL(loc FileLocator) string {
	return loc.URL(f.Path)
}

// Filename is the absolute path of the stored file.
func (f StoredFile) Filename(loc FileLocator) string {
	return loc.Path(f.Path)
}

// UploadSession groups temporary uploads of one form until they are promoted or discarded.
type UploadSession struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	UUID      string    `gorm:"column:uuid;type:varchar(36);uniqueIndex;not null" json:"token"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index" json:"created_at"`

	Attachments []TemporaryAttachment `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UploadSession) TableName() string { return "attachment_uploadsession" }

func (s *UploadSession) BeforeCreate(_ *gorm.DB) error {
	if s.UUID == "" {
		s.UUID = newSessionToken()
	}
	return nil
}

func newSessionToken() string {
	return uuid.NewString()
}

// TemporaryAttachment is an upload that still belongs to an UploadSession.
// Until promotion the owner reference points at the session itself.
type TemporaryAttachment struct {
	ID                  int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SessionID           int64 `gorm:"column:session_id;not null;index" json:"-"`
	TargetContentTypeID int64 `gorm:"column:target_content_type_id;not null" json:"target_content_type_id"`
	StoredFile
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (TemporaryAttachment) TableName() string { return "attachment_temporaryattachment" }

// release hands the stored file over to a new owner. The temporary record no
// longer references the file afterwards, so deleting it cannot touch the file.
func (t *TemporaryAttachment) release() StoredFile {
	f := t.StoredFile
	t.Path = ""
	return f
}

// Attachment is a file permanently owned by a record.
type Attachment struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	StoredFile
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Attachment) TableName() string { return "attachment_attachment" }

// Owner is the (content type, object id) pair of a persisted record.
type Owner struct {
	ContentTypeID int64
	ObjectID      int64
}

func (o Owner) persisted() bool {
	return o.ContentTypeID > 0 && o.ObjectID > 0
}
