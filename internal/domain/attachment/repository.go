package attachment

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Transaction runs fn against a repository bound to one database transaction.
	Transaction(ctx context.Context, fn func(repo Repository) error) error

	CreateSession(ctx context.Context, s *UploadSession) error
	GetSessionByUUID(ctx context.Context, token string) (*UploadSession, error)
	DeleteSession(ctx context.Context, id int64) error
	ListSessionsCreatedBefore(ctx context.Context, before time.Time) ([]UploadSession, error)

	CreateTemporary(ctx context.Context, a *TemporaryAttachment) error
	GetTemporary(ctx context.Context, id int64) (*TemporaryAttachment, error)
	ListTemporaryBySession(ctx context.Context, sessionID int64) ([]TemporaryAttachment, error)
	UpdateTemporaryFile(ctx context.Context, a *TemporaryAttachment) error
	DeleteTemporary(ctx context.Context, id int64) error

	CreateAttachment(ctx context.Context, a *Attachment) error
	GetAttachment(ctx context.Context, id int64) (*Attachment, error)
	ListAttachmentsByOwner(ctx context.Context, owner Owner) ([]Attachment, error)
	DeleteAttachment(ctx context.Context, id int64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) CreateSession(ctx context.Context, s *UploadSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *repository) GetSessionByUUID(ctx context.Context, token string) (*UploadSession, error) {
	var s UploadSession
	err := r.db.WithContext(ctx).Where("uuid = ?", token).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) DeleteSession(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&UploadSession{}).Error
}

func (r *repository) ListSessionsCreatedBefore(ctx context.Context, before time.Time) ([]UploadSession, error) {
	var sessions []UploadSession
	err := r.db.WithContext(ctx).Where("created_at < ?", before).Order("id ASC").Find(&sessions).Error
	return sessions, err
}

func (r *repository) CreateTemporary(ctx context.Context, a *TemporaryAttachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) GetTemporary(ctx context.Context, id int64) (*TemporaryAttachment, error) {
	var a TemporaryAttachment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) ListTemporaryBySession(ctx context.Context, sessionID int64) ([]TemporaryAttachment, error) {
	var list []TemporaryAttachment
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *repository) UpdateTemporaryFile(ctx context.Context, a *TemporaryAttachment) error {
	res := r.db.WithContext(ctx).Model(&TemporaryAttachment{}).Where("id = ?", a.ID).Updates(map[string]any{
		"attachment":    a.Path,
		"original_name": a.OriginalName,
		"size":          a.Size,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAttachmentNotFound
	}
	return nil
}

func (r *repository) DeleteTemporary(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&TemporaryAttachment{}).Error
}

func (r *repository) CreateAttachment(ctx context.Context, a *Attachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) GetAttachment(ctx context.Context, id int64) (*Attachment, error) {
	var a Attachment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) ListAttachmentsByOwner(ctx context.Context, owner Owner) ([]Attachment, error) {
	var list []Attachment
	err := r.db.WithContext(ctx).
		Where("content_type_id = ? AND object_id = ?", owner.ContentTypeID, owner.ObjectID).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *repository) DeleteAttachment(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&Attachment{}).Error
}
