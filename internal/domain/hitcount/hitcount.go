package hitcount

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HitCount counts views of any record addressed by (content type, object id).
type HitCount struct {
	ID            int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ContentTypeID int64 `gorm:"column:content_type_id;not null;uniqueIndex:idx_hitcount_object,priority:1" json:"content_type_id"`
	ObjectID      int64 `gorm:"column:object_id;not null;uniqueIndex:idx_hitcount_object,priority:2" json:"object_id"`
	Hits          int64 `gorm:"column:hits;not null;default:0" json:"hits"`
}

func (HitCount) TableName() string { return "hitcount_hitcount" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Hit increments the counter of an object, creating it on first view.
func (r *Repository) Hit(ctx context.Context, contentTypeID, objectID int64) error {
	row := HitCount{ContentTypeID: contentTypeID, ObjectID: objectID, Hits: 1}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_type_id"}, {Name: "object_id"}},
		DoUpdates: clause.Assignments(map[string]any{"hits": gorm.Expr("hitcount_hitcount.hits + 1")}),
	}).Create(&row).Error
}

// Get returns the number of hits, 0 for objects never viewed.
func (r *Repository) Get(ctx context.Context, contentTypeID, objectID int64) (int64, error) {
	var row HitCount
	err := r.db.WithContext(ctx).
		Where("content_type_id = ? AND object_id = ?", contentTypeID, objectID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Hits, nil
}
