package contenttype

// ContentType identifies the model and table a generic (content type, object id) reference points to.
type ContentType struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	AppLabel string `gorm:"column:app_label;type:varchar(100);not null" json:"app_label"`
	Model    string `gorm:"column:model;type:varchar(100);not null" json:"model"`
	DBTable  string `gorm:"column:db_table;type:varchar(150);uniqueIndex;not null" json:"db_table"`
}

func (ContentType) TableName() string { return "content_types" }
