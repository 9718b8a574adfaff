package article

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Category struct {
	ID   int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Slug string `gorm:"column:slug;type:varchar(50);uniqueIndex;not null" json:"slug"`
	Icon string `gorm:"column:icon;type:varchar(255);not null" json:"icon"`
}

func (Category) TableName() string { return "article_category" }

type Article struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Slug        string    `gorm:"column:slug;type:varchar(50);uniqueIndex;not null" json:"slug"`
	CategoryID  int64     `gorm:"column:category_id;not null;index" json:"category_id"`
	Category    *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	Perex       string    `gorm:"column:perex;type:text;not null" json:"perex"`
	Annotation  string    `gorm:"column:annotation;type:text;not null" json:"annotation"`
	Content     string    `gorm:"column:content;type:text;not null" json:"content"`
	AuthorID    *int64    `gorm:"column:author_id;index" json:"author_id,omitempty"`
	AuthorsName string    `gorm:"column:authors_name;type:varchar(255);not null" json:"authors_name"`
	PubTime     time.Time `gorm:"column:pub_time;not null;index" json:"pub_time"`
	Updated     time.Time `gorm:"column:updated;not null" json:"updated"`
	Published   bool      `gorm:"column:published;not null;default:false" json:"published"`
	Top         bool      `gorm:"column:top;not null;default:false" json:"top"`

	Image          string `gorm:"column:image;type:varchar(500)" json:"-"`
	ImageThumbnail string `gorm:"column:image_thumbnail;type:varchar(500)" json:"-"`
}

func (Article) TableName() string { return "article_article" }

// BeforeSave stamps Updated and defaults the publication time of new articles to it.
func (a *Article) BeforeSave(_ *gorm.DB) error {
	a.Updated = time.Now()
	if a.ID == 0 && a.PubTime.IsZero() {
		a.PubTime = a.Updated
	}
	return nil
}

// DisplayContent expands the annotation placeholder and the legacy URL prefix in Content.
func (a *Article) DisplayContent() string {
	content := strings.ReplaceAll(a.Content, "<<ANOTACIA>>", `<div class="annotation">`+a.Annotation+`</div>`)
	return strings.ReplaceAll(content, "{SHAKAL_PREFIX}", "/")
}

// numericSlug reports slugs that would be mistaken for article ids in URLs.
func numericSlug(slug string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(slug), 10, 64)
	return err == nil
}
