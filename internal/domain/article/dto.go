package article

import "time"

// CreateArticleRequest is the multipart article form.
type CreateArticleRequest struct {
	Title       string    `form:"title" validate:"required,max=255"`
	Slug        string    `form:"slug" validate:"required,max=50"`
	CategoryID  int64     `form:"category_id" validate:"required,gt=0"`
	Perex       string    `form:"perex" validate:"required"`
	Annotation  string    `form:"annotation" validate:"required"`
	Content     string    `form:"content" validate:"required"`
	AuthorsName string    `form:"authors_name" validate:"required,max=255"`
	PubTime     time.Time `form:"pub_time" time_format:"2006-01-02T15:04:05Z07:00"`
	Published   bool      `form:"published"`
	Top         bool      `form:"top"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Slug string `json:"slug" validate:"required,max=50"`
	Icon string `json:"icon" validate:"required,max=255"`
}

type ArticleResponse struct {
	Article
	DisplayContent string `json:"display_content"`
	ImageURL       string `json:"image_url,omitempty"`
	ThumbnailURL   string `json:"thumbnail_url,omitempty"`
	Hits           int64  `json:"hits"`
}
