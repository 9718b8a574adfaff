package article

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	articles := r.Group("/articles")
	{
		articles.GET("", h.ListArticles)
		articles.GET("/:slug", h.GetArticle)
		articles.GET("/:slug/attachments", h.ListArticleAttachments)
	}

	categories := r.Group("/categories")
	{
		categories.GET("", h.ListCategories)
		categories.GET("/:slug/articles", h.ListCategoryArticles)
	}
}

// RegisterAdminRoutes expects a group already guarded by auth and admin middleware.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/articles", h.CreateArticle)
	r.POST("/categories", h.CreateCategory)
}
