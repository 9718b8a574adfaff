package attachment

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the public upload session and attachment routes.
// Upload sessions are anonymous; the token is the capability.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	sessions := r.Group("/upload-sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.DELETE("/:token", h.DiscardSession)
		sessions.GET("/:token/attachments", h.ListTemporary)
		sessions.POST("/:token/attachments", h.Attach)
		sessions.PUT("/:token/attachments/:id", h.ReplaceTemporary)
		sessions.DELETE("/:token/attachments/:id", h.DeleteTemporary)
	}

	attachments := r.Group("/attachments")
	{
		attachments.GET("", h.ListAttachments)
		attachments.GET("/:id", h.GetAttachment)
		attachments.GET("/:id/download", h.Download)
	}
}

// RegisterAdminRoutes registers direct attachment management; the group must be admin-only.
func RegisterAdminRoutes(r *gin.RouterGroup, h *Handler) {
	attachments := r.Group("/attachments")
	{
		attachments.POST("", h.AddAttachment)
		attachments.DELETE("/:id", h.DeleteAttachment)
	}
}
