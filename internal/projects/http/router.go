package http

import (
	"github.com/gin-gonic/gin"

	"github.com/pzse-platform/iebc-backend/internal/auth"
)

// Register attaches the project routes to the given router group. The
// group is expected to carry the auth middleware already.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/steps/1", h.storeFirstStep)
	rg.PUT("/:id/steps/1", h.updateFirstStep)
	rg.PUT("/:id/steps/2", h.updateSecondStep)
	rg.PUT("/:id/steps/3", h.updateThirdStep)
	rg.POST("/:id/steps/2/finish", h.finishFromSecondStep)
	rg.POST("/:id/steps/3/finish", h.finishFromThirdStep)
	rg.POST("/:id/steps/4/finish", h.finishFromFourthStep)

	rg.GET("/:id/documents", h.listDocuments)
	rg.POST("/:id/documents", h.storeDocuments)
	rg.GET("/:id/documents/:documentId/download", h.downloadDocument)
	rg.POST("/:id/documents/notify", h.documentUploadedNotification)
	rg.POST("/:id/comments", h.addComment)

	rg.POST("/:id/wet-stamp", h.storeWetStampRequest)
	rg.PUT("/:id/wet-stamp/:profileId", h.updateWetStampRequest)
	rg.DELETE("/:id/wet-stamp", h.cancelWetStampRequest)

	rg.GET("/:id/lookup", h.lookupAndPreview)
	rg.GET("/:id/letter/download", h.downloadPDF)

	staff := rg.Group("", auth.RequireRoles(auth.RolePzseAdmin, auth.RolePzseCoordinator, auth.RolePzseEngineer))
	staff.POST("/:id/letter/regenerate", h.regeneratePDF)
	staff.PUT("/:id/status", h.changeStatus)
}
