package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pzse-platform/iebc-backend/internal/auth"
)

// lookupAndPreview re-runs validation and lookup without side effects so
// the wizard can show the preview before finishing.
func (h *Handler) lookupAndPreview(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	out, err := h.svc.LookupPreview(c.Request.Context(), auth.ActorFrom(c), id)
	if err != nil {
		respondErr(c, err, id)
		return
	}

	switch {
	case len(out.FieldErrors) > 0:
		c.JSON(http.StatusBadRequest, gin.H{"additionalMessages": out.FieldErrors})
	case out.Message != "":
		c.JSON(http.StatusNotFound, gin.H{"message": out.Message})
	default:
		c.JSON(http.StatusOK, gin.H{"data": out.Preview})
	}
}

func (h *Handler) regeneratePDF(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	if err := h.svc.RegeneratePDF(c.Request.Context(), auth.ActorFrom(c), id); err != nil {
		respondErr(c, err, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "letter regenerated"})
}

func (h *Handler) downloadPDF(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	dl, err := h.svc.DownloadPDF(c.Request.Context(), auth.ActorFrom(c), id)
	if err != nil {
		respondErr(c, err, id)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+dl.Name+`"`)
	c.Data(http.StatusOK, dl.ContentType, dl.Data)
}
