package http

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/projects/service"
)

const maxUploadBytes = 64 << 20

// storeDocuments accepts a multipart form: type_id, optional notes and
// one or more files under "files".
func (h *Handler) storeDocuments(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	typeID, err := strconv.ParseInt(c.PostForm("type_id"), 10, 64)
	if err != nil || typeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid document type"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid upload"})
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "no files submitted"})
		return
	}

	in := service.DocumentsInput{TypeID: typeID, Notes: c.PostForm("notes")}
	for _, fh := range files {
		if fh.Size > maxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"message": "file too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "unreadable file"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "unreadable file"})
			return
		}
		in.Files = append(in.Files, service.FileUpload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	if err := h.svc.StoreDocuments(c.Request.Context(), auth.ActorFrom(c), id, in); err != nil {
		respondErr(c, err, id)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "documents uploaded"})
}

func (h *Handler) listDocuments(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	files, err := h.svc.ListDocuments(c.Request.Context(), auth.ActorFrom(c), id)
	if err != nil {
		respondErr(c, err, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": files})
}

func (h *Handler) downloadDocument(c *gin.Context) {
	docID, err := strconv.ParseInt(c.Param("documentId"), 10, 64)
	if err != nil || docID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid document id"})
		return
	}

	dl, err := h.svc.DownloadDocument(c.Request.Context(), auth.ActorFrom(c), docID)
	if err != nil {
		respondErr(c, err, 0)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+dl.Name+`"`)
	c.Data(http.StatusOK, dl.ContentType, dl.Data)
}

func (h *Handler) documentUploadedNotification(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	typeID, err := strconv.ParseInt(c.Query("type_id"), 10, 64)
	if err != nil || typeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid document type"})
		return
	}

	if err := h.svc.NotifyDocumentUploaded(c.Request.Context(), auth.ActorFrom(c), id, typeID); err != nil {
		respondErr(c, err, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification sent"})
}
