package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pzse-platform/iebc-backend/internal/auth"
)

func (h *Handler) storeWetStampRequest(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req shippingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}

	if err := h.svc.StoreWetStampRequest(c.Request.Context(), auth.ActorFrom(c), id, req.input()); err != nil {
		respondErr(c, err, id)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "wet stamp requested"})
}

func (h *Handler) updateWetStampRequest(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	profileID, err := strconv.ParseInt(c.Param("profileId"), 10, 64)
	if err != nil || profileID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid profile id"})
		return
	}
	var req shippingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}

	if err := h.svc.UpdateWetStampRequest(c.Request.Context(), auth.ActorFrom(c), id, profileID, req.input()); err != nil {
		respondErr(c, err, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "wet stamp request updated"})
}

func (h *Handler) cancelWetStampRequest(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	if err := h.svc.CancelWetStampRequest(c.Request.Context(), auth.ActorFrom(c), id); err != nil {
		respondErr(c, err, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "wet stamp request cancelled"})
}
