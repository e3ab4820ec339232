package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/billing"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
	"github.com/pzse-platform/iebc-backend/internal/projects/service"
)

const genericFailureMsg = "Something went wrong while processing the project. Please review the project details and try again."

func projectID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid project id"})
		return 0, false
	}
	return id, true
}

// respondErr maps service errors to the wire contract the frontend
// expects: known conditions get their own status, everything else gets
// the generic message and a redirect back to the edit form.
func respondErr(c *gin.Context, err error, projectID int64) {
	switch {
	case errors.Is(err, domain.ErrProjectNotFound),
		errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrDocumentTypeNotFound),
		errors.Is(err, domain.ErrShippingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrReferenceNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
	case errors.Is(err, billing.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Your account balance is not sufficient for this operation."})
	case errors.Is(err, billing.ErrServiceNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"message": "The requested service is not available."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"message":    genericFailureMsg,
			"redirectTo": fmt.Sprintf("/projects/%d/edit", projectID),
		})
	}
}

// respondFinish renders a finish outcome. Forwarded projects answer 404
// with the redirect target so the wizard leaves the flow.
func respondFinish(c *gin.Context, out *service.FinishOutcome) {
	if out.Redirected {
		c.JSON(http.StatusNotFound, gin.H{
			"message":            out.Message,
			"redirectTo":         out.RedirectTo,
			"additionalMessages": out.FieldErrors,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": out.Preview})
}

func respondStep(c *gin.Context, code int, res *service.StepResult) {
	c.JSON(code, gin.H{
		"data":               gin.H{"projectId": res.ProjectID},
		"additionalMessages": res.AdditionalMessages,
	})
}

func (h *Handler) storeFirstStep(c *gin.Context) {
	var req firstStepReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}

	res, err := h.svc.StoreFirstStep(c.Request.Context(), auth.ActorFrom(c), service.FirstStepInput{
		Address: req.Address, State: req.State, County: req.County,
		City: req.City, Zip: req.Zip, Meta: req.Meta.input(),
	})
	if err != nil {
		respondErr(c, err, 0)
		return
	}
	respondStep(c, http.StatusCreated, res)
}

func (h *Handler) updateFirstStep(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req firstStepReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}

	res, err := h.svc.UpdateFirstStep(c.Request.Context(), auth.ActorFrom(c), id, service.FirstStepInput{
		Address: req.Address, State: req.State, County: req.County,
		City: req.City, Zip: req.Zip, Meta: req.Meta.input(),
	})
	if err != nil {
		respondErr(c, err, id)
		return
	}
	respondStep(c, http.StatusOK, res)
}

func (h *Handler) updateSecondStep(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req secondStepReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}

	res, err := h.svc.UpdateSecondStep(c.Request.Context(), auth.ActorFrom(c), id, service.SecondStepInput{Meta: req.Meta.input()})
	if err != nil {
		respondErr(c, err, id)
		return
	}
	respondStep(c, http.StatusOK, res)
}

func (h *Handler) updateThirdStep(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	if err := h.svc.UpdateThirdStep(c.Request.Context(), auth.ActorFrom(c), id); err != nil {
		respondErr(c, err, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"projectId": id}})
}

func (h *Handler) finishFromSecondStep(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req secondStepReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}

	out, err := h.svc.FinishFromSecondStep(c.Request.Context(), auth.ActorFrom(c), id, service.SecondStepInput{Meta: req.Meta.input()})
	if err != nil {
		respondErr(c, err, id)
		return
	}
	respondFinish(c, out)
}

func (h *Handler) finishFromThirdStep(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	out, err := h.svc.FinishFromThirdStep(c.Request.Context(), auth.ActorFrom(c), id)
	if err != nil {
		respondErr(c, err, id)
		return
	}
	respondFinish(c, out)
}

func (h *Handler) finishFromFourthStep(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req fourthStepReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}

	out, err := h.svc.FinishFromFourthStep(c.Request.Context(), auth.ActorFrom(c), id, service.FourthStepInput{Shipping: req.Shipping.input()})
	if err != nil {
		respondErr(c, err, id)
		return
	}
	respondFinish(c, out)
}

func (h *Handler) addComment(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req commentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}

	if err := h.svc.AddComment(c.Request.Context(), auth.ActorFrom(c), id, service.CommentInput{
		Notes: req.Notes, PlanCheck: req.PlanCheck,
	}); err != nil {
		respondErr(c, err, id)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "comment added"})
}

func (h *Handler) changeStatus(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}

	if err := h.svc.ChangeStatus(c.Request.Context(), auth.ActorFrom(c), id, service.StatusInput{
		Status: req.Status, TrackingNumber: req.TrackingNumber, TrackingNotes: req.TrackingNotes,
	}); err != nil {
		respondErr(c, err, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}
