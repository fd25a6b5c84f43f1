package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"pharmacy_admin/internal/middleware"
	"pharmacy_admin/internal/ordering"
	"pharmacy_admin/internal/services"
)

type OrderSessionHandler struct {
	placement services.OrderPlacementService
}

func NewOrderSessionHandler(placement services.OrderPlacementService) *OrderSessionHandler {
	return &OrderSessionHandler{placement: placement}
}

func lineIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line index"})
		return 0, false
	}
	return idx, true
}

// respondSession answers with the session's review so the console always
// sees the running total.
func respondSession(c *gin.Context, status int, sess *ordering.Session) {
	c.JSON(status, services.Summarize(sess))
}

func (h *OrderSessionHandler) Open(c *gin.Context) {
	sess, err := h.placement.Open(c.Request.Context(), c.Param("id"), middleware.OperatorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSession(c, http.StatusCreated, sess)
}

func (h *OrderSessionHandler) Get(c *gin.Context) {
	sum, err := h.placement.Summary(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *OrderSessionHandler) Close(c *gin.Context) {
	if err := h.placement.Close(c.Request.Context(), c.Param("session_id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderSessionHandler) Candidates(c *gin.Context) {
	idx, ok := lineIndex(c)
	if !ok {
		return
	}
	list, err := h.placement.Candidates(c.Request.Context(), c.Param("session_id"), idx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pharmacies": list, "count": len(list)})
}

type selectRequest struct {
	PharmacyID string `json:"pharmacy_id" binding:"required"`
}

func (h *OrderSessionHandler) Select(c *gin.Context) {
	idx, ok := lineIndex(c)
	if !ok {
		return
	}
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	sess, err := h.placement.Select(c.Request.Context(), c.Param("session_id"), idx, req.PharmacyID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSession(c, http.StatusOK, sess)
}

type totalRequest struct {
	Total *decimal.Decimal `json:"total" binding:"required"`
}

func (h *OrderSessionHandler) RecordTotal(c *gin.Context) {
	idx, ok := lineIndex(c)
	if !ok {
		return
	}
	var req totalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	sess, err := h.placement.RecordTotal(c.Request.Context(), c.Param("session_id"), idx, *req.Total)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSession(c, http.StatusOK, sess)
}

type addressRequest struct {
	Mode          ordering.AddressMode `json:"mode" binding:"required"`
	CustomAddress string               `json:"custom_address"`
}

func (h *OrderSessionHandler) SetAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	sess, err := h.placement.SetAddress(c.Request.Context(), c.Param("session_id"), req.Mode, req.CustomAddress)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSession(c, http.StatusOK, sess)
}

type notesRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

func (h *OrderSessionHandler) SetNotes(c *gin.Context) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	sess, err := h.placement.SetNotes(c.Request.Context(), c.Param("session_id"), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSession(c, http.StatusOK, sess)
}

func (h *OrderSessionHandler) Submit(c *gin.Context) {
	res, err := h.placement.Submit(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		var subErr *services.SubmissionError
		if errors.As(err, &subErr) && res != nil && res.Session != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   subErr.Message,
				"session": services.Summarize(res.Session),
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    res,
	})
}
