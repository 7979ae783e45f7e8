package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/logger"
	"expertcheck/internal/models"
	"expertcheck/internal/query"
	"expertcheck/internal/workflow"
)

// ContentHandler serves the submission, review and commit endpoints.
type ContentHandler struct {
	engine  *workflow.Engine
	queries *query.Service
	log     logger.Logger
}

func NewContentHandler(engine *workflow.Engine, queries *query.Service, log logger.Logger) *ContentHandler {
	return &ContentHandler{engine: engine, queries: queries, log: log}
}

type submitContentRequest struct {
	Title        string             `json:"title"`
	Body         string             `json:"body"`
	Source       string             `json:"source"`
	Type         models.ContentType `json:"type"`
	Requirements string             `json:"requirements"`
}

type submitResponseRequest struct {
	ExpertName  string  `json:"expertName"`
	Feedback    string  `json:"feedback"`
	Corrections string  `json:"corrections"`
	Fee         float64 `json:"fee"`
}

type commitRequest struct {
	ResponseID string `json:"responseId"`
}

// Submit handles POST /content.
func (h *ContentHandler) Submit(c *gin.Context) {
	var req submitContentRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}

	item, err := h.engine.Submit(c.Request.Context(), workflow.SubmitInput{
		Title:        req.Title,
		Body:         req.Body,
		Source:       req.Source,
		Type:         req.Type,
		Requirements: req.Requirements,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Location", c.Request.URL.Path+"/"+item.ID)
	c.JSON(http.StatusCreated, item)
}

// List handles GET /content?status=.
func (h *ContentHandler) List(c *gin.Context) {
	items, err := h.queries.ListContent(c.Request.Context(), models.ContentStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Get handles GET /content/:id.
func (h *ContentHandler) Get(c *gin.Context) {
	item, err := h.queries.GetContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// MarkInReview handles POST /content/:id/review.
func (h *ContentHandler) MarkInReview(c *gin.Context) {
	item, err := h.engine.MarkInReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Reject handles POST /content/:id/reject.
func (h *ContentHandler) Reject(c *gin.Context) {
	item, err := h.engine.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ListResponses handles GET /content/:id/responses.
func (h *ContentHandler) ListResponses(c *gin.Context) {
	responses, err := h.engine.ListCandidateResponses(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, responses)
}

// SubmitResponse handles POST /content/:id/responses.
func (h *ContentHandler) SubmitResponse(c *gin.Context) {
	var req submitResponseRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}

	resp, err := h.engine.SubmitResponse(c.Request.Context(), c.Param("id"), workflow.ResponseInput{
		ExpertName:  req.ExpertName,
		Feedback:    req.Feedback,
		Corrections: req.Corrections,
		Fee:         req.Fee,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Commit handles POST /content/:id/commit.
func (h *ContentHandler) Commit(c *gin.Context) {
	var req commitRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	if req.ResponseID == "" {
		respondError(c, h.log, apperrors.Validation("responseId is required"))
		return
	}

	entry, err := h.engine.SelectAndCommit(c.Request.Context(), c.Param("id"), req.ResponseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Reconcile handles POST /content/:id/reconcile.
func (h *ContentHandler) Reconcile(c *gin.Context) {
	entry, err := h.engine.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
