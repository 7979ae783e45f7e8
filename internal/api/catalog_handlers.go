package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"expertcheck/internal/catalog"
	"expertcheck/internal/logger"
)

// CatalogHandler serves expert and domain management.
type CatalogHandler struct {
	catalog *catalog.Service
	log     logger.Logger
}

func NewCatalogHandler(svc *catalog.Service, log logger.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: svc, log: log}
}

type domainRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r domainRequest) input() catalog.DomainInput {
	return catalog.DomainInput{Name: r.Name, Description: r.Description}
}

type expertRequest struct {
	Name               string `json:"name"`
	ContactInformation string `json:"contactInformation"`
	DomainID           string `json:"domainId"`
}

func (r expertRequest) input() catalog.ExpertInput {
	return catalog.ExpertInput{Name: r.Name, ContactInformation: r.ContactInformation, DomainID: r.DomainID}
}

func (h *CatalogHandler) ListDomains(c *gin.Context) {
	domains, err := h.catalog.ListDomains(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, domains)
}

func (h *CatalogHandler) GetDomain(c *gin.Context) {
	d, err := h.catalog.GetDomain(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *CatalogHandler) CreateDomain(c *gin.Context) {
	var req domainRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	d, err := h.catalog.CreateDomain(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Location", c.Request.URL.Path+"/"+d.ID)
	c.JSON(http.StatusCreated, d)
}

func (h *CatalogHandler) UpdateDomain(c *gin.Context) {
	var req domainRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	d, err := h.catalog.UpdateDomain(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *CatalogHandler) DeleteDomain(c *gin.Context) {
	if err := h.catalog.DeleteDomain(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) DomainExperts(c *gin.Context) {
	experts, err := h.catalog.ExpertsByDomain(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, experts)
}

func (h *CatalogHandler) ListExperts(c *gin.Context) {
	experts, err := h.catalog.ListExperts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, experts)
}

func (h *CatalogHandler) GetExpert(c *gin.Context) {
	e, err := h.catalog.GetExpert(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *CatalogHandler) CreateExpert(c *gin.Context) {
	var req expertRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	e, err := h.catalog.CreateExpert(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Location", c.Request.URL.Path+"/"+e.ID)
	c.JSON(http.StatusCreated, e)
}

func (h *CatalogHandler) UpdateExpert(c *gin.Context) {
	var req expertRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.log, err)
		return
	}
	e, err := h.catalog.UpdateExpert(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *CatalogHandler) DeleteExpert(c *gin.Context) {
	if err := h.catalog.DeleteExpert(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
