package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/botledger/botgate/internal/model"
	"github.com/botledger/botgate/internal/pkg/apperrors"
	"github.com/botledger/botgate/internal/service"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	svc     *service.ProjectService
	reports *service.ReportService
}

func NewProjectHandler(svc *service.ProjectService, reports *service.ReportService) *ProjectHandler {
	return &ProjectHandler{svc: svc, reports: reports}
}

func (h *ProjectHandler) List(c *gin.Context) {
	overviews, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	out := make([]gin.H, 0, len(overviews))
	for _, overview := range overviews {
		out = append(out, gin.H{
			"project":         toProjectPublic(overview.Project),
			"trade_count":     overview.TradeCount,
			"event_count":     overview.EventCount,
			"latest_snapshot": overview.LatestSnapshot,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Create returns the generated API key unmasked; this is the only time it is
// ever served in full.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req service.ProjectCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	project, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(apperrors.NewInvalidRequest("id required"))
		return
	}
	detail, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		// Dashboard links address projects by slug.
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrNotFound {
			detail, err = h.svc.GetBySlug(c.Request.Context(), id)
		}
		if err != nil {
			c.Error(err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"project":         toProjectPublic(detail.Project),
		"trades":          detail.Trades,
		"events":          detail.Events,
		"latest_snapshot": detail.LatestSnapshot,
		"trade_count":     detail.TradeCount,
		"event_count":     detail.EventCount,
		"stats":           detail.Stats,
		"trend":           detail.Trend,
	})
}

func (h *ProjectHandler) Update(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(apperrors.NewInvalidRequest("id required"))
		return
	}
	var req service.ProjectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	project, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toProjectPublic(project))
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(apperrors.NewInvalidRequest("id required"))
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *ProjectHandler) Summary(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(apperrors.NewInvalidRequest("id required"))
		return
	}
	summary, err := h.reports.Summary(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project":         toProjectPublic(summary.Project),
		"stats":           summary.Stats,
		"trend":           summary.Trend,
		"latest_snapshot": summary.LatestSnapshot,
		"enrichment":      summary.Enrichment,
	})
}

type ProjectPublic struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Slug      string             `json:"slug"`
	Type      string             `json:"type"`
	Color     string             `json:"color"`
	APIKey    string             `json:"api_key"`
	Active    bool               `json:"active"`
	Ethereal  model.EtherealLink `json:"ethereal"`
	CreatedAt string             `json:"created_at"`
}

func toProjectPublic(p *model.Project) *ProjectPublic {
	if p == nil {
		return nil
	}
	return &ProjectPublic{
		ID:        p.ID,
		Name:      p.Name,
		Slug:      p.Slug,
		Type:      p.Type,
		Color:     p.Color,
		APIKey:    maskSecret(p.ApiKey),
		Active:    p.Active,
		Ethereal:  p.Ethereal,
		CreatedAt: p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func maskSecret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
