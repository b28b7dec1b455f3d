package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/botledger/botgate/internal/middleware"
	"github.com/botledger/botgate/internal/model"
	"github.com/botledger/botgate/internal/pkg/apperrors"
	"github.com/botledger/botgate/internal/pkg/metrics"
	"github.com/botledger/botgate/internal/service"
	"github.com/gin-gonic/gin"
)

type IngestHandler struct {
	svc *service.IngestService
}

func NewIngestHandler(svc *service.IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// ingestEnvelope is the collaborator-facing body: a kind discriminator plus
// the loosely typed payload to validate.
type ingestEnvelope struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Ingest handles POST /v1/ingest. Authentication has already happened in
// AuthMiddleware; this handler parses the envelope, validates the payload
// against its declared kind and persists the record. Every failure is
// terminal and attached to the context for the error middleware to render.
func (h *IngestHandler) Ingest(c *gin.Context) {
	projectVal, exists := c.Get(middleware.ContextProjectKey)
	if !exists {
		c.Error(apperrors.New(apperrors.ErrAuthFailed, "unauthorized: missing project context", nil))
		return
	}
	project := projectVal.(*model.Project)

	var envelope ingestEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		metrics.IngestTotal.WithLabelValues("unknown", "400").Inc()
		c.Error(apperrors.NewInvalidRequest("invalid JSON"))
		return
	}

	if envelope.Type == "" || envelope.Data == nil {
		metrics.IngestTotal.WithLabelValues(labelType(envelope.Type), "400").Inc()
		c.Error(apperrors.NewInvalidRequest("'type' and 'data' are required"))
		return
	}

	id, err := h.svc.Ingest(c.Request.Context(), project, envelope.Type, envelope.Data)
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			appErr = apperrors.Wrap(err)
		}
		metrics.IngestTotal.WithLabelValues(labelType(envelope.Type), strconv.Itoa(appErr.HTTPStatus)).Inc()
		c.Error(appErr)
		return
	}

	metrics.IngestTotal.WithLabelValues(envelope.Type, "200").Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}

// labelType keeps the metric cardinality bounded: arbitrary caller-supplied
// kinds collapse into one label.
func labelType(kind string) string {
	switch kind {
	case "trade", "snapshot", "event":
		return kind
	default:
		return "unknown"
	}
}
