package importer

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/menuportal/backend/internal/apperr"
	"github.com/menuportal/backend/internal/auth"
	"github.com/menuportal/backend/internal/restaurants"
	"github.com/menuportal/backend/pkg/response"
	"github.com/menuportal/backend/pkg/storage"
)

// ArchiveLinks hands out download links for archived payloads.
type ArchiveLinks interface {
	ImportDownloadURL(ctx context.Context, key string) (string, error)
}

// Handler exposes the import endpoints.
type Handler struct {
	rec    *Reconciler
	links  ArchiveLinks
	guard  *restaurants.Guard
	logger *zap.Logger
}

// NewHandler creates an import handler. links may be nil when no archive is configured.
func NewHandler(rec *Reconciler, links ArchiveLinks, logger *zap.Logger) *Handler {
	return &Handler{rec: rec, links: links, guard: restaurants.NewGuard(rec.restaurants), logger: logger}
}

// System handles POST /import/system. Restaurants outside the caller's scope are reported as skipped.
func (h *Handler) System(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, "could not read request body")
		return
	}
	var payload SystemPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		response.Error(c, apperr.Validation("malformed import payload"))
		return
	}
	stats, err := h.rec.ImportSystemMenu(c.Request.Context(), payload, restaurants.Scope(auth.PrincipalFrom(c)), raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Restaurant handles POST /restaurants/:id/import with a nested menu document.
func (h *Handler) Restaurant(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return
	}
	if _, err := h.guard.Restaurant(c.Request.Context(), auth.PrincipalFrom(c), id); err != nil {
		response.Error(c, err)
		return
	}
	var payload MenuPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperr.Validation("malformed menu payload"))
		return
	}
	stats, err := h.rec.ImportMenuFromJSON(c.Request.Context(), id, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Archive handles GET /import/archive?key= with a short-lived download link for an archived payload.
func (h *Handler) Archive(c *gin.Context) {
	if h.links == nil {
		response.NotFound(c, "import archive is not configured")
		return
	}
	key := c.Query("key")
	if !storage.ValidImportKey(key) {
		response.BadRequest(c, "invalid archive key")
		return
	}
	url, err := h.links.ImportDownloadURL(c.Request.Context(), key)
	if err != nil {
		h.logger.Error("presign import archive failed", zap.String("key", key), zap.Error(err))
		response.Error(c, apperr.Internal(err))
		return
	}
	response.OK(c, gin.H{"key": key, "url": url})
}
