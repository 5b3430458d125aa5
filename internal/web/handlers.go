package web

import (
	"bytes"
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	log      *zap.Logger
	renderer *Renderer
}

// HandleList handles GET /imports.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Imports(h.db, ops.ImportsInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData:   h.renderer.page("Imports"),
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleDetail handles GET /imports/{id}: per-day summaries with charts.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := ops.ImportDetail(h.db, h.cfg, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: h.renderer.page(displayName(detail.Import.Label, detail.Import.ID)),
		Import:   detail.Import,
		Days:     detail.Days,
	})
}

// HandleChart handles GET /imports/{id}/charts/{day}.png.
func (h *Handlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	day, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok || day == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("chart file must be <day>.png"))
		return
	}

	days, err := ops.ImportDays(h.db, h.cfg, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := ops.WriteChart(&buf, h.cfg, days, day); err != nil {
		h.log.Warn("failed to render chart", zap.String("day", day), zap.Error(err))
		h.renderer.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HandleDelete handles DELETE /imports/{id} and the form fallback
// POST /imports/{id}/delete.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Delete(h.db, r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/imports", http.StatusSeeOther)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// displayName returns the import label if present, or a truncated ID.
func displayName(label *string, id string) string {
	if label != nil && *label != "" {
		return *label
	}
	if len(id) > 10 {
		return id[:10] + "..."
	}
	return id
}
