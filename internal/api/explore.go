package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/menudash/menudash/internal/menu"
	"github.com/menudash/menudash/internal/observability"
	"github.com/menudash/menudash/internal/storage"
)

type menuResponse struct {
	RowCount int          `json:"row_count"`
	CacheHit bool         `json:"cache_hit"`
	Summary  menu.Summary `json:"summary"`
	Items    []menu.Item  `json:"items"`
}

// handleMenu serves the explorer: the canned menu query filtered by
// category, subcategory, and price range, with subset aggregates.
func handleMenu(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FILTER", err.Error(), false, nil)
		return
	}

	items, hit, err := loadMenu(deps, r)
	if err != nil {
		writeQueryError(r.Context(), w, err)
		return
	}
	filtered := menu.Apply(items, filter)

	writeJSON(w, http.StatusOK, menuResponse{
		RowCount: len(filtered),
		CacheHit: hit,
		Summary:  menu.Summarize(filtered),
		Items:    filtered,
	})
}

// handleMenuExport downloads the filtered subset as CSV (default) or
// Parquet and optionally archives a copy to the object store.
func handleMenuExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FILTER", err.Error(), false, nil)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}

	items, _, err := loadMenu(deps, r)
	if err != nil {
		writeQueryError(r.Context(), w, err)
		return
	}
	filtered := menu.Apply(items, filter)

	var payload []byte
	switch format {
	case "csv":
		payload, err = menu.ExportCSV(filtered)
	case "parquet":
		payload, err = menu.ExportParquet(filtered)
	default:
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FORMAT", fmt.Sprintf("unsupported export format: %q", format), false, nil)
		return
	}
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), false, nil)
		return
	}

	filename := menu.ExportFilename("menu_export", format, deps.Now())
	archiveExport(deps, w, r, filename, format, payload)
	observability.AddExportBytes(format, len(payload))

	w.Header().Set("Content-Type", storage.ContentTypeFor(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// archiveExport is best-effort: a failed upload is logged and the
// download still succeeds. On success the object key is announced in
// the X-Archive-Key header so the copy can be fetched again via
// GET /v1/exports/{key}.
func archiveExport(deps Dependencies, w http.ResponseWriter, r *http.Request, filename, format string, payload []byte) {
	if deps.Archive == nil {
		return
	}
	key, err := storage.BuildExportPath(filename, format, deps.Now())
	if err == nil {
		_, err = deps.Archive.Put(r.Context(), key, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{
			ContentType: storage.ContentTypeFor(format),
		})
	}
	if err == nil {
		w.Header().Set("X-Archive-Key", key)
		return
	}
	if deps.Logger != nil {
		deps.Logger.WarnContext(r.Context(), "export archival failed",
			slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
	}
}

func parseFilter(query url.Values) (menu.Filter, error) {
	var filter menu.Filter
	if values, ok := query["category"]; ok {
		filter.Categories = values
	}
	if values, ok := query["subcategory"]; ok {
		filter.Subcategories = values
	}
	var err error
	if filter.PriceMin, err = parsePrice(query.Get("price_min"), "price_min"); err != nil {
		return menu.Filter{}, err
	}
	if filter.PriceMax, err = parsePrice(query.Get("price_max"), "price_max"); err != nil {
		return menu.Filter{}, err
	}
	if filter.PriceMin != nil && filter.PriceMax != nil && *filter.PriceMin > *filter.PriceMax {
		return menu.Filter{}, fmt.Errorf("price_min must not exceed price_max")
	}
	return filter, nil
}

func parsePrice(raw, name string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return &value, nil
}
