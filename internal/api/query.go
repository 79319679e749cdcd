package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/menudash/menudash/internal/auth"
	"github.com/menudash/menudash/internal/menu"
	"github.com/menudash/menudash/internal/observability"
	"github.com/menudash/menudash/internal/storage"
	"github.com/menudash/menudash/internal/warehouse"
)

type queryRequest struct {
	SQL      string `json:"sql"`
	RowLimit int    `json:"row_limit"`
}

type queryResponse struct {
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	RowCount   int      `json:"row_count"`
	CacheHit   bool     `json:"cache_hit"`
	DurationMS int64    `json:"duration_ms"`
}

// ExampleQuery is a labeled statement shown in the query playground.
type ExampleQuery struct {
	Label string `json:"label"`
	SQL   string `json:"sql"`
}

var exampleQueries = []ExampleQuery{
	{Label: "All menu items", SQL: "SELECT * FROM MENU LIMIT 20"},
	{Label: "Most expensive items", SQL: "SELECT MENU_ITEM_NAME, SALE_PRICE_USD FROM MENU ORDER BY SALE_PRICE_USD DESC LIMIT 10"},
	{Label: "Desserts only", SQL: "SELECT * FROM MENU WHERE ITEM_CATEGORY = 'Dessert'"},
	{Label: "Count by category", SQL: "SELECT ITEM_CATEGORY, COUNT(*) AS TOTAL FROM MENU GROUP BY ITEM_CATEGORY ORDER BY TOTAL DESC"},
	{Label: "Average margin by category", SQL: "SELECT ITEM_CATEGORY, ROUND(AVG((SALE_PRICE_USD - COST_OF_GOODS_USD) / SALE_PRICE_USD * 100), 2) AS AVG_MARGIN FROM MENU GROUP BY ITEM_CATEGORY"},
	{Label: "High margin items", SQL: "SELECT MENU_ITEM_NAME, ROUND(((SALE_PRICE_USD - COST_OF_GOODS_USD) / SALE_PRICE_USD) * 100, 2) AS MARGIN FROM MENU WHERE ((SALE_PRICE_USD - COST_OF_GOODS_USD) / SALE_PRICE_USD) > 0.7 ORDER BY MARGIN DESC"},
}

// handleQuery runs ad-hoc read-only SQL. A driver rejection comes back
// as QUERY_EXECUTION_FAILED with the raw driver text; the service keeps
// serving.
func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	result, hit, ok := runAdHocQuery(deps, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Columns:    result.Columns,
		Rows:       result.Rows,
		RowCount:   result.RowCount,
		CacheHit:   hit,
		DurationMS: result.Duration.Milliseconds(),
	})
}

// handleQueryExport downloads an ad-hoc query result as CSV.
func handleQueryExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	result, _, ok := runAdHocQuery(deps, w, r)
	if !ok {
		return
	}

	payload, err := menu.ResultSetCSV(result)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", err.Error(), false, nil)
		return
	}

	filename := menu.ExportFilename("query_result", "csv", deps.Now())
	archiveExport(deps, w, r, filename, "csv", payload)
	observability.AddExportBytes("csv", len(payload))

	w.Header().Set("Content-Type", storage.ContentTypeFor("csv"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func handleQueryExamples(_ Dependencies, w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"examples": exampleQueries})
}

func runAdHocQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) (warehouse.ResultSet, bool, bool) {
	if identity, authenticated := auth.IdentityFromContext(r.Context()); authenticated && !identity.HasRole(auth.RoleQueryRunner) {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", "query_runner role is required for ad-hoc SQL", false, nil)
		return warehouse.ResultSet{}, false, false
	}

	var request queryRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", fmt.Sprintf("decode request body: %v", err), false, nil)
		return warehouse.ResultSet{}, false, false
	}
	if request.SQL == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "sql is required", false, nil)
		return warehouse.ResultSet{}, false, false
	}
	if !warehouse.IsReadOnly(request.SQL) {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_NOT_ALLOWED", "only SELECT and WITH statements are allowed", false, nil)
		return warehouse.ResultSet{}, false, false
	}
	if request.RowLimit < 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "row_limit must not be negative", false, nil)
		return warehouse.ResultSet{}, false, false
	}
	rowLimit := request.RowLimit
	if rowLimit == 0 {
		rowLimit = deps.DefaultRowLimit
	}

	result, hit, err := deps.Executor.Execute(r.Context(), request.SQL, rowLimit)
	if err != nil {
		writeQueryError(r.Context(), w, err)
		return warehouse.ResultSet{}, false, false
	}
	return result, hit, true
}
