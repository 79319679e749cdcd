package api

import (
	"net/http"

	"github.com/menudash/menudash/internal/menu"
)

// menuQuery is the canned statement behind the dashboard and the
// explorer. Profit and margin are computed in SQL so every backend
// returns the same shape.
const menuQuery = `SELECT
    MENU_ITEM_NAME,
    ITEM_CATEGORY,
    ITEM_SUBCATEGORY,
    COST_OF_GOODS_USD,
    SALE_PRICE_USD,
    (SALE_PRICE_USD - COST_OF_GOODS_USD) AS PROFIT,
    ROUND(((SALE_PRICE_USD - COST_OF_GOODS_USD) / SALE_PRICE_USD) * 100, 2) AS MARGIN_PERCENT
FROM MENU`

const topMarginItems = 10

type dashboardResponse struct {
	RowCount       int                  `json:"row_count"`
	CacheHit       bool                 `json:"cache_hit"`
	Summary        menu.Summary         `json:"summary"`
	Categories     []menu.CategoryCount `json:"category_distribution"`
	TopByMargin    []menu.Item          `json:"top_by_margin"`
	CostPrice      []menu.ScatterPoint  `json:"cost_vs_price"`
	PriceByCateg   []menu.PriceBox      `json:"price_by_category"`
}

// handleDashboard runs the canned menu query and aggregates it into the
// KPI and chart payload.
func handleDashboard(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	items, hit, err := loadMenu(deps, r)
	if err != nil {
		writeQueryError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		RowCount:     len(items),
		CacheHit:     hit,
		Summary:      menu.Summarize(items),
		Categories:   menu.CategoryDistribution(items),
		TopByMargin:  menu.TopByMargin(items, topMarginItems),
		CostPrice:    menu.CostPricePoints(items),
		PriceByCateg: menu.PriceDistribution(items),
	})
}

func loadMenu(deps Dependencies, r *http.Request) ([]menu.Item, bool, error) {
	result, hit, err := deps.Executor.Execute(r.Context(), menuQuery, deps.DefaultRowLimit)
	if err != nil {
		return nil, false, err
	}
	items, err := menu.FromResultSet(result)
	if err != nil {
		return nil, false, err
	}
	return items, hit, nil
}
