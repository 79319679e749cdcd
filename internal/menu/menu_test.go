package menu

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/menudash/menudash/internal/warehouse"
)

func menuResultSet() warehouse.ResultSet {
	return warehouse.ResultSet{
		Columns: []string{
			"MENU_ITEM_NAME", "ITEM_CATEGORY", "ITEM_SUBCATEGORY",
			"COST_OF_GOODS_USD", "SALE_PRICE_USD", "PROFIT", "MARGIN_PERCENT",
		},
		Rows: [][]any{
			{"Ice Cream Sandwich", "Dessert", "Cold Option", 1.5, 6.0, 4.5, 75.0},
			{"Lobster Mac & Cheese", "Main", "Warm Option", 10.0, 15.0, 5.0, 33.33},
		},
		RowCount: 2,
	}
}

func TestFromResultSet(t *testing.T) {
	items, err := FromResultSet(menuResultSet())
	if err != nil {
		t.Fatalf("FromResultSet failed: %v", err)
	}
	want := []Item{
		{Name: "Ice Cream Sandwich", Category: "Dessert", Subcategory: "Cold Option", Cost: 1.5, Price: 6.0, Profit: 4.5, MarginPercent: 75.0},
		{Name: "Lobster Mac & Cheese", Category: "Main", Subcategory: "Warm Option", Cost: 10.0, Price: 15.0, Profit: 5.0, MarginPercent: 33.33},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestFromResultSetDerivesProfitAndMargin(t *testing.T) {
	result := warehouse.ResultSet{
		Columns: []string{"MENU_ITEM_NAME", "ITEM_CATEGORY", "COST_OF_GOODS_USD", "SALE_PRICE_USD"},
		Rows:    [][]any{{"Mango Sticky Rice", "Dessert", 2.0, 8.0}},
	}
	items, err := FromResultSet(result)
	if err != nil {
		t.Fatalf("FromResultSet failed: %v", err)
	}
	if items[0].Profit != 6.0 {
		t.Fatalf("profit = %v, want 6", items[0].Profit)
	}
	if items[0].MarginPercent != 75.0 {
		t.Fatalf("margin = %v, want 75", items[0].MarginPercent)
	}
}

func TestFromResultSetToleratesDriverTypes(t *testing.T) {
	result := warehouse.ResultSet{
		Columns: []string{"MENU_ITEM_NAME", "ITEM_CATEGORY", "COST_OF_GOODS_USD", "SALE_PRICE_USD"},
		Rows:    [][]any{{"Pastrami", "Main", int64(4), "12.5"}},
	}
	items, err := FromResultSet(result)
	if err != nil {
		t.Fatalf("FromResultSet failed: %v", err)
	}
	if items[0].Cost != 4.0 || items[0].Price != 12.5 {
		t.Fatalf("item = %+v", items[0])
	}
}

func TestFromResultSetMissingColumn(t *testing.T) {
	result := warehouse.ResultSet{
		Columns: []string{"MENU_ITEM_NAME"},
		Rows:    [][]any{{"Orphan"}},
	}
	if _, err := FromResultSet(result); err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func floatPtr(v float64) *float64 { return &v }

// Twenty rows across two categories, per the documented end-to-end
// example: filtering to Dessert with price in [5,10] keeps exactly the
// matching rows and the summed price equals the hand-computed total.
func TestFilterEndToEnd(t *testing.T) {
	items := make([]Item, 0, 20)
	for i := 0; i < 10; i++ {
		items = append(items, Item{
			Name:     fmt.Sprintf("Dessert %d", i),
			Category: "Dessert",
			Price:    float64(i) + 1, // 1..10
		})
		items = append(items, Item{
			Name:     fmt.Sprintf("Main %d", i),
			Category: "Main",
			Price:    float64(i) + 6, // 6..15
		})
	}

	filter := Filter{
		Categories: []string{"Dessert"},
		PriceMin:   floatPtr(5),
		PriceMax:   floatPtr(10),
	}
	filtered := Apply(items, filter)

	if len(filtered) != 6 {
		t.Fatalf("filtered count = %d, want 6", len(filtered))
	}
	for _, item := range filtered {
		if item.Category != "Dessert" || item.Price < 5 || item.Price > 10 {
			t.Fatalf("retained item violates predicate: %+v", item)
		}
	}

	// Prices 5..10 sum to 45.
	summary := Summarize(filtered)
	if summary.TotalPrice != 45 {
		t.Fatalf("total price = %v, want 45", summary.TotalPrice)
	}

	// Every excluded row fails at least one condition.
	excluded := len(items) - len(filtered)
	failing := 0
	for _, item := range items {
		if !filter.Matches(item) {
			failing++
		}
	}
	if failing != excluded {
		t.Fatalf("excluded = %d, failing = %d", excluded, failing)
	}
}

func TestFilterSubsetNeverGrows(t *testing.T) {
	items, err := FromResultSet(menuResultSet())
	if err != nil {
		t.Fatalf("FromResultSet failed: %v", err)
	}
	filters := []Filter{
		{},
		{Categories: []string{}},
		{Categories: []string{"Dessert"}},
		{Subcategories: []string{"Warm Option"}},
		{PriceMin: floatPtr(100)},
	}
	for _, filter := range filters {
		if got := len(Apply(items, filter)); got > len(items) {
			t.Fatalf("filtered size %d exceeds input %d", got, len(items))
		}
	}
}

func TestFilterNilVersusEmptyMembership(t *testing.T) {
	items, err := FromResultSet(menuResultSet())
	if err != nil {
		t.Fatalf("FromResultSet failed: %v", err)
	}
	if got := len(Apply(items, Filter{})); got != 2 {
		t.Fatalf("nil membership kept %d rows, want all 2", got)
	}
	if got := len(Apply(items, Filter{Categories: []string{}})); got != 0 {
		t.Fatalf("empty membership kept %d rows, want 0", got)
	}
}

func TestFilterPriceRangeIsInclusive(t *testing.T) {
	item := Item{Category: "Dessert", Price: 6.0}
	filter := Filter{PriceMin: floatPtr(6.0), PriceMax: floatPtr(6.0)}
	if !filter.Matches(item) {
		t.Fatal("boundary price should match an inclusive range")
	}
}

func TestSummarize(t *testing.T) {
	items := []Item{
		{Price: 10, Profit: 4, MarginPercent: 40},
		{Price: 20, Profit: 6, MarginPercent: 30},
	}
	summary := Summarize(items)
	if summary.ItemCount != 2 {
		t.Fatalf("count = %d", summary.ItemCount)
	}
	if summary.TotalPrice != 30 || summary.TotalProfit != 10 {
		t.Fatalf("totals = %+v", summary)
	}
	if summary.AvgPrice != 15 || summary.AvgProfit != 5 || summary.AvgMarginPerc != 35 {
		t.Fatalf("means = %+v", summary)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	if summary.ItemCount != 0 || summary.AvgPrice != 0 || math.IsNaN(summary.AvgMarginPerc) {
		t.Fatalf("summary = %+v", summary)
	}
}
