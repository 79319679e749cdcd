package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/menudash/menudash/internal/cache"
	"github.com/menudash/menudash/internal/observability"
)

// ConnProvider is the subset of Provider the executor needs.
type ConnProvider interface {
	Conn(ctx context.Context) (*sql.DB, error)
}

// Executor runs SQL through the connection provider and memoizes
// results by final statement text. Only successful executions are
// cached; an expired entry is recomputed on the next request.
type Executor struct {
	provider ConnProvider
	results  *cache.TTL[string, ResultSet]
}

func NewExecutor(provider ConnProvider, ttl time.Duration) *Executor {
	return &Executor{
		provider: provider,
		results:  cache.NewTTL[string, ResultSet](ttl),
	}
}

// WithClock replaces the cache time source. Test hook.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.results.WithClock(now)
	return e
}

// Execute returns the result set for sqlText, serving from cache when a
// non-expired entry exists. The second return reports a cache hit. A
// positive rowLimit wraps the statement as a subquery and becomes part
// of the cache key.
func (e *Executor) Execute(ctx context.Context, sqlText string, rowLimit int) (ResultSet, bool, error) {
	statement := stripTrailingSemicolons(sqlText)
	if statement == "" {
		return ResultSet{}, false, fmt.Errorf("sql is required")
	}
	if rowLimit > 0 {
		statement = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", statement, rowLimit)
	}

	if result, ok := e.results.Get(statement); ok {
		observability.IncrementQueryCacheHit()
		return result, true, nil
	}
	observability.IncrementQueryCacheMiss()

	result, err := e.query(ctx, statement)
	if err != nil {
		return ResultSet{}, false, err
	}
	e.results.Set(statement, result)
	return result, false, nil
}

// InvalidateAll drops every cached result.
func (e *Executor) InvalidateAll() {
	e.results.Clear()
}

// CachedQueries counts live cache entries.
func (e *Executor) CachedQueries() int {
	return e.results.Len()
}

func (e *Executor) query(ctx context.Context, statement string) (ResultSet, error) {
	db, err := e.provider.Conn(ctx)
	if err != nil {
		return ResultSet{}, err
	}

	start := time.Now()
	rows, err := db.QueryContext(ctx, statement)
	observability.ObserveWarehouseQuery(time.Since(start), err)
	if err != nil {
		return ResultSet{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return ResultSet{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return ResultSet{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, fmt.Errorf("iterate rows: %w", err)
	}

	return ResultSet{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
		Duration: time.Since(start),
	}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
