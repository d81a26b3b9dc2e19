// Package brokerage implements the cross-cutting behaviors every query
// passes through on its way to and from a driver (§4.7): timeout,
// cooperative cancellation, row-cap/large-cell rewriting, dialect-aware
// pagination, and filter-to-SQL translation. It is the sole caller of
// driver.Sql.ExecuteRaw outside of a driver's own metadata-browsing paths.
package brokerage

import (
	"context"
	"time"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/driver"
	"github.com/berbicanes/queryark/internal/logging"
	"github.com/berbicanes/queryark/internal/model"
)

// DefaultTimeoutSecs is used when a caller omits timeout_secs (§4.7(a)).
const DefaultTimeoutSecs = 30

// countQueryTimeoutSecs is the hard ceiling on count_query_rows regardless
// of the caller's own timeout preference (§4.7(d)).
const countQueryTimeoutSecs = 5

// ExecuteOptions carries the optional per-call knobs execute_query and
// execute_query_page accept.
type ExecuteOptions struct {
	TimeoutSecs int
	QueryID     string
	MaxRows     int
	MaxCellSize int
}

// Brokerage wraps a cancellation registry around driver execution and
// applies the row-cap/large-cell/pagination rewrites uniformly across every
// one of the seventeen engines. Filter translation (BuildWhereClause) is a
// separate helper that Brokerage does not call.
type Brokerage struct {
	cancels *driver.CancelRegistry
	log     *logging.Logger
}

func New(cancels *driver.CancelRegistry, log *logging.Logger) *Brokerage {
	if log == nil {
		log = logging.Default
	}
	return &Brokerage{cancels: cancels, log: log}
}

// ExecuteQuery runs sqlText through base.ExecuteRaw under the timeout/
// cancellation envelope, then applies the row cap and large-cell rewrite.
func (b *Brokerage) ExecuteQuery(ctx context.Context, base driver.Base, sqlText string, opts ExecuteOptions) (*model.QueryResponse, error) {
	resp, err := b.run(ctx, base, sqlText, opts.TimeoutSecs, opts.QueryID)
	if err != nil {
		return nil, err
	}

	maxRows := opts.MaxRows
	if maxRows == 0 {
		maxRows = DefaultMaxRows
	}
	ApplyRowCap(resp, maxRows)
	ApplyCellSizeCap(resp, opts.MaxCellSize)
	return resp, nil
}

// ExecuteQueryPage rewrites sqlText into a page query for dbType, runs it
// under the same timeout/cancellation envelope as ExecuteQuery, and applies
// the large-cell rewrite (the row cap does not apply to an already-bounded
// page).
func (b *Brokerage) ExecuteQueryPage(ctx context.Context, base driver.Base, dbType model.DatabaseType, sqlText string, limit, offset int64, sortColumns []model.SortColumn, opts ExecuteOptions) (*model.QueryResponse, error) {
	paged, err := WrapPage(dbType, sqlText, limit, offset, sortColumns)
	if err != nil {
		return nil, err
	}

	resp, err := b.run(ctx, base, paged, opts.TimeoutSecs, opts.QueryID)
	if err != nil {
		return nil, err
	}

	ApplyCellSizeCap(resp, opts.MaxCellSize)
	return resp, nil
}

// CountQueryRows wraps sqlText in a COUNT(*) query under a hard 5-second
// timeout, per §4.7(d).
func (b *Brokerage) CountQueryRows(ctx context.Context, base driver.Base, sqlText string) (int64, error) {
	counted, err := WrapCount(sqlText)
	if err != nil {
		return 0, err
	}

	resp, err := b.run(ctx, base, counted, countQueryTimeoutSecs, "")
	if err != nil {
		return 0, err
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0]) == 0 {
		return 0, dberrors.Database("count query returned no rows", nil)
	}
	return resp.Rows[0][0].Int, nil
}

// FetchFullCell re-runs sqlText projecting a single column at rowOffset to
// retrieve the untruncated value behind a Large* cell.
func (b *Brokerage) FetchFullCell(ctx context.Context, base driver.Base, dbType model.DatabaseType, sqlText, column string, rowOffset int64) (model.CellValue, error) {
	projected, err := WrapFullCell(dbType, sqlText, column, rowOffset)
	if err != nil {
		return model.CellValue{}, err
	}

	resp, err := b.run(ctx, base, projected, DefaultTimeoutSecs, "")
	if err != nil {
		return model.CellValue{}, err
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0]) == 0 {
		return model.Null(), nil
	}
	return resp.Rows[0][0], nil
}

// CancelQuery fires the cancel signal registered under queryID, if any is
// still in flight.
func (b *Brokerage) CancelQuery(queryID string) bool {
	return b.cancels.Cancel(queryID)
}

// run is the shared timeout/cancellation envelope around ExecuteRaw.
func (b *Brokerage) run(ctx context.Context, base driver.Base, sqlText string, timeoutSecs int, queryID string) (*model.QueryResponse, error) {
	if timeoutSecs <= 0 {
		timeoutSecs = DefaultTimeoutSecs
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	if queryID != "" {
		cleanup := b.cancels.Register(queryID, cancel)
		defer cleanup()
	}

	type result struct {
		resp *model.QueryResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := base.ExecuteRaw(ctx, sqlText)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, dberrors.QueryTimeout(timeoutSecs)
			}
			if ctx.Err() == context.Canceled && queryID != "" {
				return nil, dberrors.QueryCancelled()
			}
			return nil, r.err
		}
		return r.resp, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			b.log.WithField("query_id", queryID).Warnf("query exceeded %ds timeout", timeoutSecs)
			return nil, dberrors.QueryTimeout(timeoutSecs)
		}
		return nil, dberrors.QueryCancelled()
	}
}
