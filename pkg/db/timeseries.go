package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/FrontGate/FrontGate/pkg/common"
)

const (
	decisionLogTableName = "frontgate.decision_log"
)

// TimeSeriesStore holds the append-only decision log in ClickHouse.
type TimeSeriesStore struct {
	clickhouse *sql.DB
}

func NewTimeSeries(clickhouse *sql.DB) *TimeSeriesStore {
	return &TimeSeriesStore{
		clickhouse: clickhouse,
	}
}

func (ts *TimeSeriesStore) Ping(ctx context.Context) error {
	return ts.clickhouse.PingContext(ctx)
}

func (ts *TimeSeriesStore) WriteDecisionBatch(ctx context.Context, records []*common.DecisionRecord) error {
	scope, err := ts.clickhouse.Begin()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to begin batch insert", common.ErrAttr(err))
		return err
	}

	batch, err := scope.Prepare(fmt.Sprintf("INSERT INTO %s", decisionLogTableName))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to prepare insert query", common.ErrAttr(err))
		return err
	}

	for i, r := range records {
		_, err = batch.Exec(r.StreamHandle, r.Identity, string(r.Branch), string(r.Outcome), r.EventTime, r.Timestamp)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to exec insert for record", common.ErrAttr(err), "index", i)
			return err
		}
	}

	return scope.Commit()
}
