package searcherdb

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type DBRun struct {
	ID         int64     `db:"id"`
	StartBlock int64     `db:"start_block"`
	EndBlock   int64     `db:"end_block"`
	CreatedAt  time.Time `db:"created_at"`
}

type DBAggRow struct {
	RunID    int64   `db:"run_id"`
	Domain   string  `db:"domain"`
	Metric   string  `db:"metric"`
	Searcher string  `db:"searcher"`
	Value    float64 `db:"value"`
}

var insertRunQuery = `
INSERT INTO attribution_run (start_block, end_block)
VALUES ($1, $2)
RETURNING id, start_block, end_block, created_at`

var insertAggRowQuery = `
INSERT INTO searcher_agg (run_id, domain, metric, searcher, value)
VALUES (:run_id, :domain, :metric, :searcher, :value)
ON CONFLICT (run_id, domain, metric, searcher) DO UPDATE SET value = :value`

var selectAggQuery = `
SELECT run_id, domain, metric, searcher, value
FROM searcher_agg
WHERE run_id = $1 AND domain = $2 AND metric = $3
ORDER BY value DESC, searcher ASC`

// DBBackend persists per-run sorted aggregates so the reporting layer can
// read historical runs without replaying blocks.
type DBBackend struct {
	db *sqlx.DB

	insertAggRow *sqlx.NamedStmt
}

func NewDBBackend(postgresDSN string) (*DBBackend, error) {
	db, err := sqlx.Connect("postgres", postgresDSN)
	if err != nil {
		return nil, err
	}

	insertAggRow, err := db.PrepareNamed(insertAggRowQuery)
	if err != nil {
		return nil, err
	}

	return &DBBackend{
		db:           db,
		insertAggRow: insertAggRow,
	}, nil
}

// InsertRun records the analyzed range and returns the stored run row.
func (b *DBBackend) InsertRun(ctx context.Context, startBlock, endBlock uint64) (*DBRun, error) {
	var run DBRun
	if err := b.db.GetContext(ctx, &run, insertRunQuery, int64(startBlock), int64(endBlock)); err != nil {
		return nil, err
	}
	return &run, nil
}

// InsertAgg stores one sorted aggregate under (run, domain, metric).
func (b *DBBackend) InsertAgg(ctx context.Context, runID int64, domain, metric string, agg SortedAgg) error {
	for _, entry := range agg {
		row := DBAggRow{
			RunID:    runID,
			Domain:   domain,
			Metric:   metric,
			Searcher: entry.Searcher,
			Value:    entry.Value,
		}
		if _, err := b.insertAggRow.ExecContext(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// GetAgg loads one aggregate back in descending order.
func (b *DBBackend) GetAgg(ctx context.Context, runID int64, domain, metric string) (SortedAgg, error) {
	var rows []DBAggRow
	if err := b.db.SelectContext(ctx, &rows, selectAggQuery, runID, domain, metric); err != nil {
		return nil, err
	}
	agg := make(SortedAgg, 0, len(rows))
	for _, row := range rows {
		agg = append(agg, AggEntry{Searcher: row.Searcher, Value: row.Value})
	}
	return agg, nil
}

func (b *DBBackend) Close() error {
	return b.db.Close()
}
