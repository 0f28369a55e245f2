package broker

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/tidemill-labs/backtrack/internal/logger"
	"github.com/tidemill-labs/backtrack/internal/types"
	"github.com/tidemill-labs/backtrack/pkg/errors"
	"go.uber.org/zap"
)

// Journal records every order acknowledgement and fill of a run in an
// in-memory DuckDB database. The transaction log and the exported result
// files are queried from it.
type Journal struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewJournal opens an in-memory journal database.
func NewJournal(log *logger.Logger) (*Journal, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to open journal database", err)
	}

	return &Journal{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the orders and trades tables.
func (j *Journal) Initialize() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			sizing_mode TEXT,
			quantity DOUBLE,
			status TEXT,
			created_at TIMESTAMP,
			filled_at TIMESTAMP,
			filled_price DOUBLE,
			filled_quantity DOUBLE,
			reason TEXT,
			message TEXT,
			strategy_name TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to create orders table", err)
	}

	_, err = j.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			order_id TEXT,
			symbol TEXT,
			side TEXT,
			executed_at TIMESTAMP,
			executed_qty DOUBLE,
			executed_price DOUBLE,
			pnl DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to create trades table", err)
	}

	return nil
}

// RecordOrder inserts a freshly acknowledged order.
func (j *Journal) RecordOrder(order types.Order) error {
	insertQuery := j.sq.
		Insert("orders").
		Columns(
			"order_id", "symbol", "side", "sizing_mode", "quantity", "status",
			"created_at", "filled_at", "filled_price", "filled_quantity",
			"reason", "message", "strategy_name",
		).
		Values(
			order.ID, order.Symbol, order.Side, order.SizingMode, order.Quantity, order.Status,
			order.CreatedAt, order.FilledAt, order.FilledPrice, order.FilledQuantity,
			order.Reason.Reason, order.Reason.Message, order.StrategyName,
		).
		RunWith(j.db)

	if _, err := insertQuery.Exec(); err != nil {
		return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to insert order %s", order.ID)
	}

	return nil
}

// UpdateOrder rewrites the mutable fields of an existing order row after a
// state transition (fill, rejection or cancellation).
func (j *Journal) UpdateOrder(order types.Order) error {
	updateQuery := j.sq.
		Update("orders").
		Set("status", order.Status).
		Set("filled_at", order.FilledAt).
		Set("filled_price", order.FilledPrice).
		Set("filled_quantity", order.FilledQuantity).
		Set("reason", order.Reason.Reason).
		Set("message", order.Reason.Message).
		Where(squirrel.Eq{"order_id": order.ID}).
		RunWith(j.db)

	result, err := updateQuery.Exec()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to update order %s", order.ID)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found in journal", order.ID)
	}

	return nil
}

// RecordFill appends a fill to the trades table.
func (j *Journal) RecordFill(order types.Order, pnl float64) error {
	insertQuery := j.sq.
		Insert("trades").
		Columns("order_id", "symbol", "side", "executed_at", "executed_qty", "executed_price", "pnl").
		Values(order.ID, order.Symbol, order.Side, order.FilledAt, order.FilledQuantity, order.FilledPrice, pnl).
		RunWith(j.db)

	if _, err := insertQuery.Exec(); err != nil {
		return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to insert trade for order %s", order.ID)
	}

	return nil
}

// Transactions returns the ordered log of all fills.
func (j *Journal) Transactions() ([]types.Transaction, error) {
	selectQuery := j.sq.
		Select("executed_at", "symbol", "side", "executed_qty", "executed_price", "pnl").
		From("trades").
		OrderBy("executed_at ASC").
		RunWith(j.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var transactions []types.Transaction

	for rows.Next() {
		var tx types.Transaction

		err := rows.Scan(&tx.Time, &tx.Symbol, &tx.Side, &tx.Quantity, &tx.Price, &tx.PnL)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		transactions = append(transactions, tx)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating trades", err)
	}

	return transactions, nil
}

// Orders returns all journaled orders ordered by creation time.
func (j *Journal) Orders() ([]types.Order, error) {
	selectQuery := j.sq.
		Select(
			"order_id", "symbol", "side", "sizing_mode", "quantity", "status",
			"created_at", "filled_at", "filled_price", "filled_quantity",
			"reason", "message", "strategy_name",
		).
		From("orders").
		OrderBy("created_at ASC, order_id ASC").
		RunWith(j.db)

	rows, err := selectQuery.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query orders", err)
	}
	defer rows.Close()

	var orders []types.Order

	for rows.Next() {
		var order types.Order

		err := rows.Scan(
			&order.ID, &order.Symbol, &order.Side, &order.SizingMode, &order.Quantity, &order.Status,
			&order.CreatedAt, &order.FilledAt, &order.FilledPrice, &order.FilledQuantity,
			&order.Reason.Reason, &order.Reason.Message, &order.StrategyName,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan order", err)
		}

		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating orders", err)
	}

	return orders, nil
}

// CountOrdersByStatus returns how many journaled orders are in the given state.
func (j *Journal) CountOrdersByStatus(status types.OrderStatus) (int, error) {
	var count int

	err := j.db.QueryRow(`SELECT COUNT(*) FROM orders WHERE status = ?`, string(status)).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count orders", err)
	}

	return count, nil
}

// Write exports the journal tables as CSV files in the given directory.
func (j *Journal) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to create results directory", err)
	}

	// COPY has no placeholder support in the driver, so paths are inlined.
	tradesPath := filepath.Join(path, "trades.csv")
	if _, err := j.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT CSV, HEADER)`, tradesPath)); err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to export trades", err)
	}

	ordersPath := filepath.Join(path, "orders.csv")
	if _, err := j.db.Exec(fmt.Sprintf(`COPY orders TO '%s' (FORMAT CSV, HEADER)`, ordersPath)); err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to export orders", err)
	}

	j.logger.Info("Exported journal",
		zap.String("trades", tradesPath),
		zap.String("orders", ordersPath),
	)

	return nil
}

// Cleanup drops and recreates the journal tables.
func (j *Journal) Cleanup() error {
	_, err := j.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS orders;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to drop journal tables", err)
	}

	return j.Initialize()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
