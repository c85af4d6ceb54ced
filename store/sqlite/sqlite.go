/*
Package sqlite provides a SQLite-backed implementation of finance.TxStore.

PURPOSE:
  Durable storage for pharmacies, periods, period metrics and daily logs.
  Every statement is built with squirrel; the schema is versioned with
  golang-migrate and embedded in the binary.

KEY TABLES:
  pharmacies:     Identity and title
  (money columns are TEXT; decimal.Decimal scans and values its exact string)
  periods:        Inclusive [start_date, end_date] per pharmacy, with status
  period_metrics: Raw inputs and derived KPIs, unique per (pharmacy, period, basis)
  daily_logs:     One row per (pharmacy, log_date), upserted

CONCURRENCY:
  The pool is limited to one connection and transactions begin IMMEDIATE
  (_txlock=immediate), so the write lock is taken before the overlap check
  runs. Store methods and transaction views share the same query code
  (queries) and never take a Go lock, so a transaction can call any
  method without re-entering a mutex.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./pharmacy.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := finance.NewEngine(store)

SEE ALSO:
  - finance/store.go: Interface definitions
  - finance/store/memory.go: In-memory implementation for testing
  - migrations/: Versioned schema
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/warp/pharmacy-ledger/calendar"
	"github.com/warp/pharmacy-ledger/finance"
)

const timestampLayout = time.RFC3339Nano

// Store implements finance.TxStore using SQLite.
type Store struct {
	queries
	db *sql.DB
}

var _ finance.TxStore = (*Store)(nil)

// New opens (creating if needed) the database at dbPath and migrates it.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	dsn := dbPath + sep + "_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=5000"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: serialises writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{
		queries: newQueries(db),
		db:      db,
	}, nil
}

// DB exposes the handle for migrations and health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx executes fn within a transaction.
// If fn returns error, transaction is rolled back.
// If fn returns nil, transaction is committed.
func (s *Store) WithTx(ctx context.Context, fn func(finance.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(newQueries(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Reset deletes all rows. Demo scenarios only.
func (s *Store) Reset(ctx context.Context) error {
	return s.WithTx(ctx, func(tx finance.Store) error {
		qs := tx.(queries)
		for _, table := range []string{"daily_logs", "period_metrics", "periods", "pharmacies"} {
			if _, err := qs.exec(ctx, qs.sb.Delete(table)); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}

// =============================================================================
// QUERIES - Shared by Store and transaction views
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q  querier
	sb squirrel.StatementBuilderType
}

func newQueries(q querier) queries {
	return queries{
		q:  q,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

func (qs queries) exec(ctx context.Context, b squirrel.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return qs.q.ExecContext(ctx, query, args...)
}

func (qs queries) query(ctx context.Context, b squirrel.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return qs.q.QueryContext(ctx, query, args...)
}

func (qs queries) queryRow(ctx context.Context, b squirrel.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return qs.q.QueryRowContext(ctx, query, args...), nil
}

// =============================================================================
// PHARMACIES
// =============================================================================

func (qs queries) CreatePharmacy(ctx context.Context, title string, createdAt time.Time) (finance.Pharmacy, error) {
	res, err := qs.exec(ctx, qs.sb.Insert("pharmacies").
		Columns("title", "created_at").
		Values(title, formatTime(createdAt)))
	if err != nil {
		return finance.Pharmacy{}, fmt.Errorf("insert pharmacy: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return finance.Pharmacy{}, err
	}
	return finance.Pharmacy{ID: finance.PharmacyID(id), Title: title, CreatedAt: createdAt}, nil
}

func (qs queries) GetPharmacy(ctx context.Context, id finance.PharmacyID) (finance.Pharmacy, error) {
	row, err := qs.queryRow(ctx, qs.sb.Select("id", "title", "created_at").
		From("pharmacies").
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return finance.Pharmacy{}, err
	}
	p, err := scanPharmacy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return finance.Pharmacy{}, &finance.NotFoundError{Kind: "pharmacy", Key: strconv.FormatInt(int64(id), 10)}
	}
	return p, err
}

func (qs queries) ListPharmacies(ctx context.Context) ([]finance.Pharmacy, error) {
	rows, err := qs.query(ctx, qs.sb.Select("id", "title", "created_at").
		From("pharmacies").
		OrderBy("id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []finance.Pharmacy{}
	for rows.Next() {
		p, err := scanPharmacy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// =============================================================================
// PERIODS
// =============================================================================

var periodColumns = []string{"id", "pharmacy_id", "title", "start_date", "end_date", "status", "created_at"}

func (qs queries) InsertPeriod(ctx context.Context, p finance.Period) (finance.PeriodID, error) {
	res, err := qs.exec(ctx, qs.sb.Insert("periods").
		Columns("pharmacy_id", "title", "start_date", "end_date", "status", "created_at").
		Values(p.PharmacyID, p.Title, p.Start.String(), p.End.String(), string(p.Status), formatTime(p.CreatedAt)))
	if err != nil {
		if isForeignKeyError(err) {
			return 0, &finance.NotFoundError{Kind: "pharmacy", Key: strconv.FormatInt(int64(p.PharmacyID), 10)}
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	return finance.PeriodID(id), err
}

func (qs queries) GetPeriod(ctx context.Context, id finance.PeriodID) (finance.Period, error) {
	row, err := qs.queryRow(ctx, qs.sb.Select(periodColumns...).
		From("periods").
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return finance.Period{}, err
	}
	p, err := scanPeriod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return finance.Period{}, &finance.NotFoundError{Kind: "period", Key: strconv.FormatInt(int64(id), 10)}
	}
	return p, err
}

func (qs queries) ListPeriods(ctx context.Context, pharmacyID finance.PharmacyID) ([]finance.Period, error) {
	return qs.queryPeriods(ctx, qs.sb.Select(periodColumns...).
		From("periods").
		Where(squirrel.Eq{"pharmacy_id": pharmacyID}).
		OrderBy("start_date DESC", "id DESC"))
}

func (qs queries) FindPeriodByBounds(ctx context.Context, pharmacyID finance.PharmacyID, start, end calendar.Date) (finance.Period, error) {
	row, err := qs.queryRow(ctx, qs.sb.Select(periodColumns...).
		From("periods").
		Where(squirrel.Eq{
			"pharmacy_id": pharmacyID,
			"start_date":  start.String(),
			"end_date":    end.String(),
		}).
		OrderBy("id").
		Limit(1))
	if err != nil {
		return finance.Period{}, err
	}
	p, err := scanPeriod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return finance.Period{}, &finance.NotFoundError{Kind: "period", Key: start.String() + ".." + end.String()}
	}
	return p, err
}

// FindOverlapping uses NOT (end < new.start OR start > new.end). ISO dates
// compare correctly as text.
func (qs queries) FindOverlapping(ctx context.Context, pharmacyID finance.PharmacyID, r calendar.Range) ([]finance.Period, error) {
	return qs.queryPeriods(ctx, qs.sb.Select(periodColumns...).
		From("periods").
		Where(squirrel.Eq{"pharmacy_id": pharmacyID}).
		Where("NOT (end_date < ? OR start_date > ?)", r.Start.String(), r.End.String()).
		OrderBy("start_date"))
}

func (qs queries) UpdatePeriodStatus(ctx context.Context, id finance.PeriodID, status finance.PeriodStatus) error {
	res, err := qs.exec(ctx, qs.sb.Update("periods").
		Set("status", string(status)).
		Where(squirrel.Eq{"id": id}))
	if err != nil {
		return err
	}
	return requireAffected(res, "period", strconv.FormatInt(int64(id), 10))
}

func (qs queries) queryPeriods(ctx context.Context, b squirrel.SelectBuilder) ([]finance.Period, error) {
	rows, err := qs.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []finance.Period{}
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// =============================================================================
// METRICS
// =============================================================================

var metricsColumns = []string{
	"pharmacy_id", "period_id", "basis",
	"sales_cash", "sales_ins", "var_total", "fixed_rent", "fixed_staff", "opex_other_total",
	"visits_total", "days_count",
	"sales_total", "fixed_total", "gross_profit", "net_profit_operational", "contrib_margin",
	"cm_ratio", "np_ratio", "breakeven_sales", "avg_daily_sales", "avg_sale_per_visit",
	"computed_at", "locked_at",
}

func (qs queries) GetMetrics(ctx context.Context, pharmacyID finance.PharmacyID, periodID finance.PeriodID, basis finance.Basis) (finance.PeriodMetrics, error) {
	row, err := qs.queryRow(ctx, qs.sb.Select(metricsColumns...).
		From("period_metrics").
		Where(squirrel.Eq{"pharmacy_id": pharmacyID, "period_id": periodID, "basis": string(basis)}))
	if err != nil {
		return finance.PeriodMetrics{}, err
	}
	m, err := scanMetrics(row)
	if errors.Is(err, sql.ErrNoRows) {
		return finance.PeriodMetrics{}, &finance.NotFoundError{Kind: "metrics", Key: strconv.FormatInt(int64(periodID), 10)}
	}
	return m, err
}

// SaveMetrics writes raw and derived fields in one statement. locked_at is
// never part of the update set.
func (qs queries) SaveMetrics(ctx context.Context, m finance.PeriodMetrics) error {
	columns := metricsColumns[:len(metricsColumns)-1] // without locked_at
	var updates []string
	for _, c := range columns[3:] {
		updates = append(updates, c+" = excluded."+c)
	}

	_, err := qs.exec(ctx, qs.sb.Insert("period_metrics").
		Columns(columns...).
		Values(
			m.PharmacyID, m.PeriodID, string(m.Basis),
			m.SalesCash, m.SalesIns, m.VarTotal, m.FixedRent, m.FixedStaff, m.OpexOtherTotal,
			m.VisitsTotal, m.DaysCount,
			m.SalesTotal, m.FixedTotal, m.GrossProfit, m.NetProfitOperational, m.ContribMargin,
			m.CMRatio, m.NPRatio, m.BreakevenSales, m.AvgDailySales, m.AvgSalePerVisit,
			formatTimePtr(m.ComputedAt),
		).
		Suffix("ON CONFLICT (pharmacy_id, period_id, basis) DO UPDATE SET " + strings.Join(updates, ", ")))
	if err != nil {
		if isForeignKeyError(err) {
			return &finance.NotFoundError{Kind: "period", Key: strconv.FormatInt(int64(m.PeriodID), 10)}
		}
		return err
	}
	return nil
}

// LockMetrics keeps the first lock time.
func (qs queries) LockMetrics(ctx context.Context, pharmacyID finance.PharmacyID, periodID finance.PeriodID, basis finance.Basis, at time.Time) error {
	res, err := qs.exec(ctx, qs.sb.Update("period_metrics").
		Set("locked_at", squirrel.Expr("COALESCE(locked_at, ?)", formatTime(at))).
		Where(squirrel.Eq{"pharmacy_id": pharmacyID, "period_id": periodID, "basis": string(basis)}))
	if err != nil {
		return err
	}
	return requireAffected(res, "metrics", strconv.FormatInt(int64(periodID), 10))
}

// =============================================================================
// DAILY LOGS
// =============================================================================

var dailyLogColumns = []string{
	"pharmacy_id", "log_date", "sales_cash", "sales_ins", "var_purchases", "opex_other", "visits", "note", "created_at",
}

func (qs queries) UpsertDailyLog(ctx context.Context, l finance.DailyLog) error {
	_, err := qs.exec(ctx, qs.sb.Insert("daily_logs").
		Columns(dailyLogColumns...).
		Values(l.PharmacyID, l.Date.String(), l.SalesCash, l.SalesIns, l.VarPurchases, l.OpexOther,
			l.Visits, nullString(l.Note), formatTime(l.CreatedAt)).
		Suffix(`ON CONFLICT (pharmacy_id, log_date) DO UPDATE SET
			sales_cash = excluded.sales_cash,
			sales_ins = excluded.sales_ins,
			var_purchases = excluded.var_purchases,
			opex_other = excluded.opex_other,
			visits = excluded.visits,
			note = excluded.note`))
	if err != nil {
		if isForeignKeyError(err) {
			return &finance.NotFoundError{Kind: "pharmacy", Key: strconv.FormatInt(int64(l.PharmacyID), 10)}
		}
		return err
	}
	return nil
}

func (qs queries) GetDailyLog(ctx context.Context, pharmacyID finance.PharmacyID, date calendar.Date) (finance.DailyLog, error) {
	row, err := qs.queryRow(ctx, qs.sb.Select(dailyLogColumns...).
		From("daily_logs").
		Where(squirrel.Eq{"pharmacy_id": pharmacyID, "log_date": date.String()}))
	if err != nil {
		return finance.DailyLog{}, err
	}
	l, err := scanDailyLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return finance.DailyLog{}, &finance.NotFoundError{Kind: "daily_log", Key: date.String()}
	}
	return l, err
}

func (qs queries) ListDailyLogs(ctx context.Context, pharmacyID finance.PharmacyID, from, to calendar.Date) ([]finance.DailyLog, error) {
	rows, err := qs.query(ctx, qs.dailyRange(pharmacyID, from, to).OrderBy("log_date"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []finance.DailyLog{}
	for rows.Next() {
		l, err := scanDailyLog(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (qs queries) LatestDailyLog(ctx context.Context, pharmacyID finance.PharmacyID, from, to calendar.Date) (finance.DailyLog, error) {
	row, err := qs.queryRow(ctx, qs.dailyRange(pharmacyID, from, to).OrderBy("log_date DESC").Limit(1))
	if err != nil {
		return finance.DailyLog{}, err
	}
	l, err := scanDailyLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return finance.DailyLog{}, &finance.NotFoundError{Kind: "daily_log", Key: from.String() + ".." + to.String()}
	}
	return l, err
}

func (qs queries) dailyRange(pharmacyID finance.PharmacyID, from, to calendar.Date) squirrel.SelectBuilder {
	return qs.sb.Select(dailyLogColumns...).
		From("daily_logs").
		Where(squirrel.Eq{"pharmacy_id": pharmacyID}).
		Where(squirrel.GtOrEq{"log_date": from.String()}).
		Where(squirrel.LtOrEq{"log_date": to.String()})
}

// =============================================================================
// SCANNING
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanPharmacy(row scanner) (finance.Pharmacy, error) {
	var (
		p         finance.Pharmacy
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.Title, &createdAt); err != nil {
		return finance.Pharmacy{}, err
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func scanPeriod(row scanner) (finance.Period, error) {
	var (
		p                     finance.Period
		start, end, createdAt string
		status                string
	)
	if err := row.Scan(&p.ID, &p.PharmacyID, &p.Title, &start, &end, &status, &createdAt); err != nil {
		return finance.Period{}, err
	}
	// Unparsable bounds are left zero; callers treat that as "no bounds".
	p.Start, _ = calendar.ParseDate(start)
	p.End, _ = calendar.ParseDate(end)
	p.Status = finance.PeriodStatus(status)
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func scanMetrics(row scanner) (finance.PeriodMetrics, error) {
	var (
		m                    finance.PeriodMetrics
		basis                string
		computedAt, lockedAt sql.NullString
	)
	err := row.Scan(
		&m.PharmacyID, &m.PeriodID, &basis,
		&m.SalesCash, &m.SalesIns, &m.VarTotal, &m.FixedRent, &m.FixedStaff, &m.OpexOtherTotal,
		&m.VisitsTotal, &m.DaysCount,
		&m.SalesTotal, &m.FixedTotal, &m.GrossProfit, &m.NetProfitOperational, &m.ContribMargin,
		&m.CMRatio, &m.NPRatio, &m.BreakevenSales, &m.AvgDailySales, &m.AvgSalePerVisit,
		&computedAt, &lockedAt,
	)
	if err != nil {
		return finance.PeriodMetrics{}, err
	}
	m.Basis = finance.Basis(basis)
	m.ComputedAt = parseTimePtr(computedAt)
	m.LockedAt = parseTimePtr(lockedAt)
	return m, nil
}

func scanDailyLog(row scanner) (finance.DailyLog, error) {
	var (
		l         finance.DailyLog
		date      string
		visits    sql.NullString
		note      sql.NullString
		createdAt string
	)
	err := row.Scan(&l.PharmacyID, &date, &l.SalesCash, &l.SalesIns, &l.VarPurchases, &l.OpexOther,
		&visits, &note, &createdAt)
	if err != nil {
		return finance.DailyLog{}, err
	}
	l.Date, _ = calendar.ParseDate(date)
	// Rows imported from older tools may hold text in visits.
	if n, err := strconv.Atoi(strings.TrimSpace(visits.String)); err == nil && visits.Valid {
		l.Visits, l.VisitsValid = n, true
	}
	l.Note = note.String
	l.CreatedAt = parseTime(createdAt)
	return l, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timestampLayout, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(timestampLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func requireAffected(res sql.Result, kind, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &finance.NotFoundError{Kind: kind, Key: key}
	}
	return nil
}

func isForeignKeyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
