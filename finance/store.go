/*
store.go - Persistence contract for pharmacies, periods, metrics and logs

PURPOSE:
  Defines the interface between the engine and storage. The engine never
  assumes a storage technology; anything that can answer these queries
  atomically can back it.

KEY INTERFACES:
  Store:   Reads and writes for all four entities
  TxStore: Store plus WithTx for atomic multi-step writes

ATOMICITY:
  CreatePeriod runs FindOverlapping, InsertPeriod and SaveMetrics inside
  one WithTx call. Either the period and its seeded metrics both exist
  afterwards, or neither does.

LOOKUPS:
  Single-row getters return *NotFoundError when nothing matches.
  List methods return an empty slice, never NotFound.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Durable SQLite store
  - finance/store/memory.go: In-memory store for tests and demos

SEE ALSO:
  - engine.go: The only caller
*/
package finance

import (
	"context"
	"time"

	"github.com/warp/pharmacy-ledger/calendar"
)

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// Pharmacies
	CreatePharmacy(ctx context.Context, title string, createdAt time.Time) (Pharmacy, error)
	GetPharmacy(ctx context.Context, id PharmacyID) (Pharmacy, error)
	ListPharmacies(ctx context.Context) ([]Pharmacy, error)

	// Periods
	InsertPeriod(ctx context.Context, p Period) (PeriodID, error)
	GetPeriod(ctx context.Context, id PeriodID) (Period, error)
	// ListPeriods orders by start date, most recent first.
	ListPeriods(ctx context.Context, pharmacyID PharmacyID) ([]Period, error)
	FindPeriodByBounds(ctx context.Context, pharmacyID PharmacyID, start, end calendar.Date) (Period, error)
	// FindOverlapping returns periods whose inclusive range intersects r.
	FindOverlapping(ctx context.Context, pharmacyID PharmacyID, r calendar.Range) ([]Period, error)
	UpdatePeriodStatus(ctx context.Context, id PeriodID, status PeriodStatus) error

	// Metrics
	GetMetrics(ctx context.Context, pharmacyID PharmacyID, periodID PeriodID, basis Basis) (PeriodMetrics, error)
	// SaveMetrics upserts on (pharmacy, period, basis). It never touches LockedAt.
	SaveMetrics(ctx context.Context, m PeriodMetrics) error
	// LockMetrics sets LockedAt only if it is not already set.
	LockMetrics(ctx context.Context, pharmacyID PharmacyID, periodID PeriodID, basis Basis, at time.Time) error

	// Daily logs
	UpsertDailyLog(ctx context.Context, log DailyLog) error
	GetDailyLog(ctx context.Context, pharmacyID PharmacyID, date calendar.Date) (DailyLog, error)
	// ListDailyLogs returns logs in [from, to] ordered by date ascending.
	ListDailyLogs(ctx context.Context, pharmacyID PharmacyID, from, to calendar.Date) ([]DailyLog, error)
	// LatestDailyLog returns the most recent log in [from, to].
	LatestDailyLog(ctx context.Context, pharmacyID PharmacyID, from, to calendar.Date) (DailyLog, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Reset deletes every row. Demo scenarios only.
	Reset(ctx context.Context) error
}
