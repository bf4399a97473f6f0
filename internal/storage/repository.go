package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertSampleSQL = `INSERT INTO metric_samples (
        contratante_id,
        planejamento_id,
        metric_key,
        sample_ts,
        value
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (contratante_id, planejamento_id, metric_key, sample_ts) DO UPDATE
    SET value = EXCLUDED.value;`

	listSamplesSQL = `SELECT
        metric_key,
        sample_ts,
        value,
        created_at
    FROM metric_samples
    WHERE contratante_id = $1
      AND planejamento_id = $2
      AND metric_key = $3
      AND sample_ts >= $4
      AND sample_ts < $5
    ORDER BY sample_ts;`

	insertSnapshotSQL = `INSERT INTO snapshots (
        contratante_id,
        planejamento_id,
        run_ts,
        document
    ) VALUES (
        $1,$2,$3,$4
    )
    ON CONFLICT (contratante_id, planejamento_id, run_ts) DO UPDATE
    SET document = EXCLUDED.document
    RETURNING id, contratante_id, planejamento_id, run_ts, document, created_at;`

	listRecentSnapshotsSQL = `SELECT
        id,
        contratante_id,
        planejamento_id,
        run_ts,
        document,
        created_at
    FROM snapshots
    WHERE contratante_id = $1
      AND planejamento_id = $2
    ORDER BY run_ts DESC
    LIMIT $3;`

	insertAlertSQL = `INSERT INTO snapshot_alerts (
        contratante_id,
        planejamento_id,
        run_ts,
        metric_key,
        issue,
        severity,
        detail
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    );`

	listRecentAlertsSQL = `SELECT
        id,
        contratante_id,
        planejamento_id,
        run_ts,
        metric_key,
        issue,
        severity,
        detail,
        created_at
    FROM snapshot_alerts
    WHERE contratante_id = $1
      AND planejamento_id = $2
    ORDER BY created_at DESC
    LIMIT $3;`

	deleteAlertsBeforeSQL = `DELETE FROM snapshot_alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// SampleStore persists metric observations across runs.
type SampleStore interface {
	UpsertSamples(ctx context.Context, contratanteID, planejamentoID int64, samples []SampleRecord) error
	ListSamples(ctx context.Context, contratanteID, planejamentoID int64, metricKey string, from, to time.Time) ([]SampleRecord, error)
}

// SnapshotStore persists assembled snapshot documents.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, rec SnapshotRecord) (SnapshotRecord, error)
	ListRecentSnapshots(ctx context.Context, contratanteID, planejamentoID int64, limit int) ([]SnapshotRecord, error)
}

// AlertStore persists emitted alerts for auditing.
type AlertStore interface {
	InsertAlerts(ctx context.Context, alerts []AlertRecord) error
	ListRecentAlerts(ctx context.Context, contratanteID, planejamentoID int64, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to samples, snapshots and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertSamples persists a batch of metric observations.
func (s *Store) UpsertSamples(ctx context.Context, contratanteID, planejamentoID int64, samples []SampleRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, sample := range samples {
		batch.Queue(upsertSampleSQL,
			contratanteID,
			planejamentoID,
			sample.MetricKey,
			sample.SampleTS,
			sample.Value.String(),
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for range samples {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("upsert sample: %w", execErr)
		}
	}
	return nil
}

// ListSamples lists one metric's observations within a time window.
func (s *Store) ListSamples(ctx context.Context, contratanteID, planejamentoID int64, metricKey string, from, to time.Time) ([]SampleRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesSQL, contratanteID, planejamentoID, metricKey, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]SampleRecord, 0)
	for rows.Next() {
		var (
			rec      SampleRecord
			valueStr string
		)
		if err := rows.Scan(&rec.MetricKey, &rec.SampleTS, &valueStr, &rec.CreatedAt); err != nil {
			return nil, err
		}
		value, convErr := decimal.NewFromString(valueStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse sample value: %w", convErr)
		}
		rec.Value = value
		samples = append(samples, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// InsertSnapshot persists an assembled snapshot document.
func (s *Store) InsertSnapshot(ctx context.Context, rec SnapshotRecord) (SnapshotRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return SnapshotRecord{}, err
	}

	row := pool.QueryRow(ctx, insertSnapshotSQL,
		rec.ContratanteID,
		rec.PlanejamentoID,
		rec.RunTS,
		[]byte(rec.Document),
	)

	var out SnapshotRecord
	var document []byte
	if scanErr := row.Scan(
		&out.ID,
		&out.ContratanteID,
		&out.PlanejamentoID,
		&out.RunTS,
		&document,
		&out.CreatedAt,
	); scanErr != nil {
		return SnapshotRecord{}, fmt.Errorf("insert snapshot: %w", scanErr)
	}
	out.Document = json.RawMessage(document)
	return out, nil
}

// ListRecentSnapshots lists the most recent snapshots for one subject/plan.
func (s *Store) ListRecentSnapshots(ctx context.Context, contratanteID, planejamentoID int64, limit int) ([]SnapshotRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, contratanteID, planejamentoID, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	snapshots := make([]SnapshotRecord, 0, limit)
	for rows.Next() {
		var rec SnapshotRecord
		var document []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.ContratanteID,
			&rec.PlanejamentoID,
			&rec.RunTS,
			&document,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Document = json.RawMessage(document)
		snapshots = append(snapshots, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

// InsertAlerts persists the alerts emitted by one run.
func (s *Store) InsertAlerts(ctx context.Context, alerts []AlertRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, alert := range alerts {
		batch.Queue(insertAlertSQL,
			alert.ContratanteID,
			alert.PlanejamentoID,
			alert.RunTS,
			alert.MetricKey,
			alert.Issue,
			alert.Severity,
			alert.Detail,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for range alerts {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("insert alert: %w", execErr)
		}
	}
	return nil
}

// ListRecentAlerts lists most recent alerts for one subject/plan.
func (s *Store) ListRecentAlerts(ctx context.Context, contratanteID, planejamentoID int64, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, contratanteID, planejamentoID, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		var rec AlertRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.ContratanteID,
			&rec.PlanejamentoID,
			&rec.RunTS,
			&rec.MetricKey,
			&rec.Issue,
			&rec.Severity,
			&rec.Detail,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}
