package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SampleRecord is one persisted metric observation, the durable form of
// the in-memory series store so multi-cycle history survives runs.
type SampleRecord struct {
	MetricKey string
	SampleTS  time.Time
	Value     decimal.Decimal
	CreatedAt time.Time
}

// SnapshotRecord is one assembled snapshot document as stored.
type SnapshotRecord struct {
	ID             int64
	ContratanteID  int64
	PlanejamentoID int64
	RunTS          time.Time
	Document       json.RawMessage
	CreatedAt      time.Time
}

// AlertRecord is one emitted alert, persisted for auditing alongside the
// snapshot that carries it.
type AlertRecord struct {
	ID             int64
	ContratanteID  int64
	PlanejamentoID int64
	RunTS          time.Time
	MetricKey      string
	Issue          string
	Severity       string
	Detail         string
	CreatedAt      time.Time
}
