package analysis

import "github.com/shopspring/decimal"

// Status positions a metric's current value relative to its target.
type Status string

const (
	StatusSemMeta    Status = "sem_meta"
	StatusAcimaMeta  Status = "acima_meta"
	StatusDentroMeta Status = "dentro_meta"
	StatusAbaixoMeta Status = "abaixo_meta"
)

// Direction states whether lower or higher values are desirable for a
// metric. The historical default is menor_melhor: the target is an upper
// bound (e.g. dias de ruptura).
type Direction string

const (
	DirectionMenorMelhor Direction = "menor_melhor"
	DirectionMaiorMelhor Direction = "maior_melhor"
)

// Target is the externally supplied goal for a metric. Absence means the
// metric is observational only.
type Target struct {
	Has       bool
	Value     decimal.Decimal
	Unit      string
	Direction Direction
}

// EvaluateStatus positions current against the target. It is total over
// its inputs: exactly one of the four Status values is returned.
func EvaluateStatus(current decimal.Decimal, target Target) Status {
	if !target.Has {
		return StatusSemMeta
	}
	cmp := current.Cmp(target.Value)
	if target.Direction == DirectionMaiorMelhor {
		cmp = -cmp
	}
	switch {
	case cmp < 0:
		return StatusAcimaMeta
	case cmp > 0:
		return StatusAbaixoMeta
	default:
		return StatusDentroMeta
	}
}
