// Package ingest reads the pipeline's input artifacts: the wide metrics
// CSV, the relevance/target table, the problem and action tables, and the
// relation mapping JSON.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"estoque-monitor/internal/action"
	"estoque-monitor/internal/analysis"
	"estoque-monitor/internal/metric"
	"estoque-monitor/internal/relation"
)

// Input file names, as produced by the upstream extraction jobs.
const (
	MetricsFile   = "metricas_extraidas.csv"
	RelevanceFile = "relacao_relevancia_planejamento_metrica.csv"
	ProblemsFile  = "problemas_identificados.csv"
	ActionsFile   = "acoes_planejamento.csv"
	MappingFile   = "relation_action_problem_metrics.json"
)

// ErrNoSubjectData aborts a run: the metrics CSV has no rows for the
// requested contratante. Every other data-quality condition degrades into
// empty fields instead.
var ErrNoSubjectData = errors.New("ingest: nenhum dado encontrado para o contratante")

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Inputs is everything one analysis run consumes.
type Inputs struct {
	Store    *metric.Store
	Targets  map[string]analysis.Target
	Problems map[string]string
	Actions  map[string]action.Definition
	Mapping  relation.Mapping
}

// LoadDir reads all five input artifacts from dir for one
// contratante/planejamento pair.
func LoadDir(dir string, contratanteID, planejamentoID int64, logger zerolog.Logger) (*Inputs, error) {
	logger = logger.With().Str("component", "ingest").Logger()

	store, err := loadFile(dir, MetricsFile, func(r io.Reader) (*metric.Store, error) {
		return ReadMetrics(r, contratanteID, planejamentoID)
	})
	if err != nil {
		return nil, err
	}

	targets, err := loadFile(dir, RelevanceFile, ReadRelevance)
	if err != nil {
		return nil, err
	}

	problems, err := loadFile(dir, ProblemsFile, ReadProblems)
	if err != nil {
		return nil, err
	}

	actions, err := loadFile(dir, ActionsFile, ReadActions)
	if err != nil {
		return nil, err
	}

	mapping, err := loadFile(dir, MappingFile, ReadMapping)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("metricas", store.Len()).
		Int("problemas", len(problems)).
		Int("acoes", len(actions)).
		Msg("entradas carregadas")

	return &Inputs{
		Store:    store,
		Targets:  targets,
		Problems: problems,
		Actions:  actions,
		Mapping:  mapping,
	}, nil
}

func loadFile[T any](dir, name string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	file, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return zero, fmt.Errorf("abrir %s: %w", name, err)
	}
	defer file.Close()

	out, err := parse(file)
	if err != nil {
		return zero, fmt.Errorf("ler %s: %w", name, err)
	}
	return out, nil
}

// ReadMetrics parses the wide metrics CSV (id_contratante, data_extracao,
// one column per metric) into a series store, keeping only the rows of the
// requested contratante. Empty cells are missing samples; a metric column
// that is empty for every kept row simply yields no series.
func ReadMetrics(r io.Reader, contratanteID, planejamentoID int64) (*metric.Store, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cabeçalho: %w", err)
	}

	cols := indexColumns(header)
	idCol, ok := cols["id_contratante"]
	if !ok {
		return nil, errors.New("coluna id_contratante ausente")
	}
	tsCol, ok := cols["data_extracao"]
	if !ok {
		return nil, errors.New("coluna data_extracao ausente")
	}

	store := metric.NewStore(contratanteID, planejamentoID)
	matched := false
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rowID, err := strconv.ParseInt(strings.TrimSpace(record[idCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("linha %d: id_contratante inválido %q", line, record[idCol])
		}
		if rowID != contratanteID {
			continue
		}
		matched = true

		ts, err := parseTimestamp(record[tsCol])
		if err != nil {
			return nil, fmt.Errorf("linha %d: %w", line, err)
		}

		for i, cell := range record {
			if i == idCol || i == tsCol {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			value, err := decimal.NewFromString(cell)
			if err != nil {
				return nil, fmt.Errorf("linha %d: valor inválido %q na coluna %s", line, cell, header[i])
			}
			store.Add(strings.TrimSpace(header[i]), metric.Sample{Timestamp: ts, Value: value})
		}
	}

	if !matched {
		return nil, ErrNoSubjectData
	}
	return store, nil
}

// ReadRelevance parses the relevance/target table. The direcao column is
// optional and defaults to menor_melhor, preserving the historical
// target-as-upper-bound policy.
func ReadRelevance(r io.Reader) (map[string]analysis.Target, error) {
	rows, cols, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if _, ok := cols["nome_metrica"]; !ok {
		return nil, errors.New("coluna nome_metrica ausente")
	}

	targets := make(map[string]analysis.Target, len(rows))
	for line, record := range rows {
		name := strings.TrimSpace(record[cols["nome_metrica"]])
		if name == "" {
			continue
		}

		target := analysis.Target{Direction: analysis.DirectionMenorMelhor}
		if idx, ok := cols["tem_meta"]; ok {
			target.Has = parseBool(record[idx])
		}
		if idx, ok := cols["unidade"]; ok {
			target.Unit = strings.TrimSpace(record[idx])
		}
		if idx, ok := cols["direcao"]; ok {
			if analysis.Direction(strings.TrimSpace(record[idx])) == analysis.DirectionMaiorMelhor {
				target.Direction = analysis.DirectionMaiorMelhor
			}
		}
		if target.Has {
			idx, ok := cols["meta"]
			if !ok {
				return nil, errors.New("coluna meta ausente")
			}
			value, err := decimal.NewFromString(strings.TrimSpace(record[idx]))
			if err != nil {
				return nil, fmt.Errorf("linha %d: meta inválida %q", line+2, record[idx])
			}
			target.Value = value
		}

		targets[name] = target
	}
	return targets, nil
}

// ReadProblems parses the problem table into id → descrição.
func ReadProblems(r io.Reader) (map[string]string, error) {
	rows, cols, err := readTable(r)
	if err != nil {
		return nil, err
	}
	idCol, ok := cols["id_problema"]
	if !ok {
		return nil, errors.New("coluna id_problema ausente")
	}
	descCol, ok := cols["desc_problema"]
	if !ok {
		return nil, errors.New("coluna desc_problema ausente")
	}

	problems := make(map[string]string, len(rows))
	for _, record := range rows {
		id := strings.TrimSpace(record[idCol])
		if id == "" {
			continue
		}
		problems[id] = strings.TrimSpace(record[descCol])
	}
	return problems, nil
}

// ReadActions parses the action table into id → definition.
func ReadActions(r io.Reader) (map[string]action.Definition, error) {
	rows, cols, err := readTable(r)
	if err != nil {
		return nil, err
	}
	idCol, ok := cols["id_acao"]
	if !ok {
		return nil, errors.New("coluna id_acao ausente")
	}
	descCol, ok := cols["desc_acao"]
	if !ok {
		return nil, errors.New("coluna desc_acao ausente")
	}

	actions := make(map[string]action.Definition, len(rows))
	for line, record := range rows {
		id := strings.TrimSpace(record[idCol])
		if id == "" {
			continue
		}

		def := action.Definition{Descricao: strings.TrimSpace(record[descCol])}
		if idx, ok := cols["impacto_esperado"]; ok {
			def.ImpactoEsperado = strings.TrimSpace(record[idx])
		}
		if idx, ok := cols["implementada_em"]; ok {
			cell := strings.TrimSpace(record[idx])
			if cell != "" {
				ts, err := parseTimestamp(cell)
				if err != nil {
					return nil, fmt.Errorf("linha %d: %w", line+2, err)
				}
				def.ImplementadaEm = &ts
			}
		}
		actions[id] = def
	}
	return actions, nil
}

// ReadMapping decodes the relation mapping JSON.
func ReadMapping(r io.Reader) (relation.Mapping, error) {
	var mapping relation.Mapping
	if err := json.NewDecoder(r).Decode(&mapping); err != nil {
		return relation.Mapping{}, err
	}
	return mapping, nil
}

func readTable(r io.Reader) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("cabeçalho: %w", err)
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return rows, indexColumns(header), nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	return cols
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("data inválida %q", raw)
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "sim", "yes":
		return true
	default:
		return false
	}
}
