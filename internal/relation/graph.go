// Package relation indexes the externally supplied problem ⇄ action ⇄
// metric mapping both ways, so metric outcomes can be projected back onto
// the problems and actions that reference them.
package relation

import "sort"

// Mapping mirrors relation_action_problem_metrics.json.
type Mapping struct {
	Problems map[string]ProblemLinks `json:"problems"`
	Actions  map[string]ActionLinks  `json:"actions"`
}

// ProblemLinks lists the metrics and actions attached to one problem.
type ProblemLinks struct {
	MetricIDs []string `json:"metric_ids"`
	ActionIDs []string `json:"action_ids"`
}

// ActionLinks lists the metrics one action is expected to move.
type ActionLinks struct {
	MetricIDs []string `json:"metric_ids"`
}

// Graph is the bidirectional index built once per run. All accessors
// return sorted, de-duplicated id slices; ids referenced in the mapping
// but absent elsewhere are kept as-is (dangling references are tolerated
// so partially available data still produces a snapshot).
type Graph struct {
	problemMetrics map[string][]string
	problemActions map[string][]string
	actionMetrics  map[string][]string
	actionProblems map[string][]string
	metricProblems map[string][]string
	metricActions  map[string][]string
}

// Build constructs the graph from a mapping. One pass over problems and
// one over actions fills the forward tables and their inversions.
func Build(m Mapping) *Graph {
	g := &Graph{
		problemMetrics: make(map[string][]string, len(m.Problems)),
		problemActions: make(map[string][]string, len(m.Problems)),
		actionMetrics:  make(map[string][]string, len(m.Actions)),
		actionProblems: make(map[string][]string, len(m.Actions)),
		metricProblems: make(map[string][]string),
		metricActions:  make(map[string][]string),
	}

	for pid, links := range m.Problems {
		g.problemMetrics[pid] = uniqueSorted(links.MetricIDs)
		g.problemActions[pid] = uniqueSorted(links.ActionIDs)
		for _, mid := range g.problemMetrics[pid] {
			g.metricProblems[mid] = append(g.metricProblems[mid], pid)
		}
		for _, aid := range g.problemActions[pid] {
			g.actionProblems[aid] = append(g.actionProblems[aid], pid)
		}
	}

	for aid, links := range m.Actions {
		g.actionMetrics[aid] = uniqueSorted(links.MetricIDs)
		for _, mid := range g.actionMetrics[aid] {
			g.metricActions[mid] = append(g.metricActions[mid], aid)
		}
		if _, ok := g.actionProblems[aid]; !ok {
			g.actionProblems[aid] = []string{}
		}
	}

	for mid := range g.metricProblems {
		g.metricProblems[mid] = uniqueSorted(g.metricProblems[mid])
	}
	for mid := range g.metricActions {
		g.metricActions[mid] = uniqueSorted(g.metricActions[mid])
	}
	for aid := range g.actionProblems {
		g.actionProblems[aid] = uniqueSorted(g.actionProblems[aid])
	}

	return g
}

// ProblemIDs lists every problem id in the mapping, sorted.
func (g *Graph) ProblemIDs() []string {
	return sortedKeys(g.problemMetrics)
}

// ActionIDs lists every action id in the mapping, sorted.
func (g *Graph) ActionIDs() []string {
	return sortedKeys(g.actionMetrics)
}

// MetricsForProblem returns the metric ids attached to a problem.
func (g *Graph) MetricsForProblem(problemID string) []string {
	return copyIDs(g.problemMetrics[problemID])
}

// ActionsForProblem returns the action ids attached to a problem.
func (g *Graph) ActionsForProblem(problemID string) []string {
	return copyIDs(g.problemActions[problemID])
}

// MetricsForAction returns the metric ids an action is expected to move.
func (g *Graph) MetricsForAction(actionID string) []string {
	return copyIDs(g.actionMetrics[actionID])
}

// ProblemsForAction returns the problems that reference an action.
func (g *Graph) ProblemsForAction(actionID string) []string {
	return copyIDs(g.actionProblems[actionID])
}

// ProblemsForMetric returns the problems that reference a metric.
func (g *Graph) ProblemsForMetric(metricID string) []string {
	return copyIDs(g.metricProblems[metricID])
}

// ActionsForMetric returns the actions that reference a metric.
func (g *Graph) ActionsForMetric(metricID string) []string {
	return copyIDs(g.metricActions[metricID])
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
