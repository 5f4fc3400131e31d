package metrics

import (
	"fmt"

	dto "github.com/prometheus/client_model/go"
)

// labels is a flat name/value list, e.g. labels{"job", "mora-sweep"}.
type labels []string

// series finds the first metric of family name carrying every pair in want.
func series(mfs []*dto.MetricFamily, name string, want labels) (*dto.Metric, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabels(m, want) {
				return m, nil
			}
		}
		return nil, fmt.Errorf("metric %q has no series %v", name, want)
	}
	return nil, fmt.Errorf("metric %q not found", name)
}

func hasLabels(m *dto.Metric, want labels) bool {
	have := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		have[lp.GetName()] = lp.GetValue()
	}
	for i := 0; i+1 < len(want); i += 2 {
		if have[want[i]] != want[i+1] {
			return false
		}
	}
	return true
}

// value reads a counter or gauge.
func value(mfs []*dto.MetricFamily, name string, want ...string) (float64, error) {
	m, err := series(mfs, name, want)
	if err != nil {
		return 0, err
	}
	if g := m.GetGauge(); g != nil {
		return g.GetValue(), nil
	}
	return m.GetCounter().GetValue(), nil
}

// histogramSum reads the sample sum of a histogram series.
func histogramSum(mfs []*dto.MetricFamily, name string, want ...string) (float64, error) {
	m, err := series(mfs, name, want)
	if err != nil {
		return 0, err
	}
	return m.GetHistogram().GetSampleSum(), nil
}
