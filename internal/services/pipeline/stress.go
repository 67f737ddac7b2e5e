package pipeline

import (
	"strings"

	"stressvision/internal/models"
)

// DefaultStressLabels are the emotions counted as stress.
var DefaultStressLabels = []string{"fear", "angry", "sad"}

// StressRule maps an emotion label to a stress status.
type StressRule struct {
	labels map[string]struct{}
}

// NewStressRule builds a rule from a label set. Labels are compared case-insensitively.
func NewStressRule(labels []string) StressRule {
	set := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		set[normalizeLabel(label)] = struct{}{}
	}
	return StressRule{labels: set}
}

// Status classifies a label. known is false when the classifier gave no usable answer.
func (r StressRule) Status(label string, known bool) models.StressStatus {
	if !known {
		return models.StatusUnknown
	}
	if _, ok := r.labels[normalizeLabel(label)]; ok {
		return models.StatusStressed
	}
	return models.StatusCalm
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
