package slots

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Class is the classification of one slot. The numeric values are the
// weights used by ResolveGrabs.
type Class int

const (
	LowMarker  Class = 0
	Neutral    Class = 1
	HighMarker Class = 2
)

func (c Class) String() string {
	switch c {
	case LowMarker:
		return "low"
	case Neutral:
		return "neutral"
	case HighMarker:
		return "high"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// ParseClass converts a class name or its weight (0, 1, 2) into a Class.
func ParseClass(value string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low", "0":
		return LowMarker, nil
	case "neutral", "1":
		return Neutral, nil
	case "high", "2":
		return HighMarker, nil
	default:
		return 0, fmt.Errorf("unknown slot class %q", value)
	}
}

// Classify ranks the metrics by intensity. The most intense slot is the
// HighMarker, the least intense the LowMarker and all others Neutral.
//
// Ranking uses a stable descending sort on slot order, so among equal
// maxima the first slot wins HighMarker and among equal minima the last
// slot gets LowMarker.
func Classify(metrics []Metric) ([]Class, error) {
	if len(metrics) < 2 {
		return nil, fmt.Errorf("classify: need at least 2 slots, got %d", len(metrics))
	}

	order := make([]int, len(metrics))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return metrics[order[a]].Intensity > metrics[order[b]].Intensity
	})

	classes := make([]Class, len(metrics))
	for i := range classes {
		classes[i] = Neutral
	}
	classes[order[0]] = HighMarker
	classes[order[len(order)-1]] = LowMarker
	return classes, nil
}

// CountClass returns how many slots have class c.
func CountClass(classes []Class, c Class) int {
	return lo.Count(classes, c)
}
