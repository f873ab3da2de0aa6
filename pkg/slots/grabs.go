package slots

import (
	"fmt"

	"github.com/samber/lo"
)

// windowSum is the weight of a window holding the HighMarker and two
// Neutral slots.
const windowSum = 4

// GrabPlan says where to collect first and how far the cage must reach.
type GrabPlan struct {
	// Window is the start index of the first qualifying window.
	Window int

	// Primary holds the slots of the first pickup, encoded along the
	// unrolled track: 5 and -1 mean slots 5 and 0 approached from the
	// back, 6 and 0 mean slots 0 and 1 approached past the end.
	Primary []int

	// Slots holds the physical indices of the same pickup.
	Slots []int

	// Secondary holds the reach indices. Two entries mean both canonical
	// reach points apply and the caller picks by distance.
	Secondary []int
}

// PrimarySlots returns the physical slot indices of the first pickup.
func (p GrabPlan) PrimarySlots() []int {
	return append([]int(nil), p.Slots...)
}

// FirstSlot returns the lowest physical slot of the first pickup.
func (p GrabPlan) FirstSlot() int {
	return lo.Min(p.Slots)
}

// Nearest returns the smallest reach index.
func (p GrabPlan) Nearest() int {
	return lo.Min(p.Secondary)
}

// Farthest returns the largest reach index.
func (p GrabPlan) Farthest() int {
	return lo.Max(p.Secondary)
}

func (p GrabPlan) String() string {
	return fmt.Sprintf("window %d: primary %v (slots %v), secondary %v", p.Window, p.Primary, p.Slots, p.Secondary)
}

// ResolveGrabs finds the first window of three circularly adjacent slots
// whose weights sum to 4 and maps its position to a grab plan.
func ResolveGrabs(classes []Class) (GrabPlan, error) {
	if len(classes) != SlotCount {
		return GrabPlan{}, fmt.Errorf("resolve grabs: need %d slots, got %d", SlotCount, len(classes))
	}

	for i := range SlotCount {
		sum := 0
		for j := i; j < i+3; j++ {
			sum += int(classes[j%SlotCount])
		}
		if sum != windowSum {
			continue
		}

		back := mod(i-2, SlotCount)
		switch i {
		case 4:
			return GrabPlan{Window: i, Primary: []int{5, -1}, Slots: []int{5, 0}, Secondary: []int{back}}, nil
		case 5:
			return GrabPlan{Window: i, Primary: []int{6, 0}, Slots: []int{0, 1}, Secondary: []int{back}}, nil
		case 1, 2:
			return GrabPlan{Window: i, Primary: []int{i + 1}, Slots: []int{i + 1}, Secondary: []int{1, 4}}, nil
		default:
			return GrabPlan{Window: i, Primary: []int{i + 1}, Slots: []int{i + 1}, Secondary: []int{back}}, nil
		}
	}

	return GrabPlan{}, &GrabResolutionError{Classes: append([]Class(nil), classes...)}
}

// mod returns the non-negative remainder of a divided by n.
func mod(a, n int) int {
	return ((a % n) + n) % n
}
