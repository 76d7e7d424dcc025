package progress

import "fmt"

// Filter is the task list tab selection.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case FilterAll, FilterActive, FilterCompleted:
		return f, nil
	case "":
		return FilterAll, nil
	default:
		return "", fmt.Errorf("unknown filter %q (want all, active or completed)", s)
	}
}

// FilterTasks keeps the items matching f without reordering them.
func FilterTasks[T Rewarded](items []T, f Filter) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		switch f {
		case FilterActive:
			if item.IsCompleted() {
				continue
			}
		case FilterCompleted:
			if !item.IsCompleted() {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

// PositionOf returns the 1-based position of the first entry whose name matches,
// or 0 when absent.
func PositionOf[T any](entries []T, name func(T) string, want string) int {
	for i, e := range entries {
		if name(e) == want {
			return i + 1
		}
	}
	return 0
}
