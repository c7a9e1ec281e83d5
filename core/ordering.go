package core

import (
	"sort"
	"strconv"
)

// Ordering sorts records by one column.
type Ordering struct {
	Field     string
	Ascending bool
}

// SortRecords stable-sorts records by orderings, in priority order.
// Values that all parse as numbers compare numerically; nil sorts first.
func SortRecords(records []Record, orderings []Ordering) {
	if len(orderings) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, o := range orderings {
			c := compareValues(records[i][o.Field], records[j][o.Field])
			if c == 0 {
				continue
			}
			if o.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	sa, sb := FormatKey(a), FormatKey(b)
	fa, errA := strconv.ParseFloat(sa, 64)
	fb, errB := strconv.ParseFloat(sb, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}
