package metrics

import (
	"sort"
	"strconv"
)

// StatusBucket is the number of responses seen with one status code.
type StatusBucket struct {
	Code  string
	Count int
}

// FlattenStatusBuckets converts a status->count map into rows sorted by
// descending count, then ascending numeric code.
func FlattenStatusBuckets(codes map[string]int) []StatusBucket {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, StatusBucket{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			a, errA := strconv.Atoi(rows[i].Code)
			b, errB := strconv.Atoi(rows[j].Code)
			if errA == nil && errB == nil {
				return a < b
			}
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
