package collection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tonimelisma/kinto-sync/internal/record"
)

// sortByOrder sorts records in place by the field named in order, which may
// carry a leading "-" for descending. Records missing the field sort after
// those that have it.
func sortByOrder(records []record.Record, order string) {
	if order == "" {
		return
	}

	desc := strings.HasPrefix(order, "-")
	field := strings.TrimPrefix(order, "-")

	sort.SliceStable(records, func(i, j int) bool {
		vi, oki := records[i][field]
		vj, okj := records[j][field]

		switch {
		case oki && !okj:
			return true
		case !oki && okj:
			return false
		case !oki && !okj:
			return false
		}

		less := lessValue(vi, vj)
		if desc {
			return !less && !equalValue(vi, vj)
		}

		return less
	})
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	}

	return fmt.Sprint(a) < fmt.Sprint(b)
}

func equalValue(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}
