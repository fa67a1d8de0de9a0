package inmemdoc

import (
	"encoding/json"
	"reflect"

	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
)

var errUnknownOp = errors.New("unknown filter op")

// matches evaluates all filters (ANDed) against the decoded document.
func matches(doc map[string]interface{}, filters []core.Filter) (bool, error) {
	for _, f := range filters {
		want, err := normalize(f.Value)
		if err != nil {
			return false, err
		}
		got := doc[f.Field]
		switch f.Op {
		case core.OpEqual:
			if !reflect.DeepEqual(got, want) {
				return false, nil
			}
		case core.OpGreaterEqual:
			cmp, ok := compare(got, want)
			if !ok || cmp < 0 {
				return false, nil
			}
		case core.OpLessEqual:
			cmp, ok := compare(got, want)
			if !ok || cmp > 0 {
				return false, nil
			}
		case core.OpArrayContains:
			arr, ok := got.([]interface{})
			if !ok {
				return false, nil
			}
			found := false
			for _, v := range arr {
				if reflect.DeepEqual(v, want) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		default:
			return false, errors.Wrap(errUnknownOp, f.Op)
		}
	}
	return true, nil
}

// normalize round-trips a filter value through JSON so it compares against
// decoded document fields (time.Time -> RFC3339 string, ints -> float64...).
func normalize(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// compare orders two decoded JSON values of the same kind.
func compare(a, b interface{}) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func docLess(a, b map[string]interface{}, orderBy []core.Ordering) bool {
	for _, ord := range orderBy {
		cmp, ok := compare(a[ord.Field], b[ord.Field])
		if !ok || cmp == 0 {
			continue
		}
		if ord.Desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}
