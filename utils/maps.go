package utils

import (
	"fmt"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func SortedKeys[M ~map[K]V, K constraints.Ordered, V any](m M) []K {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

func StringMap[K comparable, V fmt.Stringer](m map[K]V) map[K]string {
	out := make(map[K]string, len(m))
	for k, v := range m {
		out[k] = v.String()
	}
	return out
}
