// Package generics implements generic data structure helpers missing from the
// stdlib.
package generics

// SliceMap executes the given function sequentially for every element of in,
// and returns the mapped slice.
func SliceMap[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}
