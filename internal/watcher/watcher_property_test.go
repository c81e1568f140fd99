//go:build property

package watcher

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDebouncerProperties checks the batches produced by flush.
func TestDebouncerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("one sorted event per distinct path", prop.ForAll(
		func(ids []int) bool {
			d := newDebouncer(time.Hour)
			distinct := make(map[string]bool)
			for _, id := range ids {
				path := fmt.Sprintf("file-%d.html", id)
				distinct[path] = true
				d.pending = append(d.pending, ChangeEvent{Path: path})
			}
			d.flush()

			if len(ids) == 0 {
				return len(d.output) == 0
			}
			batch := <-d.output
			if len(batch) != len(distinct) {
				return false
			}
			return sort.SliceIsSorted(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path }) &&
				len(d.pending) == 0
		},
		gen.SliceOf(gen.IntRange(0, 20)),
	))

	properties.TestingRun(t)
}
