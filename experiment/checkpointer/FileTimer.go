package checkpointer

import (
	"fmt"
	"time"
)

// timeLayout sorts lexically in the order checkpoints were written
const timeLayout = "20060102T150405.000000000"

// FileTimer returns a function which suffixes filename with the UTC
// time of each call. Two calls never return the same name, even when
// the clock has not advanced between them.
func FileTimer(filename, extension string) func() string {
	var last time.Time
	return func() string {
		now := time.Now().UTC()
		if !now.After(last) {
			now = last.Add(time.Nanosecond)
		}
		last = now
		return fmt.Sprintf("%v-%v%v", filename, now.Format(timeLayout),
			extension)
	}
}
