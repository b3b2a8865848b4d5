// Package timefmt converts between colon-separated timestamps and second
// offsets. Pure string arithmetic, no I/O.
package timefmt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed reports a timestamp that is not 1-3 colon-separated
// nonnegative integer components.
var ErrMalformed = errors.New("malformed timestamp")

// ParseSeconds converts "S", "M:S" or "H:M:S" into a second offset.
// Missing high-order components count as zero. More than three components
// is an error rather than a silent truncation.
func ParseSeconds(ts string) (int, error) {
	parts := strings.Split(ts, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q has more than 3 components", ErrMalformed, ts)
	}
	for len(parts) < 3 {
		parts = append([]string{"0"}, parts...)
	}

	total := 0
	for i, mul := range []int{3600, 60, 1} {
		if !allDigits(parts[i]) {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, ts)
		}
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, ts)
		}
		total += n * mul
	}
	return total, nil
}

// Format renders a second offset as H:MM:SS, the form the trimming
// process takes for its seek offset.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
