package shared

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxDurationSeconds is the largest duration the API accepts (a 32-bit signed integer).
const MaxDurationSeconds = math.MaxInt32

// FormatDuration renders seconds as m:ss (e.g. 225 -> "3:45").
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// ParseDuration accepts "m:ss" or a plain number of seconds and returns the total seconds.
//
// Whitespace is trimmed. The seconds part of m:ss must be 0-59. Negative totals and totals above
// [MaxDurationSeconds] are rejected.
func ParseDuration(input string) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("%w: empty duration", ErrInvalidInput)
	}

	minutesPart, secondsPart, hasColon := strings.Cut(input, ":")
	if !hasColon {
		seconds, err := strconv.Atoi(input)
		if err != nil || seconds < 0 || seconds > MaxDurationSeconds {
			return 0, fmt.Errorf("%w: duration %q", ErrInvalidInput, input)
		}
		return seconds, nil
	}

	minutes, err := strconv.Atoi(minutesPart)
	if err != nil || minutes < 0 {
		return 0, fmt.Errorf("%w: duration %q", ErrInvalidInput, input)
	}

	seconds, err := strconv.Atoi(secondsPart)
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("%w: duration %q", ErrInvalidInput, input)
	}

	if minutes > (MaxDurationSeconds-seconds)/60 {
		return 0, fmt.Errorf("%w: duration %q is too long", ErrInvalidInput, input)
	}

	return minutes*60 + seconds, nil
}
