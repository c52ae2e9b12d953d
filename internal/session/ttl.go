package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/authy/authy/internal/apperr"
)

// ParseTTL extends time.ParseDuration with a trailing "d" day unit, since
// neither the standard library nor dustin/go-humanize (which formats
// durations, not parses shorthand ones) offers one.
func ParseTTL(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, apperr.Wrap(apperr.Serialization, "invalid day-suffixed TTL", err)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, apperr.Wrap(apperr.Serialization, "invalid TTL", err)
	}
	return d, nil
}
