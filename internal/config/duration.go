package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var tokenDurationPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseTokenDuration parses lifetimes written as <integer><s|m|h|d>, e.g. 15m or 7d.
func ParseTokenDuration(value string) (time.Duration, error) {
	match := tokenDurationPattern.FindStringSubmatch(value)
	if match == nil {
		return 0, fmt.Errorf("%q must be in format: 10s | 5m | 1h | 7d", value)
	}

	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", value, err)
	}

	unit := time.Second
	switch match[2] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}

	if n > int64((1<<63-1)/int64(unit)) {
		return 0, fmt.Errorf("%q overflows duration", value)
	}
	return time.Duration(n) * unit, nil
}
