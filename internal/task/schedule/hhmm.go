package schedule

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

var reHHMM = regexp.MustCompile(`^(\d+):(\d{1,2})$`)

// maxIntervalHours keeps H·time.Hour inside time.Duration.
const maxIntervalHours = math.MaxInt64 / int64(time.Hour)

// ParseHHMM splits "H:MM" into hours and minutes. Only the shape is checked here.
func ParseHHMM(raw string) (hours, minutes int, err error) {
	m := reHHMM.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q is not H:MM", ErrConfigValueMalformed, raw)
	}
	hours, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: hours %q: %v", ErrConfigValueMalformed, m[1], err)
	}
	minutes, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: minutes %q: %v", ErrConfigValueMalformed, m[2], err)
	}
	return hours, minutes, nil
}

// ParseFireTime parses a time of day. Hour must be 0-23 and minute 0-59.
func ParseFireTime(raw string) (FireTime, error) {
	h, m, err := ParseHHMM(raw)
	if err != nil {
		return FireTime{}, err
	}
	ft := FireTime{Hour: h, Minute: m}
	if err := ft.validate(); err != nil {
		return FireTime{}, fmt.Errorf("%w: %v", ErrConfigValueMalformed, err)
	}
	return ft, nil
}

// ParseInterval parses "H:MM" as a duration. Minutes must be 0-59 and the
// total must be positive.
func ParseInterval(raw string) (time.Duration, error) {
	h, m, err := ParseHHMM(raw)
	if err != nil {
		return 0, err
	}
	if m > 59 {
		return 0, fmt.Errorf("%w: minute %d out of range", ErrConfigValueMalformed, m)
	}
	if int64(h) >= maxIntervalHours {
		return 0, fmt.Errorf("%w: hours %d out of range", ErrConfigValueMalformed, h)
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("%w: interval must be > 0", ErrConfigValueMalformed)
	}
	return d, nil
}

// FormatInterval renders d as "H:MM", dropping seconds.
func FormatInterval(d time.Duration) string {
	d = d.Truncate(time.Minute)
	return fmt.Sprintf("%d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
