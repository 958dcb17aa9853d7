package sysinfo

import (
	"math"
	"regexp"
	"strconv"
	"time"
)

// maxUptimeSeconds is the longest uptime a time.Duration can hold.
const maxUptimeSeconds = float64(math.MaxInt64 / int64(time.Second))

var (
	daysRE    = regexp.MustCompile(`(\d+)\s+days?`)
	clockRE   = regexp.MustCompile(`(\d+):(\d{2})(?::(\d{2}))?`)
	minutesRE = regexp.MustCompile(`(\d+)\s+mins?`)
)

// parseUptime understands the uptime(1) style strings AREDN reports
// ("3 days, 4:05", "12 min", "1 day, 12 min") as well as plain seconds.
func parseUptime(v any) (time.Duration, bool) {
	if secs, ok := toFloat(v); ok {
		if secs < 0 || secs > maxUptimeSeconds {
			return 0, false
		}
		return time.Duration(secs * float64(time.Second)), true
	}

	s, ok := v.(string)
	if !ok {
		return 0, false
	}

	var secs float64
	var matched bool
	if m := daysRE.FindStringSubmatch(s); m != nil {
		secs += atof(m[1]) * 86400
		matched = true
	}
	if m := clockRE.FindStringSubmatch(s); m != nil {
		secs += atof(m[1])*3600 + atof(m[2])*60
		if m[3] != "" {
			secs += atof(m[3])
		}
		matched = true
	} else if m := minutesRE.FindStringSubmatch(s); m != nil {
		secs += atof(m[1]) * 60
		matched = true
	}
	if !matched || secs > maxUptimeSeconds {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// atof parses a run of digits matched by one of the uptime patterns.
func atof(digits string) float64 {
	f, _ := strconv.ParseFloat(digits, 64)
	return f
}
