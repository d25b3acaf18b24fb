package pacing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	timeHeaderRe = regexp.MustCompile(`(?i)(?:Instructional )?(?:Time|Duration|Est\.? Time):[ \t]*(.+)`)
	activityRe   = regexp.MustCompile(`activity:[ \t]*([^\n]+)`)
	colonTimeRe  = regexp.MustCompile(`(\d+):(\d{2})`)
	bareNumberRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*$`)
)

type unitRule struct {
	re         *regexp.Regexp
	multiplier float64
}

var unitRules = []unitRule{
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\b`), 60},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:minutes?|mins?|m)\b`), 1},
	{regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:seconds?|secs?|s)\b`), 1.0 / 60},
}

// ExplicitMinutes finds a "Time:" / "Duration:" header in notes and returns
// its value in minutes, rounded to one decimal. Anything unparseable is 0.
func ExplicitMinutes(notes string) float64 {
	m := timeHeaderRe.FindStringSubmatch(notes)
	if m == nil {
		return 0
	}
	return ParseDuration(m[1])
}

// ParseDuration reads "1:30" as hours and minutes, a bare number as minutes,
// and otherwise sums every "<n> hours|minutes|seconds" term it finds.
func ParseDuration(raw string) float64 {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0
	}
	if m := colonTimeRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		return round1(float64(h*60 + mins))
	}
	if m := bareNumberRe.FindStringSubmatch(s); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		return round1(v)
	}
	var total float64
	for _, u := range unitRules {
		for _, m := range u.re.FindAllStringSubmatch(s, -1) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			total += v * u.multiplier
		}
	}
	return round1(total)
}

// ActivityLabel returns the lowercased text after the first "activity:" in notes.
func ActivityLabel(notes string) string {
	m := activityRe.FindStringSubmatch(strings.ToLower(notes))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
