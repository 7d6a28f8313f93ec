package automation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule computes when a job runs next. It is built by Parse from one of
//
//	@every <duration>   fixed interval, e.g. "@every 30m"
//	<RFC3339 time>      a single run
//	@hourly, @daily, @weekly or a 5-field cron expression
type Schedule struct {
	every    time.Duration
	once     *time.Time
	cron     *cronSpec
	location *time.Location
}

// Parse reads spec in the time zone tz (UTC when empty).
func Parse(spec, tz string) (Schedule, error) {
	location := time.UTC
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		location = loc
	}
	spec = strings.TrimSpace(spec)

	if rest, ok := strings.CutPrefix(spec, "@every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid interval expression %q: %w", spec, err)
		}
		if d <= 0 {
			return Schedule{}, fmt.Errorf("interval must be > 0")
		}
		return Schedule{every: d, location: location}, nil
	}
	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return Schedule{once: &t, location: location}, nil
	}
	c, err := parseCron(spec)
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{cron: c, location: location}, nil
}

// MustParse is Parse for specs known to be valid.
func MustParse(spec string) Schedule {
	s, err := Parse(spec, "")
	if err != nil {
		panic(err)
	}
	return s
}

// Next returns the first run strictly after from. ok is false when the
// schedule never fires again.
func (s Schedule) Next(from time.Time) (next time.Time, ok bool) {
	switch {
	case s.every > 0:
		return from.Add(s.every), true
	case s.once != nil:
		if !s.once.After(from) {
			return time.Time{}, false
		}
		return *s.once, true
	case s.cron != nil:
		loc := s.location
		if loc == nil {
			loc = time.UTC
		}
		n, ok := s.cron.next(from.In(loc))
		if !ok {
			return time.Time{}, false
		}
		return n.UTC(), true
	}
	return time.Time{}, false
}

var cronMacros = map[string]string{
	"@hourly": "0 * * * *",
	"@daily":  "0 0 * * *",
	"@weekly": "0 0 * * 0",
}

type cronSpec struct {
	minute, hour, dayOfMonth, month, dayOfWeek map[int]bool
	domWildcard, dowWildcard                   bool
}

func parseCron(expr string) (*cronSpec, error) {
	if m, ok := cronMacros[expr]; ok {
		expr = m
	}
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid cron expression %q (expected 5 fields)", expr)
	}

	var (
		c   cronSpec
		err error
	)
	if c.minute, err = parseCronField(parts[0], 0, 59); err != nil {
		return nil, fmt.Errorf("invalid minute field: %w", err)
	}
	if c.hour, err = parseCronField(parts[1], 0, 23); err != nil {
		return nil, fmt.Errorf("invalid hour field: %w", err)
	}
	if c.dayOfMonth, err = parseCronField(parts[2], 1, 31); err != nil {
		return nil, fmt.Errorf("invalid day-of-month field: %w", err)
	}
	if c.month, err = parseCronField(parts[3], 1, 12); err != nil {
		return nil, fmt.Errorf("invalid month field: %w", err)
	}
	if c.dayOfWeek, err = parseCronField(parts[4], 0, 7); err != nil {
		return nil, fmt.Errorf("invalid day-of-week field: %w", err)
	}
	// 7 is an alias of Sunday
	if c.dayOfWeek[7] {
		c.dayOfWeek[0] = true
	}
	c.domWildcard = parts[2] == "*"
	c.dowWildcard = parts[4] == "*"
	return &c, nil
}

// next scans minute by minute, skipping whole months that cannot match,
// for at most two years.
func (c *cronSpec) next(from time.Time) (time.Time, bool) {
	candidate := from.Truncate(time.Minute).Add(time.Minute)
	limit := candidate.AddDate(2, 0, 0)
	for !candidate.After(limit) {
		if !c.month[int(candidate.Month())] {
			candidate = time.Date(candidate.Year(), candidate.Month(), 1, 0, 0, 0, 0, candidate.Location()).AddDate(0, 1, 0)
			continue
		}
		if c.hour[candidate.Hour()] && c.minute[candidate.Minute()] && c.dayMatches(candidate) {
			return candidate, true
		}
		candidate = candidate.Add(time.Minute)
	}
	return time.Time{}, false
}

// dayMatches follows cron: when both day fields are restricted either may
// match.
func (c *cronSpec) dayMatches(t time.Time) bool {
	dom := c.dayOfMonth[t.Day()]
	dow := c.dayOfWeek[int(t.Weekday())]
	switch {
	case c.domWildcard && c.dowWildcard:
		return true
	case c.domWildcard:
		return dow
	case c.dowWildcard:
		return dom
	default:
		return dom || dow
	}
}

func parseCronField(field string, min, max int) (map[int]bool, error) {
	allowed := make(map[int]bool, max-min+1)
	for _, item := range strings.Split(field, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, fmt.Errorf("empty token")
		}
		rangePart, stepPart, hasStep := strings.Cut(item, "/")
		step := 1
		if hasStep {
			s, err := strconv.Atoi(stepPart)
			if err != nil || s <= 0 {
				return nil, fmt.Errorf("invalid step in %q", item)
			}
			step = s
		}

		start, end := min, max
		if rangePart != "*" {
			var err error
			start, end, err = parseRange(rangePart, min, max)
			if err != nil {
				return nil, err
			}
		}
		for i := start; i <= end; i += step {
			allowed[i] = true
		}
	}
	return allowed, nil
}

func parseRange(part string, min, max int) (int, int, error) {
	if lo, hi, ok := strings.Cut(part, "-"); ok {
		start, err := strconv.Atoi(lo)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range start %q", part)
		}
		end, err := strconv.Atoi(hi)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid range end %q", part)
		}
		if start > end || start < min || end > max {
			return 0, 0, fmt.Errorf("range out of bounds %q", part)
		}
		return start, end, nil
	}

	v, err := strconv.Atoi(part)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid value %q", part)
	}
	if v < min || v > max {
		return 0, 0, fmt.Errorf("value %d out of bounds [%d,%d]", v, min, max)
	}
	return v, v, nil
}
