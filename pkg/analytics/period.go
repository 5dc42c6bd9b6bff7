package analytics

import (
	"strings"
	"time"

	"github.com/cipherhub/cipherhub/pkg/observability"
)

// Period tokens accepted by the resolver
const (
	PeriodYesterday  = "yesterday"
	PeriodLast7Days  = "last_7_days"
	PeriodLast30Days = "last_30_days"
)

const customPeriodSeparator = ","

// DateRange is an inclusive calendar date window in the reference zone.
// Start and End are midnight-truncated. An inverted range (Start after End)
// is a valid value that yields an empty aggregation downstream.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days the range spans, inclusive
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// PeriodResolver turns a period token into a concrete DateRange in a fixed
// reference location. The location is set once at construction; callers
// never supply a timezone.
type PeriodResolver struct {
	loc    *time.Location
	logger *observability.Logger
	now    func() time.Time
}

// NewPeriodResolver creates a resolver for the given reference location
func NewPeriodResolver(loc *time.Location, logger *observability.Logger) *PeriodResolver {
	return &PeriodResolver{
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// Resolve maps a period token to an inclusive DateRange.
//
// Symbolic tokens always end at yesterday: "yesterday" spans one day,
// "last_7_days" seven, "last_30_days" thirty. A custom period is two ISO
// dates joined by a comma, taken verbatim with no ordering validation.
// Anything else falls back to yesterday with a warning; an unrecognized
// token is never an error.
func (r *PeriodResolver) Resolve(period string) DateRange {
	now := r.now().In(r.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	yesterday := today.AddDate(0, 0, -1)

	switch period {
	case PeriodYesterday:
		return DateRange{Start: yesterday, End: yesterday}
	case PeriodLast7Days:
		return DateRange{Start: today.AddDate(0, 0, -7), End: yesterday}
	case PeriodLast30Days:
		return DateRange{Start: today.AddDate(0, 0, -30), End: yesterday}
	}

	if strings.Contains(period, customPeriodSeparator) {
		if custom, ok := r.parseCustom(period); ok {
			return custom
		}
	}

	r.logger.WithField("period", period).Warn("unrecognized period, falling back to yesterday")
	return DateRange{Start: yesterday, End: yesterday}
}

func (r *PeriodResolver) parseCustom(period string) (DateRange, bool) {
	parts := strings.SplitN(period, customPeriodSeparator, 2)

	start, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[0]), r.loc)
	if err != nil {
		return DateRange{}, false
	}
	end, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[1]), r.loc)
	if err != nil {
		return DateRange{}, false
	}

	return DateRange{Start: start, End: end}, true
}
