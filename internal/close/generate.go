package close

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const maxMonthlyPeriods = 12

// GenerateMonthlyPeriods creates one Open period per month of a fiscal year.
// Months whose exact range already exists are skipped. A month that fails to
// create is reported and the run continues with the next month.
func (s *Service) GenerateMonthlyPeriods(ctx context.Context, in GenerateMonthlyInput) (GeneratedPeriods, error) {
	in.Company = strings.TrimSpace(in.Company)
	in.FiscalYear = strings.TrimSpace(in.FiscalYear)
	if err := ValidateInput(in); err != nil {
		return GeneratedPeriods{}, err
	}
	start, end, err := fiscalYearBounds(in)
	if err != nil {
		return GeneratedPeriods{}, err
	}
	existing, err := s.repo.ListPeriods(ctx, PeriodFilter{Company: in.Company, Limit: 10000})
	if err != nil {
		return GeneratedPeriods{}, err
	}

	out := GeneratedPeriods{Created: []Period{}, Skipped: []SkippedPeriod{}, Errors: []GenerationError{}}
	for _, r := range MonthlyRanges(start, end) {
		name := MonthlyPeriodName(r.From, in.Company)
		if match, ok := sameRange(existing, r); ok {
			out.Skipped = append(out.Skipped, SkippedPeriod{PeriodName: name, Reason: "Period already exists", ExistingName: match.Name})
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		period, err := s.CreatePeriod(ctx, CreatePeriodInput{
			PeriodName: name,
			Company:    in.Company,
			StartDate:  r.From,
			EndDate:    r.To,
			PeriodType: PeriodTypeMonthly,
			FiscalYear: in.FiscalYear,
		})
		if err != nil {
			out.Errors = append(out.Errors, GenerationError{PeriodName: name, Error: err.Error()})
			continue
		}
		out.Created = append(out.Created, period)
	}
	s.logger.Info("monthly periods generated",
		slog.String("company", in.Company),
		slog.String("fiscal_year", in.FiscalYear),
		slog.Int("created", len(out.Created)),
		slog.Int("skipped", len(out.Skipped)),
		slog.Int("errors", len(out.Errors)),
	)
	return out, nil
}

// MonthlyRanges splits [start, end] on calendar month boundaries, at most
// twelve ranges. The last range is clamped to end.
func MonthlyRanges(start, end time.Time) []DateRange {
	cur, end := truncateDay(start), truncateDay(end)
	var out []DateRange
	for i := 0; i < maxMonthlyPeriods && !cur.After(end); i++ {
		y, m, _ := cur.Date()
		last := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
		if last.After(end) {
			last = end
		}
		out = append(out, DateRange{From: cur, To: last})
		cur = time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
	}
	return out
}

// MonthlyPeriodName formats "<Mon> <YYYY> - <ABBR>", where ABBR is the
// upper-cased initial of each word in the company name.
func MonthlyPeriodName(start time.Time, company string) string {
	var abbr strings.Builder
	for _, word := range strings.Fields(company) {
		r, _ := utf8.DecodeRuneInString(word)
		abbr.WriteRune(unicode.ToUpper(r))
	}
	return fmt.Sprintf("%s %d - %s", start.Format("Jan"), start.Year(), abbr.String())
}

func fiscalYearBounds(in GenerateMonthlyInput) (time.Time, time.Time, error) {
	start, end := in.YearStart, in.YearEnd
	switch {
	case start.IsZero() && end.IsZero():
		year, err := strconv.Atoi(in.FiscalYear)
		if err != nil || year < 1 {
			return time.Time{}, time.Time{}, &InputError{Fields: []FieldError{{
				Field:   "year_start_date",
				Rule:    "required_unless",
				Message: "required when fiscal_year is not a calendar year",
			}}}
		}
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	case start.IsZero():
		return time.Time{}, time.Time{}, &InputError{Fields: []FieldError{{Field: "year_start_date", Rule: "required_with", Message: "required with year_end_date"}}}
	case end.IsZero():
		return time.Time{}, time.Time{}, &InputError{Fields: []FieldError{{Field: "year_end_date", Rule: "required_with", Message: "required with year_start_date"}}}
	}
	if !truncateDay(start).Before(truncateDay(end)) {
		return time.Time{}, time.Time{}, ErrDateRangeInvalid
	}
	return truncateDay(start), truncateDay(end), nil
}

func sameRange(periods []Period, r DateRange) (Period, bool) {
	for _, p := range periods {
		if truncateDay(p.StartDate).Equal(r.From) && truncateDay(p.EndDate).Equal(r.To) {
			return p, true
		}
	}
	return Period{}, false
}
