// Package parser holds the small grammars workflow rules validate against.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/logger"
)

var scheduleCronLog = logger.New("parser:schedule_cron")

// ErrCronFieldCount is returned for cron strings that do not have exactly
// five whitespace-separated fields.
var ErrCronFieldCount = errors.New("cron expression must have 5 space-separated fields (minute hour day month weekday)")

// CronField describes the bounds of one position of a cron expression.
type CronField struct {
	Name string
	Min  uint64
	Max  uint64
}

// CronFields are the five positions of a POSIX cron expression as GitHub
// Actions schedules use them.
var CronFields = [5]CronField{
	{Name: "minute", Min: 0, Max: 59},
	{Name: "hour", Min: 0, Max: 23},
	{Name: "day of month", Min: 1, Max: 31},
	{Name: "month", Min: 1, Max: 12},
	{Name: "day of week", Min: 0, Max: 6},
}

// CronFieldError reports one invalid field of a cron expression.
type CronFieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *CronFieldError) Error() string {
	return fmt.Sprintf("invalid cron %s '%s': %s", e.Field, e.Value, e.Reason)
}

// ValidateCron checks a five-field cron expression. It returns
// ErrCronFieldCount when the shape is wrong and otherwise one
// CronFieldError per invalid field, in field order.
//
// Accepted forms per field are "*", "*/N", comma lists of values, ranges
// "lo-hi", stepped ranges "lo-hi/N" and "N/M". Alphabetic names such as MON
// or JAN are accepted as is. Any other token that is not a number in range,
// including one too large to parse, is malformed.
func ValidateCron(expr string) ([]CronFieldError, error) {
	parts := strings.Fields(expr)
	if len(parts) != len(CronFields) {
		scheduleCronLog.Printf("Cron %q has %d fields", expr, len(parts))
		return nil, ErrCronFieldCount
	}

	var errs []CronFieldError
	for i, field := range CronFields {
		if reason, ok := checkCronField(parts[i], field); !ok {
			errs = append(errs, CronFieldError{Field: field.Name, Value: parts[i], Reason: reason})
		}
	}
	if len(errs) > 0 {
		scheduleCronLog.Printf("Cron %q has %d invalid fields", expr, len(errs))
	}
	return errs, nil
}

func checkCronField(value string, field CronField) (string, bool) {
	if value == "*" {
		return "", true
	}
	if step, ok := strings.CutPrefix(value, "*/"); ok {
		return checkCronStep(step, field)
	}

	for part := range strings.SplitSeq(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return fmt.Sprintf("Empty value in %s field", field.Name), false
		}

		base, step, hasStep := strings.Cut(part, "/")
		if hasStep {
			if reason, ok := checkCronStep(step, field); !ok {
				return reason, false
			}
		}

		if base == "*" {
			continue
		}
		if lo, hi, isRange := strings.Cut(base, "-"); isRange {
			if lo == "" || hi == "" {
				return fmt.Sprintf("Invalid range '%s' for %s", base, field.Name), false
			}
			loVal, loNamed, reason, ok := parseCronValue(lo, field)
			if !ok {
				return reason, false
			}
			hiVal, hiNamed, reason, ok := parseCronValue(hi, field)
			if !ok {
				return reason, false
			}
			if !loNamed && !hiNamed && loVal > hiVal {
				return fmt.Sprintf("Invalid range '%s' for %s", base, field.Name), false
			}
			continue
		}

		if _, _, reason, ok := parseCronValue(base, field); !ok {
			return reason, false
		}
	}
	return "", true
}

// parseCronValue reads one token. Alphabetic tokens such as MON or JAN are
// names and are not range checked. Anything else must be a number within the
// field's bounds.
func parseCronValue(token string, field CronField) (v uint64, named bool, reason string, ok bool) {
	if isCronName(token) {
		return 0, true, "", true
	}
	v, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, false, fmt.Sprintf("Invalid value '%s' for %s", token, field.Name), false
	}
	if reason, ok := checkCronBounds(v, field); !ok {
		return v, false, reason, false
	}
	return v, false, "", true
}

func isCronName(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func checkCronStep(step string, field CronField) (string, bool) {
	n, err := strconv.ParseUint(step, 10, 64)
	switch {
	case err != nil:
		return fmt.Sprintf("Invalid step value '%s' for %s", step, field.Name), false
	case n == 0:
		return fmt.Sprintf("Step value must be greater than 0 for %s", field.Name), false
	}
	return "", true
}

func checkCronBounds(v uint64, field CronField) (string, bool) {
	if v < field.Min || v > field.Max {
		return fmt.Sprintf("Value %d is out of range (%d-%d) for %s", v, field.Min, field.Max, field.Name), false
	}
	return "", true
}
