package controller

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"climate-server/internal/modules/climate/types"
)

// lenientDateLayout accepts both padded and unpadded month and day.
const lenientDateLayout = "2006-1-2"

// DateParseError reports a date path parameter that could not be parsed.
type DateParseError struct {
	Param string
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("invalid %s date %q (expected YYYY-MM-DD)", e.Param, e.Value)
}

func (e *DateParseError) Unwrap() error { return e.Err }

var validate = validator.New()

type rangeParams struct {
	Start string `validate:"required,datetime=2006-01-02"`
	End   string `validate:"omitempty,datetime=2006-01-02"`
}

// parseStartDate parses the single date of the stats-from-start route.
func parseStartDate(raw string) (time.Time, error) {
	d, err := time.Parse(lenientDateLayout, raw)
	if err != nil {
		return time.Time{}, &DateParseError{Param: "start", Value: raw, Err: err}
	}
	return d, nil
}

// parseRangeDates strictly parses start and an optional end. The validator
// decides which input is malformed; hasEnd is false when end was omitted.
func parseRangeDates(rawStart, rawEnd string) (start, end time.Time, hasEnd bool, err error) {
	p := rangeParams{Start: rawStart, End: rawEnd}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return time.Time{}, time.Time{}, false, err
		}
		param := strings.ToLower(verrs[0].Field())
		value := rawStart
		if param == "end" {
			value = rawEnd
		}
		return time.Time{}, time.Time{}, false, &DateParseError{Param: param, Value: value, Err: verrs[0]}
	}

	start = mustDate(rawStart)
	if rawEnd == "" {
		return start, time.Time{}, false, nil
	}
	return start, mustDate(rawEnd), true, nil
}

// mustDate converts a value that already passed datetime=2006-01-02.
func mustDate(s string) time.Time {
	d, err := time.Parse(types.DateLayout, s)
	if err != nil {
		panic(fmt.Sprintf("date %q passed validation but does not parse: %v", s, err))
	}
	return d
}
