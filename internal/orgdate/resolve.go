package orgdate

import (
	"errors"
	"fmt"
)

// Resolution is a resolved modifier and the rule that produced it.
// Rule is empty when the anchor was returned unchanged.
type Resolution struct {
	Moment Moment
	Rule   string
}

// Resolve interprets modifier relative to the calendar date of anchor.
// An empty or unrecognised modifier yields the anchor date. The only error
// is one wrapping apperr.ErrInvalidDate, returned when the matching rule
// produces an impossible date or time.
//
// Resolve never reads the wall clock and is safe for concurrent use.
func Resolve(anchor Moment, modifier string) (Moment, error) {
	res, err := Explain(anchor, modifier)
	if err != nil {
		return Moment{}, err
	}
	return res.Moment, nil
}

// ResolveOptional is Resolve for callers where the modifier may be unset.
func ResolveOptional(anchor Moment, modifier *string) (Moment, error) {
	if modifier == nil {
		return anchor.Date(), nil
	}
	return Resolve(anchor, *modifier)
}

// Explain is Resolve that also reports which rule matched.
func Explain(anchor Moment, modifier string) (Resolution, error) {
	anchor = anchor.Date()
	if modifier == "" {
		return Resolution{Moment: anchor}, nil
	}
	for _, r := range rules {
		m := r.pattern.FindStringSubmatch(modifier)
		if m == nil {
			continue
		}
		fields, err := r.extract(m)
		if errors.Is(err, errNoMatch) {
			continue
		}
		if err != nil {
			return Resolution{}, fmt.Errorf("%s %q: %w", r.name, m[0], err)
		}
		moment, err := r.resolve(anchor, fields)
		if err != nil {
			return Resolution{}, fmt.Errorf("%s %q: %w", r.name, m[0], err)
		}
		return Resolution{Moment: moment, Rule: r.name}, nil
	}
	return Resolution{Moment: anchor}, nil
}

// RuleNames lists the grammar rules in priority order.
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}
