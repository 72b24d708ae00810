package orgdate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Stamp is an org-mode timestamp. Active stamps (<...>) take part in
// scheduling, inactive ones ([...]) are informational.
type Stamp struct {
	Moment Moment
	Active bool
}

// Format renders m as an active or inactive timestamp.
func Format(m Moment, active bool) string {
	return Stamp{Moment: m, Active: active}.String()
}

func (s Stamp) String() string {
	if s.Active {
		return "<" + s.Moment.String() + ">"
	}
	return "[" + s.Moment.String() + "]"
}

const stampExpr = `([<\[])(\d{4})-(\d{2})-(\d{2}) [A-Za-z]{3}(?: (\d{1,2}):(\d{2}))?([>\]])`

var (
	stampRe      = regexp.MustCompile(stampExpr)
	stampExactRe = regexp.MustCompile(`^` + stampExpr + `$`)
)

// ParseStamp parses a single timestamp such as "<2024-05-01 Wed>" or
// "[2024-05-01 Wed 09:30]". The day name is not checked against the date.
func ParseStamp(s string) (Stamp, error) {
	m := stampExactRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Stamp{}, fmt.Errorf("orgdate: not a timestamp: %q", s)
	}
	return stampFromMatch(m)
}

// Located is a timestamp found in a document.
type Located struct {
	Stamp
	Raw    string
	Offset int // byte offset of the opening bracket
	Line   int // 1-based
	Column int // 1-based, in bytes
}

// FindStamps returns every well-formed timestamp in text in document order.
// Mismatched brackets and impossible dates are skipped.
func FindStamps(text string) []Located {
	var out []Located
	line, lineStart, scanned := 1, 0, 0
	for _, idx := range stampRe.FindAllStringSubmatchIndex(text, -1) {
		m := make([]string, len(idx)/2)
		for i := range m {
			if idx[2*i] >= 0 {
				m[i] = text[idx[2*i]:idx[2*i+1]]
			}
		}
		st, err := stampFromMatch(m)
		if err != nil {
			continue
		}
		start := idx[0]
		for ; scanned < start; scanned++ {
			if text[scanned] == '\n' {
				line++
				lineStart = scanned + 1
			}
		}
		out = append(out, Located{
			Stamp:  st,
			Raw:    m[0],
			Offset: start,
			Line:   line,
			Column: start - lineStart + 1,
		})
	}
	return out
}

func stampFromMatch(m []string) (Stamp, error) {
	opening, closing := m[1], m[7]
	active := opening == "<"
	if (active && closing != ">") || (!active && closing != "]") {
		return Stamp{}, fmt.Errorf("orgdate: mismatched brackets in %q", m[0])
	}
	f := make([]int, 0, 5)
	for _, g := range []string{m[2], m[3], m[4], m[5], m[6]} {
		if g == "" {
			continue
		}
		n, _ := strconv.Atoi(g) // at most four digits
		f = append(f, n)
	}
	var (
		moment Moment
		err    error
	)
	if len(f) == 5 {
		moment, err = NewDateTime(f[0], f[1], f[2], f[3], f[4])
	} else {
		moment, err = NewDate(f[0], f[1], f[2])
	}
	if err != nil {
		return Stamp{}, err
	}
	return Stamp{Moment: moment, Active: active}, nil
}
