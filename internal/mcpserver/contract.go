package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/orgstamp/internal/orgdate"
)

// ruleExamples documents each resolver rule. Keys match orgdate.RuleNames.
var ruleExamples = map[string]string{
	"iso-date":     "`2024-05-01` exact date",
	"short-date":   "`24-5-1` two-digit year, month, day (year + 2000)",
	"us-date":      "`5/1/24` month/day/year; two-digit years get + 2000",
	"us-month-day": "`12/25` next occurrence of month/day",
	"worded-date":  "`may 1 24` month name, day, two-digit year",
	"day-of-month": "`15` day in the current month (whole modifier only)",
	"weekday":      "`fri` next such weekday, never today",
	"month-day":    "`dec 25` next occurrence of month name and day",
	"clock":        "`9:30` today at the given time",
	"days":         "`+3d` days from today",
	"weeks":        "`+2w` weeks from today",
	"months":       "`+1m` months from today; the day is kept",
	"years":        "`+1y` years from today",
}

const grammarHeader = `# Date Modifier Grammar

A modifier is resolved against today's date (or an explicit anchor).
An empty modifier, or one that matches no rule, yields the anchor date.
Rules are tried in the order below; the first rule whose pattern occurs
anywhere in the modifier wins. Month and weekday names are three-letter
English abbreviations and are case-insensitive.

Impossible values (month 13, day 32, 2/30, 25:00) are rejected and nothing
is inserted.

## Rules (priority order)

`

const grammarFooter = `
## Output

Active timestamps render as ` + "`<2024-05-01 Wed>`" + `, inactive ones as
` + "`[2024-05-01 Wed]`" + `; a clock modifier adds the time:
` + "`<2024-05-01 Wed 09:30>`" + `.
`

// ModifierGrammar renders the grammar document served as an MCP resource.
func ModifierGrammar() string {
	var b strings.Builder
	b.WriteString(grammarHeader)
	for i, name := range orgdate.RuleNames() {
		fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, name, ruleExamples[name])
	}
	b.WriteString(grammarFooter)
	return b.String()
}
