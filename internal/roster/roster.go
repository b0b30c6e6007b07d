// Package roster parses booking lines like "2x Jane Doe (555-0100)" out of
// free-text event descriptions.
package roster

import (
	"regexp"
	"strconv"
	"strings"

	"dailymanifest/internal/model"
)

const separatorPrefix = "==="

var (
	countPrefix   = regexp.MustCompile(`^(\d+)x\s+`)
	cancelledWord = regexp.MustCompile(`(?i)cancelled`)
	contactSuffix = regexp.MustCompile(`\s*\([^)]*\)$`)
)

// Parse builds a Roster from description. Lines that do not start with a
// "<count>x " prefix, separator lines and lines without a name are skipped.
// An empty description yields an empty roster.
func Parse(description string) model.Roster {
	r := model.Roster{Guests: []model.Guest{}}
	if description == "" {
		return r
	}

	for _, line := range strings.Split(description, "\n") {
		g, ok := parseLine(line)
		if !ok {
			continue
		}
		r.Guests = append(r.Guests, g)
		r.Total += g.Count
		if !g.IsCancelled {
			r.Active += g.Count
		}
	}

	return r
}

func parseLine(line string) (model.Guest, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, separatorPrefix) {
		return model.Guest{}, false
	}

	m := countPrefix.FindStringSubmatch(line)
	if m == nil {
		return model.Guest{}, false
	}
	count, err := strconv.Atoi(m[1])
	if err != nil || count <= 0 {
		return model.Guest{}, false
	}

	cancelled := strings.Contains(strings.ToUpper(line), "CANCELLED")

	name := cancelledWord.ReplaceAllString(line[len(m[0]):], "")
	name = strings.TrimSpace(name)
	if loc := contactSuffix.FindStringIndex(name); loc != nil {
		name = strings.TrimSpace(name[:loc[0]])
	}
	if name == "" {
		return model.Guest{}, false
	}

	return model.Guest{Count: count, Name: name, IsCancelled: cancelled}, true
}
