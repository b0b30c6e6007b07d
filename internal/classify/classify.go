// Package classify maps free-text activity titles to a category, display
// name and color using ordered, first-match-wins rule tables.
package classify

import (
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dailymanifest/internal/model"
)

// Rule maps a lower-case trigger substring to a fixed classification.
type Rule struct {
	Test        string
	Category    string
	DisplayName string
	Color       string
}

func (r Rule) classification() *model.Classification {
	return &model.Classification{
		Category:     r.Category,
		FilterName:   r.DisplayName,
		SpecificName: r.DisplayName,
		DisplayName:  r.DisplayName,
		Color:        r.Color,
	}
}

// builtinRules is evaluated in order; earlier rules win on overlapping
// substrings ("hike & fly zipline" is Hike & Fly).
var builtinRules = []Rule{
	{Test: "hike & fly", Category: "hike-fly", DisplayName: "Hike & Fly", Color: "#a78bfa"},
	{Test: "hike and fly", Category: "hike-fly", DisplayName: "Hike & Fly", Color: "#a78bfa"},
	{Test: "protea", Category: "protea-tour", DisplayName: "Protea Tour", Color: "#9333ea"},
	{Test: "adventure course", Category: "adventure-park", DisplayName: "Adv. Course", Color: "#f6ad55"},
	{Test: "adv. park", Category: "adventure-park", DisplayName: "Adv. Park", Color: "#f6ad55"},
	{Test: "adventure park", Category: "adventure-park", DisplayName: "Adventure Park", Color: "#f6ad55"},
	{Test: "skynet", Category: "skynet", DisplayName: "SkyNet", Color: "#4299e1"},
	{Test: "sky net", Category: "skynet", DisplayName: "SkyNet", Color: "#4299e1"},
	{Test: "zipline", Category: "zipline", DisplayName: "Zipline", Color: "#48bb78"},
	{Test: "zip line", Category: "zipline", DisplayName: "Zipline", Color: "#48bb78"},
	{Test: "ziplining", Category: "zipline", DisplayName: "Zipline", Color: "#48bb78"},
}

// keywordGroup is a semantic match against the lower-cased title. When
// keepSpecific is false the cleaned title becomes the specific name.
type keywordGroup struct {
	match        func(lower string) bool
	category     string
	displayName  string
	color        string
	keepSpecific bool
}

func containsAll(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if !strings.Contains(s, sub) {
				return false
			}
		}
		return true
	}
}

func containsAny(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

var keywordGroups = []keywordGroup{
	{match: containsAll("bike night"), category: "bike-night", displayName: "Bike Night", color: "#10b981", keepSpecific: true},
	{match: containsAll("private", "tour"), category: "private-tour", displayName: "Private Tour", color: "#f56565"},
	{match: containsAll("private event"), category: "private-event", displayName: "Private Event", color: "#ec4899"},
	{match: containsAll("group tour"), category: "group-tour", displayName: "Group Tour", color: "#8b5cf6"},
	{match: containsAny("birthday", "party"), category: "party", displayName: "Party/Event", color: "#f59e0b"},
	{match: containsAny("corporate", "team building"), category: "corporate", displayName: "Corporate Event", color: "#6366f1"},
}

// Palette is the fixed set of colors for synthesized classifications.
var Palette = []string{
	"#ef4444", "#f97316", "#f59e0b", "#eab308", "#84cc16",
	"#22c55e", "#10b981", "#14b8a6", "#06b6d4", "#0ea5e9",
	"#3b82f6", "#6366f1", "#8b5cf6", "#a855f7", "#d946ef",
	"#ec4899", "#f43f5e",
}

var (
	capacityPattern   = regexp.MustCompile(`(?i)\d+\s+of\s+\d+`)
	clockPattern      = regexp.MustCompile(`(?i)\d{1,2}:\d{2}\s*(am|pm)?`)
	trailingDash      = regexp.MustCompile(`\s*-\s*$`)
	leadingDash       = regexp.MustCompile(`^\s*-\s*`)
	defaultClassifier = New()
)

// Classifier holds an immutable ordered rule table. It is safe for
// concurrent use.
type Classifier struct {
	rules []Rule
}

// New returns a Classifier using the built-in rules followed by extra.
// Extra triggers are lower-cased so they match the lower-cased title.
func New(extra ...Rule) *Classifier {
	rules := make([]Rule, 0, len(builtinRules)+len(extra))
	rules = append(rules, builtinRules...)
	for _, r := range extra {
		r.Test = strings.ToLower(strings.TrimSpace(r.Test))
		if r.Test == "" {
			continue
		}
		rules = append(rules, r)
	}
	return &Classifier{rules: rules}
}

// Default returns the classifier built from the built-in tables only.
func Default() *Classifier {
	return defaultClassifier
}

// Classify classifies title with the default classifier.
func Classify(title string) *model.Classification {
	return defaultClassifier.Classify(title)
}

// Rules returns a copy of the ordered rule table.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify returns the classification for title, or nil when nothing
// meaningful is left once capacity, clock times and dashes are stripped.
func (c *Classifier) Classify(title string) *model.Classification {
	lower := strings.ToLower(title)

	for _, r := range c.rules {
		if strings.Contains(lower, r.Test) {
			return r.classification()
		}
	}

	name := candidateName(title)
	if name == "" {
		return nil
	}

	for _, g := range keywordGroups {
		if !g.match(lower) {
			continue
		}
		specific := name
		if g.keepSpecific {
			specific = g.displayName
		}
		return &model.Classification{
			Category:     g.category,
			FilterName:   g.displayName,
			SpecificName: specific,
			DisplayName:  g.displayName,
			Color:        g.color,
		}
	}

	display := DisplayName(name)
	return &model.Classification{
		Category:     strings.Join(strings.Fields(strings.ToLower(name)), "-"),
		FilterName:   display,
		SpecificName: name,
		DisplayName:  display,
		Color:        ColorFor(name),
	}
}

// CleanTitle removes "N of M" capacity fragments and clock times from title.
func CleanTitle(title string) string {
	s := capacityPattern.ReplaceAllString(title, "")
	s = clockPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func candidateName(title string) string {
	s := capacityPattern.ReplaceAllString(title, "")
	s = clockPattern.ReplaceAllString(s, "")
	s = trailingDash.ReplaceAllString(s, "")
	s = leadingDash.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// DisplayName capitalizes the first letter of every whitespace-separated
// word and lower-cases the rest.
func DisplayName(name string) string {
	// Casers are stateful; build them per call.
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)

	words := strings.Fields(name)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = upper.String(string(r)) + lower.String(w[size:])
	}
	return strings.Join(words, " ")
}

// ColorFor picks a palette color for name from its hash.
func ColorFor(name string) string {
	h := hashCode(name)
	if h < 0 {
		h = -h
	}
	return Palette[h%int64(len(Palette))]
}

// hashCode folds the UTF-16 code units of s with h = c + ((h << 5) - h),
// where the shift operates on the low 32 bits of h and the subtraction
// does not. This keeps colors identical to the web dashboard's.
func hashCode(s string) int64 {
	var h int64
	for _, c := range utf16.Encode([]rune(s)) {
		h = int64(c) + (int64(int32(h)<<5) - h)
	}
	return h
}
