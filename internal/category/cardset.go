package category

import "strings"

// Titles starting with these are Wikipedia meta-categories, not browsable sets
var denyPrefixes = []string{
	"Wikipedia featured",
	"Wikipedia categories",
	"Lists of",
	"Lists by",
	"Lists and",
	"Lists relating to",
	"Template:",
	"Categories by",
	"Template-Class",
	"Redirects from",
	"WikiProject Missing",
	"WikiProject",
	"Comparison of",
	"Wikipedian",
	"Set indices",
	"Articles using",
	"Wikipedia books on",
	"Wikipedia free files",
	"Public domain files",
	"Files with restricted",
	"Pages with ",
	"Pages containing ",
	"Wikipedia requested ",
	"Files with",
	"X1",
}

var denySuffixes = []string{
	" articles",
	" articles needing attention",
	" articles needing expert attention",
	" stubs",
	"-related lists",
	" list errors",
	" templates",
	" navigational boxes",
}

// Matched case-insensitively anywhere in the title
var denySubstrings = []string{
	"disambiguation",
	"wikipedia sockpuppets",
	"articles with",
	"articles needing",
	"data templates",
}

// IsCardSet reports whether a category title names a thematic set of entities
// rather than maintenance, list or project bookkeeping.
func IsCardSet(title string) bool {
	for _, p := range denyPrefixes {
		if strings.HasPrefix(title, p) {
			return false
		}
	}
	for _, s := range denySuffixes {
		if strings.HasSuffix(title, s) {
			return false
		}
	}

	lower := strings.ToLower(title)
	for _, s := range denySubstrings {
		if strings.Contains(lower, s) {
			return false
		}
	}
	return true
}
