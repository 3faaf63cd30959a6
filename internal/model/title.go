package model

import (
	"net/url"
	"strings"
)

// CategoryPrefix is the namespace prefix of category page titles
const CategoryPrefix = "Category:"

// StripCategoryPrefix removes a leading "Category:" from a title
func StripCategoryPrefix(title string) string {
	return strings.TrimPrefix(title, CategoryPrefix)
}

// PageTitleFromPath turns a URL path segment ("Venus_%28planet%29") into a page title ("Venus (planet)")
func PageTitleFromPath(segment string) string {
	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}
	return strings.ReplaceAll(segment, "_", " ")
}

// CapFirst upper-cases the first letter of s
func CapFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
