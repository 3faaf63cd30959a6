package model

import (
	"sort"
	"strings"
)

// Entity is one Wikidata item fetched for a card ("raw card").
// Entities are read-only once fetched; curation and image resolution never write into Claims.
type Entity struct {
	ID           string               `json:"id" yaml:"id"`
	Labels       string               `json:"labels" yaml:"labels"`             // English label
	Descriptions string               `json:"descriptions" yaml:"descriptions"` // English description
	Aliases      []string             `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Sitelinks    []string             `json:"sitelinks,omitempty" yaml:"sitelinks,omitempty"` // Sitelink URLs
	Claims       map[PropertyID]Claim `json:"claims" yaml:"claims"`
	Title        string               `json:"title,omitempty" yaml:"title,omitempty"` // English Wikipedia title, when known
}

// DisambiguationDescriptions are descriptions Wikidata gives to disambiguation pages
var DisambiguationDescriptions = []string{
	"Wikimedia disambiguation page",
	"Wikipedia disambiguation page",
}

// Claim returns the claim for a property, if present
func (e Entity) Claim(prop PropertyID) (Claim, bool) {
	c, ok := e.Claims[prop]
	return c, ok
}

// ClaimValue returns the raw flattened value for a property ("" when absent)
func (e Entity) ClaimValue(prop PropertyID) string {
	return e.Claims[prop].Value
}

// ClaimValues returns the individual values for a property, split on ", "
func (e Entity) ClaimValues(prop PropertyID) []string {
	c, ok := e.Claims[prop]
	if !ok {
		return nil
	}
	return c.SplitValues()
}

// IsDisambiguation reports whether the entity describes a disambiguation page
func (e Entity) IsDisambiguation() bool {
	for _, d := range DisambiguationDescriptions {
		if e.Descriptions == d {
			return true
		}
	}
	return false
}

// DisplayClaims returns claims grouped for display, hidden groups omitted.
// Within a group claims are ordered by property id for stable output.
func (e Entity) DisplayClaims() map[DisplayGroup][]Claim {
	groups := make(map[DisplayGroup][]Claim)
	for _, c := range e.Claims {
		group := DisplayGroupOf(c)
		if group == GroupHidden {
			continue
		}
		groups[group] = append(groups[group], c)
	}
	for _, claims := range groups {
		sort.Slice(claims, func(i, j int) bool {
			return claims[i].Property < claims[j].Property
		})
	}
	return groups
}

// CommonsTitle returns the Commons page title from the entity's sitelinks,
// e.g. "//commons.wikimedia.org/wiki/Category:Venus" -> "Category:Venus"
func (e Entity) CommonsTitle() (string, bool) {
	for _, link := range e.Sitelinks {
		if !isCommonsLink(link) {
			continue
		}
		idx := strings.LastIndex(link, "/")
		if idx < 0 || idx == len(link)-1 {
			continue
		}
		return PageTitleFromPath(link[idx+1:]), true
	}
	return "", false
}

func isCommonsLink(link string) bool {
	link = strings.TrimPrefix(link, "https:")
	link = strings.TrimPrefix(link, "http:")
	return strings.HasPrefix(link, "//commons.")
}
