package wiki

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/cardset/internal/model"
)

const (
	categoryNamespace    = 14
	searchLimit          = 10
	categoryMembersLimit = 200
	subcategoryLimit     = 20
	pageCategoriesLimit  = 10
)

// titleDenyPrefixes are page titles that never make a card
var titleDenyPrefixes = []string{
	"List of",
	"Lists of",
	"Definition of",
	"Timeline of",
	"Gallery of",
	"Template:",
	"Comparison of",
	"Portal:",
}

// isTitleCard reports whether a category member page can be a card
func isTitleCard(title string) bool {
	for _, prefix := range titleDenyPrefixes {
		if strings.HasPrefix(title, prefix) {
			return false
		}
	}
	return true
}

type titleRef struct {
	NS    int    `json:"ns"`
	Title string `json:"title"`
}

type searchResponse struct {
	Query struct {
		SearchInfo struct {
			TotalHits  int    `json:"totalhits"`
			Suggestion string `json:"suggestion"`
		} `json:"searchinfo"`
		Search []titleRef `json:"search"`
	} `json:"query"`
}

type categoryMembersResponse struct {
	Query struct {
		CategoryMembers []titleRef `json:"categorymembers"`
	} `json:"query"`
}

type pageCategoriesResponse struct {
	Query struct {
		Pages []struct {
			Title      string     `json:"title"`
			Missing    bool       `json:"missing"`
			Invalid    bool       `json:"invalid"`
			Categories []titleRef `json:"categories"`
		} `json:"pages"`
	} `json:"query"`
}

// SearchCategories searches the category namespace, preserving server rank order.
// With zero hits the search's spelling suggestion becomes the single candidate.
func (r *Remote) SearchCategories(ctx context.Context, term string) ([]model.CategoryCandidate, error) {
	if term == "" {
		return []model.CategoryCandidate{}, nil
	}

	var resp searchResponse
	err := r.client.getJSON(ctx, request{
		service:   "wikipedia",
		operation: "search_categories",
		endpoint:  r.endpoints.Wikipedia,
		params: url.Values{
			"action":      {"query"},
			"list":        {"search"},
			"srsearch":    {term},
			"srnamespace": {strconv.Itoa(categoryNamespace)},
			"srlimit":     {strconv.Itoa(searchLimit)},
			"srprop":      {""},
			"srinfo":      {"suggestion"},
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.CategoryCandidate, 0, len(resp.Query.Search))
	for _, hit := range resp.Query.Search {
		title := model.StripCategoryPrefix(hit.Title)
		candidates = append(candidates, model.CategoryCandidate{
			Title:                 title,
			MatchedFromExactQuery: title == term,
		})
	}

	if len(candidates) == 0 && resp.Query.SearchInfo.Suggestion != "" {
		title := model.CapFirst(model.StripCategoryPrefix(resp.Query.SearchInfo.Suggestion))
		candidates = append(candidates, model.CategoryCandidate{
			Title:                  title,
			MatchedFromExactQuery:  title == term,
			FromSpellingSuggestion: true,
		})
	}

	return candidates, nil
}

// ListCategoryMembers returns the cardable page titles in a category, sorted and de-duplicated
func (r *Remote) ListCategoryMembers(ctx context.Context, category string) ([]string, error) {
	category = model.StripCategoryPrefix(category)
	if category == "" {
		return []string{}, nil
	}
	catTitle := model.CategoryPrefix + category

	var resp categoryMembersResponse
	err := r.client.getJSON(ctx, request{
		service:   "wikipedia",
		operation: "category_members",
		endpoint:  r.endpoints.Wikipedia,
		params: url.Values{
			"action":  {"query"},
			"list":    {"categorymembers"},
			"cmtitle": {catTitle},
			"cmprop":  {"title"},
			"cmlimit": {strconv.Itoa(categoryMembersLimit)},
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(resp.Query.CategoryMembers))
	for _, member := range resp.Query.CategoryMembers {
		// A set of "Jasminum" cards shouldn't include one called "Jasminum"
		if member.Title == catTitle {
			continue
		}
		title := model.StripCategoryPrefix(member.Title)
		if !isTitleCard(title) {
			continue
		}
		titles = append(titles, title)
	}

	return sortedUnique(titles), nil
}

// ListSubcategories returns the subcategories of a category, without "Category:"
func (r *Remote) ListSubcategories(ctx context.Context, category string) ([]string, error) {
	category = model.StripCategoryPrefix(category)
	if category == "" {
		return []string{}, nil
	}

	var resp categoryMembersResponse
	err := r.client.getJSON(ctx, request{
		service:   "wikipedia",
		operation: "subcategories",
		endpoint:  r.endpoints.Wikipedia,
		params: url.Values{
			"action":      {"query"},
			"list":        {"categorymembers"},
			"cmtitle":     {model.CategoryPrefix + category},
			"cmtype":      {"subcat"},
			"cmnamespace": {strconv.Itoa(categoryNamespace)},
			"cmlimit":     {strconv.Itoa(subcategoryLimit)},
			"cmprop":      {"title"},
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	return stripAll(resp.Query.CategoryMembers), nil
}

// ListPageCategories returns the non-hidden categories of a page, following redirects.
// A missing page yields an empty list, not an error.
func (r *Remote) ListPageCategories(ctx context.Context, page string) ([]string, error) {
	if page == "" || page == model.CategoryPrefix {
		return []string{}, nil
	}

	var resp pageCategoriesResponse
	err := r.client.getJSON(ctx, request{
		service:   "wikipedia",
		operation: "page_categories",
		endpoint:  r.endpoints.Wikipedia,
		params: url.Values{
			"action":    {"query"},
			"prop":      {"categories"},
			"titles":    {page},
			"clshow":    {"!hidden"},
			"cllimit":   {strconv.Itoa(pageCategoriesLimit)},
			"redirects": {"1"},
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	for _, p := range resp.Query.Pages {
		if p.Missing || p.Invalid {
			continue
		}
		return stripAll(p.Categories), nil
	}
	return []string{}, nil
}

func stripAll(refs []titleRef) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, model.StripCategoryPrefix(ref.Title))
	}
	return out
}

func sortedUnique(titles []string) []string {
	sort.Strings(titles)
	out := titles[:0]
	for _, t := range titles {
		if len(out) > 0 && t == out[len(out)-1] {
			continue
		}
		out = append(out, t)
	}
	return out
}
