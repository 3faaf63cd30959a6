package wiki

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/cardset/internal/model"
)

const (
	thumbnailWidth     = 300
	categoryImageLimit = 5 // Extra candidates in case the first are ruled out
	filePrefix         = "File:"
)

// nonEntityImages are substrings of navigation and boilerplate images
// (project logos, file-type icons, badges) that never depict an entity
var nonEntityImages = []string{
	"WIKISPECIES-LOGO",
	"SUB-ARROWS",
	"SYSTEM-SEARCH",
	"WIKIPEDIA-LOGO",
	"WIKIDATA-LOGO",
	"WIKINEWS-LOGO",
	"FILEICON-OGG",
	"DISAMBIG",
	"IUCN_3_1",
	"-NO-IMAGE",
	"LOGO",
	"ICON",
}

// isEntityImage reports whether an image URL or file title may depict an entity
func isEntityImage(s string) bool {
	upper := strings.ToUpper(s)
	for _, deny := range nonEntityImages {
		if strings.Contains(upper, deny) {
			return false
		}
	}
	return true
}

type extMetadata struct {
	Artist           *struct{ Value string } `json:"Artist"`
	LicenseShortName *struct{ Value string } `json:"LicenseShortName"`
}

type imageInfo struct {
	ThumbURL    string       `json:"thumburl"`
	URL         string       `json:"url"`
	ExtMetadata *extMetadata `json:"extmetadata"`
}

type commonsPage struct {
	PageID    int    `json:"pageid"`
	Title     string `json:"title"`
	Missing   bool   `json:"missing"`
	Invalid   bool   `json:"invalid"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
	ImageInfo []imageInfo `json:"imageinfo"`
}

type commonsResponse struct {
	Query *struct {
		Pages []commonsPage `json:"pages"`
	} `json:"query"`
}

// FetchImageByFile resolves a Commons file name (as in P18) to its thumbnail
func (r *Remote) FetchImageByFile(ctx context.Context, fileName string) (model.CommonsImage, error) {
	fileName = strings.TrimPrefix(fileName, filePrefix)
	if fileName == "" {
		return model.CommonsImage{}, ErrNotFound
	}

	var resp commonsResponse
	err := r.client.getJSON(ctx, request{
		service:   "commons",
		operation: "image_by_file",
		endpoint:  r.endpoints.Commons,
		params: url.Values{
			"action":              {"query"},
			"titles":              {filePrefix + fileName},
			"prop":                {"pageimages|imageinfo"},
			"pithumbsize":         {strconv.Itoa(thumbnailWidth)},
			"iiprop":              {"extmetadata"},
			"iiextmetadatafilter": {"Artist|LicenseShortName"},
		},
	}, &resp)
	if err != nil {
		return model.CommonsImage{}, err
	}

	return pickImage(resp, fileName, pageThumbnail)
}

// FetchImageByTitle returns an image shown on a Commons gallery page
func (r *Remote) FetchImageByTitle(ctx context.Context, pageTitle string) (model.CommonsImage, error) {
	if pageTitle == "" {
		return model.CommonsImage{}, ErrNotFound
	}

	var resp commonsResponse
	err := r.client.getJSON(ctx, request{
		service:   "commons",
		operation: "image_by_title",
		endpoint:  r.endpoints.Commons,
		params: url.Values{
			"action":              {"query"},
			"titles":              {pageTitle},
			"generator":           {"images"},
			"gimlimit":            {"1"},
			"prop":                {"pageimages|imageinfo"},
			"pithumbsize":         {strconv.Itoa(thumbnailWidth)},
			"iiprop":              {"extmetadata"},
			"iiextmetadatafilter": {"Artist|LicenseShortName"},
		},
	}, &resp)
	if err != nil {
		return model.CommonsImage{}, err
	}

	return pickImage(resp, pageTitle, pageThumbnail)
}

// FetchImageByCategory returns an image filed in a Commons category
func (r *Remote) FetchImageByCategory(ctx context.Context, category string) (model.CommonsImage, error) {
	category = model.StripCategoryPrefix(category)
	if category == "" {
		return model.CommonsImage{}, ErrNotFound
	}

	var resp commonsResponse
	err := r.client.getJSON(ctx, request{
		service:   "commons",
		operation: "image_by_category",
		endpoint:  r.endpoints.Commons,
		params: url.Values{
			"action":              {"query"},
			"generator":           {"categorymembers"},
			"gcmtitle":            {model.CategoryPrefix + category},
			"gcmprop":             {"title"},
			"gcmtype":             {"file"},
			"gcmlimit":            {strconv.Itoa(categoryImageLimit)},
			"prop":                {"imageinfo"},
			"iiprop":              {"url|extmetadata"},
			"iiextmetadatafilter": {"Artist|LicenseShortName"},
			"iilimit":             {"1"},
			"iiurlwidth":          {strconv.Itoa(thumbnailWidth)},
		},
	}, &resp)
	if err != nil {
		return model.CommonsImage{}, err
	}

	return pickImage(resp, category, infoThumbnail)
}

// pageThumbnail reads the pageimages thumbnail
func pageThumbnail(p commonsPage) string {
	if p.Thumbnail == nil {
		return ""
	}
	return p.Thumbnail.Source
}

// infoThumbnail reads the imageinfo thumbnail
func infoThumbnail(p commonsPage) string {
	if len(p.ImageInfo) == 0 {
		return ""
	}
	return p.ImageInfo[0].ThumbURL
}

// pickImage returns the first acceptable image in page id order.
// No candidate at all is ErrNotFound; only disallowed candidates is ErrNoAcceptableResult.
func pickImage(resp commonsResponse, input string, thumb func(commonsPage) string) (model.CommonsImage, error) {
	if resp.Query == nil {
		return model.CommonsImage{}, fmt.Errorf("%q: %w", input, ErrNotFound)
	}

	pages := make([]commonsPage, 0, len(resp.Query.Pages))
	for _, p := range resp.Query.Pages {
		if p.Missing || p.Invalid || thumb(p) == "" {
			continue
		}
		pages = append(pages, p)
	}
	if len(pages) == 0 {
		return model.CommonsImage{}, fmt.Errorf("%q: %w", input, ErrNotFound)
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].PageID < pages[j].PageID })

	for _, p := range pages {
		src := thumb(p)
		if !isEntityImage(src) || !isEntityImage(p.Title) {
			continue
		}

		img := model.CommonsImage{URL: src, Title: p.Title}
		if len(p.ImageInfo) > 0 && p.ImageInfo[0].ExtMetadata != nil {
			meta := p.ImageInfo[0].ExtMetadata
			if meta.Artist != nil {
				img.Credit = plainText(meta.Artist.Value)
			}
			if meta.LicenseShortName != nil {
				img.License = plainText(meta.LicenseShortName.Value)
			}
		}
		return img, nil
	}

	return model.CommonsImage{}, fmt.Errorf("%q: %w", input, ErrNoAcceptableResult)
}
