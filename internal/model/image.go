package model

// ImageStrategy names the source an entity image was found through
type ImageStrategy string

const (
	StrategyDirectFile              ImageStrategy = "direct-file"               // P18 image file
	StrategyGalleryTitle            ImageStrategy = "gallery-title"             // P935 Commons gallery page
	StrategySitelinkCommonsPage     ImageStrategy = "sitelink-commons-page"     // Commons sitelink to a gallery page
	StrategySitelinkCommonsCategory ImageStrategy = "sitelink-commons-category" // Commons sitelink to a category
	StrategyCategory                ImageStrategy = "category"                  // P373 Commons category
)

// Caption returns the human-readable origin shown in card diagnostics
func (s ImageStrategy) Caption() string {
	switch s {
	case StrategyDirectFile:
		return "Image (P18)"
	case StrategyGalleryTitle:
		return "Commons gallery (P935)"
	case StrategySitelinkCommonsPage, StrategySitelinkCommonsCategory:
		return "Sitelinks -- Commons"
	case StrategyCategory:
		return "Commons category (P373)"
	default:
		return string(s)
	}
}

// CommonsImage is one image found on Wikimedia Commons
type CommonsImage struct {
	URL     string `json:"url" yaml:"url"`                             // Thumbnail URL
	Title   string `json:"title,omitempty" yaml:"title,omitempty"`     // File page title, e.g. "File:Mars.jpg"
	Credit  string `json:"credit,omitempty" yaml:"credit,omitempty"`   // Artist/author, plain text
	License string `json:"license,omitempty" yaml:"license,omitempty"` // Short license name
}

// ImageResult is the single image chosen for an entity
type ImageResult struct {
	SourceURL string        `json:"source_url" yaml:"source_url"`
	Strategy  ImageStrategy `json:"strategy" yaml:"strategy"`
	Caption   string        `json:"caption" yaml:"caption"`
	FileTitle string        `json:"file_title,omitempty" yaml:"file_title,omitempty"`
	Credit    string        `json:"credit,omitempty" yaml:"credit,omitempty"`
	License   string        `json:"license,omitempty" yaml:"license,omitempty"`
}
