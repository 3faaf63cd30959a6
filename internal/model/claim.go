package model

import "strings"

// PropertyID is a Wikidata property identifier such as "P31"
type PropertyID string

// Properties the pipeline reads directly
const (
	PropInstanceOf      PropertyID = "P31"  // instance of
	PropSubclassOf      PropertyID = "P279" // subclass of
	PropPartOf          PropertyID = "P361" // part of
	PropPartOfSeries    PropertyID = "P179" // part of the series
	PropImage           PropertyID = "P18"  // image (Commons file name)
	PropCommonsGallery  PropertyID = "P935" // Commons gallery
	PropCommonsCategory PropertyID = "P373" // Commons category
	PropFreebaseID      PropertyID = "P646" // Freebase ID, the usual lone external id
)

// ValueSeparator joins the values of a multi-valued claim
const ValueSeparator = ", "

// Claim is one fact attached to an entity, flattened to text
type Claim struct {
	Property PropertyID    `json:"property" yaml:"property"`
	Datatype ClaimDatatype `json:"datatype" yaml:"datatype"`
	Label    string        `json:"label" yaml:"label"`                       // Property label, e.g. "instance of"
	Value    string        `json:"value" yaml:"value"`                       // Comma-joined textual value(s)
	Values   []string      `json:"values,omitempty" yaml:"values,omitempty"` // Underlying values before joining
}

// NewClaim builds a claim whose Value is the ", "-joined form of values
func NewClaim(prop PropertyID, datatype ClaimDatatype, label string, values []string) Claim {
	return Claim{
		Property: prop,
		Datatype: datatype,
		Label:    label,
		Value:    strings.Join(values, ValueSeparator),
		Values:   values,
	}
}

// SplitValues splits the flattened value on ", " and drops empty parts
func (c Claim) SplitValues() []string {
	if c.Value == "" {
		return nil
	}
	parts := strings.Split(c.Value, ValueSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// First returns the first underlying value. File names and page titles may
// themselves contain ", " so this prefers Values over splitting Value.
func (c Claim) First() string {
	if len(c.Values) > 0 {
		return c.Values[0]
	}
	if parts := c.SplitValues(); len(parts) > 0 {
		return parts[0]
	}
	return ""
}

// ClaimDatatype is the Wikidata datatype of a claim
type ClaimDatatype int

const (
	DatatypeUnknown ClaimDatatype = iota
	DatatypeWikibaseItem
	DatatypeTime
	DatatypeQuantity
	DatatypeGlobeCoordinate
	DatatypeString
	DatatypeMonolingualText
	DatatypeCommonsMedia
	DatatypeURL
	DatatypeWikibaseProperty
	DatatypeExternalID
)

var datatypeNames = map[ClaimDatatype]string{
	DatatypeWikibaseItem:     "wikibase-item",
	DatatypeTime:             "time",
	DatatypeQuantity:         "quantity",
	DatatypeGlobeCoordinate:  "globe-coordinate",
	DatatypeString:           "string",
	DatatypeMonolingualText:  "monolingualtext",
	DatatypeCommonsMedia:     "commonsMedia",
	DatatypeURL:              "url",
	DatatypeWikibaseProperty: "wikibase-property",
	DatatypeExternalID:       "external-id",
}

// ParseDatatype maps a Wikidata datatype string to a ClaimDatatype.
// The second return is false for datatypes the pipeline does not know.
func ParseDatatype(s string) (ClaimDatatype, bool) {
	for dt, name := range datatypeNames {
		if name == s {
			return dt, true
		}
	}
	// Wikidata spells these two differently in different payloads
	switch s {
	case "monolingual-text":
		return DatatypeMonolingualText, true
	case "commons-media":
		return DatatypeCommonsMedia, true
	}
	return DatatypeUnknown, false
}

func (d ClaimDatatype) String() string {
	if name, ok := datatypeNames[d]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the datatype by its Wikidata name
func (d ClaimDatatype) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a Wikidata datatype name; unknown names decode to DatatypeUnknown
func (d *ClaimDatatype) UnmarshalText(text []byte) error {
	*d, _ = ParseDatatype(string(text))
	return nil
}

// DisplayGroup is the section of a card a claim is shown in
type DisplayGroup string

const (
	GroupHidden  DisplayGroup = "hidden"
	GroupFacts   DisplayGroup = "facts" // items, strings, text
	GroupDates   DisplayGroup = "dates"
	GroupMeasure DisplayGroup = "measures"
	GroupPlace   DisplayGroup = "places"
	GroupMedia   DisplayGroup = "media"
	GroupLinks   DisplayGroup = "links"
)

// hiddenProperties are identifier-like properties never worth a row on a card
var hiddenProperties = map[PropertyID]bool{
	"P1005": true, "P1006": true, "P1014": true, "P1015": true, "P1017": true, "P1036": true, "P1047": true,
	"P1051": true, "P107": true, "P1157": true, "P1185": true, "P1207": true, "P1222": true, "P1245": true,
	"P1248": true, "P1256": true, "P1263": true, "P1273": true, "P1280": true, "P1284": true, "P1296": true,
	"P1309": true, "P1343": true, "P1367": true, "P1368": true, "P1375": true, "P1415": true, "P1417": true,
	"P1421": true, "P1422": true, "P1430": true, "P1438": true, "P1566": true, "P1667": true, "P1670": true,
	"P1695": true, "P1711": true, "P1727": true, "P1741": true, "P1745": true, "P1747": true, "P1749": true,
	"P1761": true, "P1772": true, "P18": true, "P1816": true, "P1819": true, "P1839": true, "P1842": true,
	"P1895": true, "P1935": true, "P1939": true, "P1964": true, "P212": true, "P213": true, "P214": true,
	"P227": true, "P231": true, "P243": true, "P244": true, "P245": true, "P268": true, "P269": true,
	"P270": true, "P271": true, "P279": true, "P281": true, "P297": true, "P298": true, "P299": true,
	"P300": true, "P31": true, "P345": true, "P349": true, "P361": true, "P373": true, "P396": true,
	"P407": true, "P409": true, "P424": true, "P434": true, "P435": true, "P436": true, "P496": true,
	"P502": true, "P508": true, "P535": true, "P549": true, "P590": true, "P592": true, "P627": true,
	"P635": true, "P646": true, "P649": true, "P650": true, "P661": true, "P662": true, "P665": true,
	"P683": true, "P685": true, "P691": true, "P715": true, "P815": true, "P829": true, "P830": true,
	"P842": true, "P846": true, "P850": true, "P865": true, "P866": true, "P882": true, "P883": true,
	"P901": true, "P902": true, "P906": true, "P910": true, "P935": true, "P947": true, "P949": true,
	"P950": true, "P951": true, "P957": true, "P960": true, "P961": true, "P966": true, "P982": true,
	"P998": true,
}

// DisplayGroupOf returns where a claim belongs on a card
func DisplayGroupOf(c Claim) DisplayGroup {
	if hiddenProperties[c.Property] {
		return GroupHidden
	}

	switch c.Datatype {
	case DatatypeWikibaseItem, DatatypeString, DatatypeMonolingualText:
		return GroupFacts
	case DatatypeTime:
		return GroupDates
	case DatatypeQuantity:
		return GroupMeasure
	case DatatypeGlobeCoordinate:
		return GroupPlace
	case DatatypeCommonsMedia:
		return GroupMedia
	case DatatypeURL:
		return GroupLinks
	case DatatypeWikibaseProperty, DatatypeExternalID, DatatypeUnknown:
		return GroupHidden
	}
	return GroupHidden
}
