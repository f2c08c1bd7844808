package collection

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/spiderlog/internal/feeding"
)

// IndividualType is the sex of a spider as far as the keeper knows it.
type IndividualType string

const (
	Male    IndividualType = "male"
	Female  IndividualType = "female"
	Unknown IndividualType = "unknown"
)

// ParseIndividualType validates s. An empty value means Unknown.
func ParseIndividualType(s string) (IndividualType, error) {
	switch t := IndividualType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return Unknown, nil
	case Male, Female, Unknown:
		return t, nil
	default:
		return "", fmt.Errorf("unknown individual type %q (want male, female or unknown)", s)
	}
}

// Spider is one animal with its derived status and, when loaded through
// GetSpider, its history and documents.
type Spider struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Age              string            `json:"age,omitempty"`
	SpeciesID        *int64            `json:"species_id,omitempty"`
	SpeciesName      string            `json:"species_name,omitempty"`
	IndividualType   IndividualType    `json:"individual_type"`
	LastFed          string            `json:"last_fed,omitempty"`
	FeedingFrequency feeding.Frequency `json:"feeding_frequency,omitempty"`
	LastMolt         string            `json:"last_molt,omitempty"`
	ImageURI         string            `json:"image_uri,omitempty"`
	IsFavourite      bool              `json:"is_favourite"`
	Status           feeding.Status    `json:"status,omitempty"`
	NextFeedingDate  string            `json:"next_feeding_date,omitempty"`
	FeedingHistory   []string          `json:"feeding_history,omitempty"`
	MoltingHistory   []string          `json:"molting_history,omitempty"`
	Documents        []Document        `json:"documents,omitempty"`
}

// Species is a catalogue entry referenced by spiders.
type Species struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Document is a reference attached to a spider.
type Document struct {
	ID       int64  `json:"id"`
	SpiderID string `json:"spider_id"`
	URI      string `json:"uri"`
}

// NewSpider holds the input for AddSpider. Dates use the canonical layout.
type NewSpider struct {
	// ID is generated from the creation time when empty.
	ID               string
	Name             string
	Age              string
	SpeciesID        *int64
	IndividualType   IndividualType
	LastFed          string
	FeedingFrequency feeding.Frequency
	LastMolt         string
	ImageURI         string
	IsFavourite      bool
	Documents        []string
}

// SpiderUpdate holds partial update fields. Nil fields are left unchanged;
// empty LastFed/LastMolt are treated as not supplied.
type SpiderUpdate struct {
	Name             *string
	Age              *string
	SpeciesID        *int64
	ClearSpecies     bool
	IndividualType   *IndividualType
	LastFed          *string
	FeedingFrequency *feeding.Frequency
	LastMolt         *string
	ImageURI         *string
	IsFavourite      *bool
	AddDocuments     []string
}

// UpdateResult reports what an update actually changed.
type UpdateResult struct {
	Spider *Spider `json:"spider"`
	// FeedingAdded is false when the submitted feeding date was already
	// in the history (or none was submitted).
	FeedingAdded bool `json:"feeding_added"`
	MoltAdded    bool `json:"molt_added"`
	// DocumentsRejected lists URIs refused by the per-spider cap.
	DocumentsRejected []string `json:"documents_rejected,omitempty"`
}

// SortKey selects the ListSpiders ordering.
type SortKey string

const (
	SortByName        SortKey = "name"
	SortByLastFed     SortKey = "last_fed"
	SortByNextFeeding SortKey = "next_feeding"
	SortByStatus      SortKey = "status"
	SortBySpecies     SortKey = "species"
)

// ParseSortKey validates s. Empty means SortByName.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortByName, nil
	case SortByName, SortByLastFed, SortByNextFeeding, SortByStatus, SortBySpecies:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// ListOptions filters and orders ListSpiders.
type ListOptions struct {
	// Query matches a substring of the name, case-insensitively.
	Query          string
	SpeciesID      *int64
	FavouritesOnly bool
	// Status keeps only spiders whose derived status matches.
	Status     feeding.Status
	SortBy     SortKey
	Descending bool
	Limit      int
}

// Stats holds aggregate collection counts.
type Stats struct {
	Spiders    int `json:"spiders"`
	Favourites int `json:"favourites"`
	Species    int `json:"species"`
	Feedings   int `json:"feedings"`
	Molts      int `json:"molts"`
	Documents  int `json:"documents"`
}
