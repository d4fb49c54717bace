// Package voters serves the voter register. Every read and write is narrowed
// by the caller's DUN scope before it reaches the store.
package voters

import (
	"strings"
	"time"

	"github.com/dunvault/dunvault/internal/shared"
)

// Tag is a canvassing outcome. A nil *Tag means untagged.
type Tag string

const (
	TagYes    Tag = "Yes"
	TagUnsure Tag = "Unsure"
	TagNo     Tag = "No"
)

// UntaggedFilter selects voters with no tag in list filters.
const UntaggedFilter = "untagged"

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// ParseTag accepts exactly one of the three tag values.
func ParseTag(value string) (Tag, error) {
	switch Tag(value) {
	case TagYes, TagUnsure, TagNo:
		return Tag(value), nil
	}
	return "", shared.InvalidInput("Tag must be one of Yes, Unsure, No or null")
}

// Voter is one register row.
type Voter struct {
	ID                int64      `json:"id"`
	Bil               int        `json:"bil"`
	NoKP              string     `json:"no_kp"`
	NoKPIDLain        *string    `json:"no_kp_id_lain"`
	Jantina           string     `json:"jantina"`
	TahunLahir        int        `json:"tahun_lahir"`
	NamaPemilih       string     `json:"nama_pemilih"`
	KodDaerahMengundi string     `json:"kod_daerah_mengundi"`
	DaerahMengundi    string     `json:"daerah_mengundi"`
	KodLokaliti       string     `json:"kod_lokaliti"`
	Lokaliti          string     `json:"lokaliti"`
	DUN               string     `json:"dun"`
	Tag               *Tag       `json:"tag"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// Filter is the raw list request.
type Filter struct {
	Name     string
	Gender   string
	Daerah   string
	Lokaliti string
	DUN      string
	Tag      string
	Limit    int
	Offset   int
}

// Query is a validated Filter. Untagged selects rows whose tag is NULL and
// takes precedence over Tag.
type Query struct {
	Name     string
	Gender   string
	Daerah   string
	Lokaliti string
	Tag      *Tag
	Untagged bool
	Window   shared.Window
}

// Normalize validates f. The DUN filter is not part of the query; it feeds
// the scope decision instead.
func (f Filter) Normalize() (Query, error) {
	q := Query{
		Name:     strings.TrimSpace(f.Name),
		Gender:   strings.TrimSpace(f.Gender),
		Daerah:   strings.TrimSpace(f.Daerah),
		Lokaliti: strings.TrimSpace(f.Lokaliti),
		Window:   shared.NewWindow(f.Limit, f.Offset, DefaultListLimit, MaxListLimit),
	}
	switch tag := strings.TrimSpace(f.Tag); {
	case tag == "":
	case strings.EqualFold(tag, UntaggedFilter):
		q.Untagged = true
	default:
		parsed, err := ParseTag(tag)
		if err != nil {
			return Query{}, shared.InvalidInput("Tag filter must be one of Yes, Unsure, No or untagged")
		}
		q.Tag = &parsed
	}
	return q, nil
}

// PagingInfo carries offset pagination metadata.
type PagingInfo struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasNext bool `json:"has_next"`
}

// Page is a window of voters.
type Page struct {
	Data   []Voter    `json:"data"`
	Count  int        `json:"count"`
	Paging PagingInfo `json:"paging"`
}

// TagCounts are raw aggregates over a scope.
type TagCounts struct {
	Total  int
	Yes    int
	Unsure int
	No     int
}

// Stats summarises tagging progress over a scope.
type Stats struct {
	DUN                string  `json:"dun"`
	Total              int     `json:"total"`
	Yes                int     `json:"yes"`
	YesPercentage      float64 `json:"yes_percentage"`
	Unsure             int     `json:"unsure"`
	UnsurePercentage   float64 `json:"unsure_percentage"`
	No                 int     `json:"no"`
	NoPercentage       float64 `json:"no_percentage"`
	Untagged           int     `json:"untagged"`
	UntaggedPercentage float64 `json:"untagged_percentage"`
}

// Column names a distinct-value listing.
type Column uint8

const (
	ColumnDaerah Column = iota + 1
	ColumnLokaliti
	ColumnDUN
)

func (c Column) sql() string {
	switch c {
	case ColumnDaerah:
		return "daerah_mengundi"
	case ColumnLokaliti:
		return "lokaliti"
	case ColumnDUN:
		return "dun"
	default:
		return ""
	}
}
