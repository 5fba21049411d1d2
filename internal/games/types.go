// Package games models per-page game settings and the saves captured for them.
//
// Records live in a store.Area keyed by the page URL. An Accessor binds one
// record, an Index mirrors every record, and a Service runs management edits.
package games

import (
	"errors"
	"fmt"
	"time"
)

// DefaultKey is the store key used when no page URL is known.
const DefaultKey = "default"

// DataType selects which clipboard contents qualify as a save.
type DataType string

const (
	DataTypeAny    DataType = "any"
	DataTypeJSON   DataType = "json"
	DataTypeBase64 DataType = "base64"
)

var (
	// ErrInvalidDataType is returned for a data type other than any, json or base64.
	ErrInvalidDataType = errors.New("invalid data type")

	// ErrGameNotFound is returned when no record exists for a URL.
	ErrGameNotFound = errors.New("game not found")

	// ErrSaveNotFound is returned for a save index outside a game's save list.
	ErrSaveNotFound = errors.New("save not found")

	// ErrEmptyURL is returned by operations that need a page URL.
	ErrEmptyURL = errors.New("game URL must not be empty")
)

// DataTypes lists the supported data types in display order.
var DataTypes = []DataType{DataTypeAny, DataTypeJSON, DataTypeBase64}

// Validate returns ErrInvalidDataType unless d is a supported data type.
func (d DataType) Validate() error {
	switch d {
	case DataTypeAny, DataTypeJSON, DataTypeBase64:
		return nil
	}
	return fmt.Errorf("%w: %q (expected any, json or base64)", ErrInvalidDataType, string(d))
}

// ParseDataType converts user input into a DataType.
func ParseDataType(s string) (DataType, error) {
	d := DataType(s)
	if err := d.Validate(); err != nil {
		return "", err
	}
	return d, nil
}

// Save is one captured clipboard payload.
type Save struct {
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"` // milliseconds since the Unix epoch
	Data      string `json:"data"`
}

// Time returns the capture time of the save.
func (s Save) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// GameSettings is the record stored for one page.
type GameSettings struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Favicon     string   `json:"favicon"`
	ShowFavicon bool     `json:"showFavicon"`
	Enabled     bool     `json:"enabled"`
	DataType    DataType `json:"dataType"`
	Saves       []Save   `json:"saves"`
}

// Default returns the record used for pages that have never been configured.
func Default() GameSettings {
	return GameSettings{
		ShowFavicon: true,
		Enabled:     false,
		DataType:    DataTypeAny,
		Saves:       []Save{},
	}
}

// DisplayName returns the name to show for a record stored under key.
func (g GameSettings) DisplayName(key string) string {
	if g.Name != "" {
		return g.Name
	}
	if g.URL != "" {
		return g.URL
	}
	return key
}

// LatestSave returns the most recent save, if any. Saves are kept newest first.
func (g GameSettings) LatestSave() (Save, bool) {
	if len(g.Saves) == 0 {
		return Save{}, false
	}
	return g.Saves[0], true
}

// PageMeta describes the page a game is played on. It is used to fill in a
// record the first time capture is enabled.
type PageMeta struct {
	URL     string
	Title   string
	Favicon string
}
