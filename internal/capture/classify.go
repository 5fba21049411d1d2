// Package capture turns copy events into saves.
//
// A Listener watches a Clipboard, checks the bound game's settings on every
// copy and appends the clipboard text as a save when it matches the game's
// data type.
package capture

import (
	"encoding/base64"
	"encoding/json"

	"github.com/dyluth/savestash/internal/games"
)

// Classify reports whether text qualifies as save data for dataType and
// returns the text unchanged when it does. Empty text never qualifies.
func Classify(dataType games.DataType, text string) (string, bool) {
	if text == "" {
		return "", false
	}

	switch dataType {
	case games.DataTypeAny:
		return text, true
	case games.DataTypeJSON:
		if IsJSON(text) {
			return text, true
		}
	case games.DataTypeBase64:
		if IsBase64(text) {
			return text, true
		}
	}
	return "", false
}

// IsJSON reports whether text parses as a single JSON value.
func IsJSON(text string) bool {
	return json.Valid([]byte(text))
}

// IsBase64 reports whether text is canonical padded standard Base64: decoding
// and re-encoding it must reproduce the input exactly.
func IsBase64(text string) bool {
	decoded, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return false
	}
	return base64.StdEncoding.EncodeToString(decoded) == text
}
