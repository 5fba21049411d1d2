package games

import (
	"slices"
	"strconv"

	"github.com/dyluth/savestash/internal/binding"
)

// Update is a pending change to a game record.
type Update = binding.Update[GameSettings]

// The constructors below build updates for a bound GameSettings. Each returns
// a modified copy and never mutates the previous value's save slice.

// Rename sets the display name.
func Rename(name string) Update {
	name = SanitizeName(name)
	return binding.Apply(func(prev GameSettings) GameSettings {
		prev.Name = name
		return prev
	})
}

// SetPageURL changes the URL shown for a game. The record stays under its
// original key.
func SetPageURL(url string) Update {
	return binding.Apply(func(prev GameSettings) GameSettings {
		prev.URL = url
		return prev
	})
}

// SetFavicon sets the favicon URL.
func SetFavicon(favicon string) Update {
	return binding.Apply(func(prev GameSettings) GameSettings {
		prev.Favicon = favicon
		return prev
	})
}

// SetShowFavicon sets whether the favicon is displayed.
func SetShowFavicon(show bool) Update {
	return binding.Apply(func(prev GameSettings) GameSettings {
		prev.ShowFavicon = show
		return prev
	})
}

// SetEnabled turns capture on or off. Turning it on backfills empty page
// details from meta.
func SetEnabled(enabled bool, meta PageMeta) Update {
	return binding.Apply(func(prev GameSettings) GameSettings {
		prev.Enabled = enabled
		if enabled {
			prev = backfill(prev, meta)
		}
		return prev
	})
}

// Toggle flips capture on or off, backfilling like SetEnabled.
func Toggle(meta PageMeta) Update {
	return binding.Apply(func(prev GameSettings) GameSettings {
		return SetEnabled(!prev.Enabled, meta).Resolve(prev)
	})
}

// SetDataType selects which clipboard contents are captured. The caller is
// expected to have validated dt.
func SetDataType(dt DataType) Update {
	return binding.Apply(func(prev GameSettings) GameSettings {
		prev.DataType = dt
		return prev
	})
}

// AppendSave records data captured at timestamp (epoch milliseconds). The
// save is named after its ordinal position and the list is re-sorted newest
// first, keeping insertion order for equal timestamps.
func AppendSave(data string, timestamp int64) Update {
	return binding.Apply(func(prev GameSettings) GameSettings {
		saves := make([]Save, 0, len(prev.Saves)+1)
		saves = append(saves, prev.Saves...)
		saves = append(saves, Save{
			Name:      strconv.Itoa(len(prev.Saves) + 1),
			Timestamp: timestamp,
			Data:      data,
		})
		slices.SortStableFunc(saves, func(a, b Save) int {
			switch {
			case a.Timestamp > b.Timestamp:
				return -1
			case a.Timestamp < b.Timestamp:
				return 1
			}
			return 0
		})
		prev.Saves = saves
		return prev
	})
}

// RenameSave renames the save at index. Out-of-range indices leave the value unchanged.
func RenameSave(index int, name string) Update {
	name = SanitizeName(name)
	return binding.Apply(func(prev GameSettings) GameSettings {
		if index < 0 || index >= len(prev.Saves) {
			return prev
		}
		saves := slices.Clone(prev.Saves)
		saves[index].Name = name
		prev.Saves = saves
		return prev
	})
}

// DeleteSave removes the save at index. Out-of-range indices leave the value unchanged.
func DeleteSave(index int) Update {
	return binding.Apply(func(prev GameSettings) GameSettings {
		if index < 0 || index >= len(prev.Saves) {
			return prev
		}
		saves := make([]Save, 0, len(prev.Saves)-1)
		saves = append(saves, prev.Saves[:index]...)
		saves = append(saves, prev.Saves[index+1:]...)
		prev.Saves = saves
		return prev
	})
}

func backfill(g GameSettings, meta PageMeta) GameSettings {
	if g.Name == "" {
		g.Name = SanitizeName(meta.Title)
	}
	if g.URL == "" {
		g.URL = meta.URL
	}
	if g.Favicon == "" {
		g.Favicon = meta.Favicon
	}
	return g
}
