// Package watch streams store change batches to a terminal or a pipe.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/savestash/internal/games"
	"github.com/dyluth/savestash/internal/listing"
	"github.com/dyluth/savestash/pkg/store"
)

// OutputFormat specifies how change batches are written.
type OutputFormat string

const (
	// OutputFormatDefault writes one human-readable line per change
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON writes each batch as one JSON object per line
	OutputFormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates an --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputFormatDefault, OutputFormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format: %s (expected default or json)", s)
}

// jsonBatch is a batch stamped with the time it was received.
type jsonBatch struct {
	ReceivedAtMs int64 `json:"received_at_ms"`
	*store.ChangeBatch
}

// StreamChanges writes every batch from sub until ctx is done or the
// subscription ends. Decode errors from the feed are written inline and do
// not stop the stream.
func StreamChanges(ctx context.Context, sub *store.Subscription, format OutputFormat, w io.Writer) error {
	events, errs := sub.Events(), sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil

		case batch, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeBatch(w, batch, format, time.Now()); err != nil {
				return err
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if format == OutputFormatDefault {
				fmt.Fprintf(w, "⚠️  %v\n", err)
			}
		}
	}
}

func writeBatch(w io.Writer, batch *store.ChangeBatch, format OutputFormat, at time.Time) error {
	switch format {
	case OutputFormatJSON:
		data, err := json.Marshal(jsonBatch{ReceivedAtMs: at.UnixMilli(), ChangeBatch: batch})
		if err != nil {
			return fmt.Errorf("failed to marshal change batch: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	case OutputFormatDefault:
		stamp := at.Format("15:04:05")
		for _, change := range batch.Changes {
			if _, err := fmt.Fprintf(w, "[%s] %s\n", stamp, DescribeChange(change)); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown output format: %s", format)
}

// DescribeChange renders one change as a single line. Changes to game
// records are summarized field by field; anything else is shown raw.
func DescribeChange(change store.Change) string {
	if change.Removed() || store.IsFalsy(change.NewValue) {
		return fmt.Sprintf("🗑️  Removed %s", change.Key)
	}

	next, ok := decode(change.NewValue)
	if !ok {
		return fmt.Sprintf("✏️  Set %s = %s", change.Key, listing.FormatData(string(change.NewValue)))
	}

	prev, hadPrev := decode(change.OldValue)
	if len(change.OldValue) == 0 || !hadPrev {
		return fmt.Sprintf("✨ Added %s (capture %s, %s)", next.DisplayName(change.Key), listing.FormatState(next.Enabled), next.DataType)
	}

	if len(next.Saves) > len(prev.Saves) {
		if latest, ok := next.LatestSave(); ok {
			return fmt.Sprintf("💾 New save %q for %s (%d saves)", latest.Name, next.DisplayName(change.Key), len(next.Saves))
		}
	}

	diffs := diff(prev, next)
	if len(diffs) == 0 {
		return fmt.Sprintf("✏️  Rewrote %s (no visible changes)", next.DisplayName(change.Key))
	}
	return fmt.Sprintf("✏️  Updated %s: %s", next.DisplayName(change.Key), strings.Join(diffs, ", "))
}

func decode(raw json.RawMessage) (games.GameSettings, bool) {
	if len(raw) == 0 {
		return games.GameSettings{}, false
	}
	var gs games.GameSettings
	if err := json.Unmarshal(raw, &gs); err != nil {
		return games.GameSettings{}, false
	}
	return gs, true
}

func diff(prev, next games.GameSettings) []string {
	var out []string
	if prev.Name != next.Name {
		out = append(out, fmt.Sprintf("name %q→%q", prev.Name, next.Name))
	}
	if prev.URL != next.URL {
		out = append(out, fmt.Sprintf("url %s→%s", prev.URL, next.URL))
	}
	if prev.Enabled != next.Enabled {
		out = append(out, fmt.Sprintf("capture %s→%s", listing.FormatState(prev.Enabled), listing.FormatState(next.Enabled)))
	}
	if prev.DataType != next.DataType {
		out = append(out, fmt.Sprintf("type %s→%s", prev.DataType, next.DataType))
	}
	if prev.Favicon != next.Favicon {
		out = append(out, "favicon changed")
	}
	if prev.ShowFavicon != next.ShowFavicon {
		out = append(out, fmt.Sprintf("show favicon %t→%t", prev.ShowFavicon, next.ShowFavicon))
	}
	if len(prev.Saves) != len(next.Saves) {
		out = append(out, fmt.Sprintf("saves %d→%d", len(prev.Saves), len(next.Saves)))
	} else {
		for i := range next.Saves {
			if prev.Saves[i].Name != next.Saves[i].Name {
				out = append(out, fmt.Sprintf("save #%d renamed %q→%q", i+1, prev.Saves[i].Name, next.Saves[i].Name))
			}
		}
	}
	return out
}
