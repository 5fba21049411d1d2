// Package resolver turns user-supplied references into games and saves.
//
// Saves are referenced by 1-based position in the newest-first list or by
// name. Games are referenced by their URL or an unambiguous part of it.
package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/savestash/internal/games"
)

// maxListedMatches caps how many candidates an ambiguity report lists.
const maxListedMatches = 10

// NotFoundError indicates nothing matched the reference.
type NotFoundError struct {
	Kind string
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s found matching '%s'", e.Kind, e.Ref)
}

// AmbiguousError indicates several candidates matched the reference.
type AmbiguousError struct {
	Kind    string
	Ref     string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous %s reference '%s' matches %d %ss", e.Kind, e.Ref, len(e.Matches), e.Kind)
}

// ResolveSave returns the 0-based index of the save ref names. ref is either
// a position ("1" is the newest save) or a name. An exact name wins over a
// name prefix; a prefix must be unique.
func ResolveSave(saves []games.Save, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("save reference cannot be empty")
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(saves) {
			return n - 1, nil
		}
		// Fall through: numeric strings are also valid save names.
	}

	names := make([]string, len(saves))
	for i, s := range saves {
		names[i] = s.Name
	}

	i, err := match("save", ref, names)
	if err != nil {
		return 0, err
	}
	return i, nil
}

// ResolveGame returns the key among keys that ref identifies: the key itself,
// or the only key containing ref.
func ResolveGame(keys []string, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("game reference cannot be empty")
	}

	var matches []string
	for _, k := range keys {
		if k == ref {
			return k, nil
		}
		if strings.Contains(k, ref) {
			matches = append(matches, k)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Kind: "game", Ref: ref}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Kind: "game", Ref: ref, Matches: matches}
	}
}

func match(kind, ref string, names []string) (int, error) {
	var (
		prefixed []int
		exact    = -1
	)
	for i, name := range names {
		if name == ref {
			if exact >= 0 {
				return 0, &AmbiguousError{Kind: kind, Ref: ref, Matches: []string{names[exact], name}}
			}
			exact = i
			continue
		}
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(ref)) {
			prefixed = append(prefixed, i)
		}
	}

	if exact >= 0 {
		return exact, nil
	}

	switch len(prefixed) {
	case 0:
		return 0, &NotFoundError{Kind: kind, Ref: ref}
	case 1:
		return prefixed[0], nil
	default:
		matches := make([]string, len(prefixed))
		for j, i := range prefixed {
			matches[j] = fmt.Sprintf("#%d %s", i+1, names[i])
		}
		return 0, &AmbiguousError{Kind: kind, Ref: ref, Matches: matches}
	}
}

// FormatAmbiguousError creates a user-friendly listing of the candidates
// (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "'%s' matches %d %ss:\n", err.Ref, len(err.Matches), err.Kind)

	shown := min(len(err.Matches), maxListedMatches)
	for _, m := range err.Matches[:shown] {
		fmt.Fprintf(&b, "  %s\n", m)
	}
	if len(err.Matches) > shown {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-shown)
	}

	fmt.Fprintf(&b, "\nUse a longer reference to pick one %s.", err.Kind)
	return b.String()
}
