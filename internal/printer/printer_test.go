package printer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture redirects output for the duration of a test.
func capture(t *testing.T, input string) (out, errOut *bytes.Buffer) {
	t.Helper()
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}

	prevOut, prevErr, prevIn, prevNoColor := Out, ErrOut, In, color.NoColor
	Out, ErrOut, In = out, errOut, strings.NewReader(input)
	color.NoColor = true
	t.Cleanup(func() {
		Out, ErrOut, In, color.NoColor = prevOut, prevErr, prevIn, prevNoColor
	})
	return out, errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		_, errOut := capture(t, "")
		err := Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		assert.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "This is a test error")
	})

	t.Run("single suggestion is printed without numbering", func(t *testing.T) {
		_, errOut := capture(t, "")
		err := Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Error(t, err)
		assert.Contains(t, errOut.String(), "\nTry this fix\n")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		_, errOut := capture(t, "")
		err := Error("Test Error", "Explanation", []string{"First option", "Second option"})
		require.Error(t, err)
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	_, errOut := capture(t, "")
	err := ErrorWithContext("Test Error", "Explanation", map[string]string{
		"Profile": "default",
		"Game":    "https://example.com",
	}, []string{"Fix it"})

	require.Error(t, err)
	assert.Equal(t, "Test Error", err.Error())
	var reported *ReportedError
	assert.ErrorAs(t, err, &reported)
	report := errOut.String()
	assert.Less(t, strings.Index(report, "Game:"), strings.Index(report, "Profile:"), "context keys are sorted")
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"maybe\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			out, _ := capture(t, tt.input)
			assert.Equal(t, tt.want, Confirm(`Are you sure you want to delete "Game"?`))
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestSuccessAndWarningPrefixes(t *testing.T) {
	out, _ := capture(t, "")
	Success("Done\n")
	Success("✓ Already prefixed\n")
	Warning("Careful\n")

	assert.Equal(t, "✓ Done\n✓ Already prefixed\n⚠️  Careful\n", out.String())
}
