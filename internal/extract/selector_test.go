package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longText(marker string, chars int) string {
	var sb strings.Builder
	sb.WriteString(marker)
	sb.WriteString(" ")
	for sb.Len() < chars {
		sb.WriteString("knowledge article body text ")
	}
	return sb.String()
}

func TestSelectMainContentPrefersArticleOverChrome(t *testing.T) {
	html := `<html><head><title>KB0010611 - Reset VPN token</title></head><body>
		<header>Portal Header Chrome</header>
		<nav>Home &gt; Knowledge &gt; Network</nav>
		<article><p>` + longText("ARTICLE", 600) + `</p></article>
		<footer>Copyright Portal Footer</footer>
	</body></html>`

	result, err := SelectMainContent(html)
	require.NoError(t, err)
	require.NotNil(t, result.Container)

	assert.Equal(t, "KB0010611 - Reset VPN token", result.Title)

	text := FlattenText(result.Container, "\n")
	assert.Contains(t, text, "ARTICLE")
	assert.NotContains(t, text, "Portal Header Chrome")
	assert.NotContains(t, text, "Network")
	assert.NotContains(t, text, "Portal Footer")
}

func TestSelectMainContentFallsBackToLargestBlock(t *testing.T) {
	// No priority selector matches with enough text; the fallback scan must
	// pick the div with the most text.
	html := `<html><head><title>t</title></head><body>
		<div id="small">tiny</div>
		<div id="big"><p>` + longText("BIG", 500) + `</p></div>
	</body></html>`

	result, err := SelectMainContent(html)
	require.NoError(t, err)
	require.NotNil(t, result.Container)

	assert.Contains(t, FlattenText(result.Container, "\n"), "BIG")
}

func TestSelectMainContentTieBreakKeepsFirst(t *testing.T) {
	// Two equally sized non-priority blocks: document order wins.
	filler := longText("SAME", 450)
	html := `<html><body>
		<div id="first"><span>` + filler + `</span></div>
		<div id="second"><span>` + filler + `</span></div>
	</body></html>`

	result, err := SelectMainContent(html)
	require.NoError(t, err)
	require.NotNil(t, result.Container)

	id, _ := result.Container.Attr("id")
	assert.Equal(t, "first", id)
}

func TestSelectMainContentReturnsBodyWhenNothingMatches(t *testing.T) {
	html := `<html><head><title>empty</title></head><body><span>just a span</span></body></html>`

	result, err := SelectMainContent(html)
	require.NoError(t, err)
	require.NotNil(t, result.Container, "container must never be nil")
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a  b\n\nc\td", "a b c d"},
		{"  leading and trailing  ", "leading and trailing"},
		{"", ""},
		{"single", "single"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CollapseWhitespace(tt.input))
	}
}
