package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/kapture/internal/images"
	"github.com/ternarybob/kapture/internal/models"
)

type fakeResolver struct {
	bySrc map[string][]byte
}

func (f *fakeResolver) Resolve(ctx context.Context, src, baseURL string) (*images.ResolvedImage, error) {
	if data, ok := f.bySrc[src]; ok {
		return &images.ResolvedImage{Data: data, Format: "png"}, nil
	}
	return nil, errors.New("not found")
}

func container(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Find("#root")
}

func TestBuildEmitsBlocksInReadingOrder(t *testing.T) {
	html := `<div id="root">
		<h2>Resolution</h2>
		<p>Restart the service. <img src="/img/step1.png" alt="Step one"></p>
		<ul><li>First step</li><li>Second step</li></ul>
	</div>`

	resolver := &fakeResolver{bySrc: map[string][]byte{
		"/img/step1.png": []byte("imagebytes"),
	}}
	b := NewBuilder(resolver, nil)

	doc := b.Build(context.Background(), container(t, html), "KB0001", "https://portal.example.com/kb_view.do")

	require.Len(t, doc.Blocks, 5)

	assert.Equal(t, models.BlockHeading, doc.Blocks[0].Type)
	assert.Equal(t, 2, doc.Blocks[0].Level)
	assert.Equal(t, "Resolution", doc.Blocks[0].Text)

	assert.Equal(t, models.BlockParagraph, doc.Blocks[1].Type)
	assert.Equal(t, "Restart the service.", doc.Blocks[1].Text)

	assert.Equal(t, models.BlockImage, doc.Blocks[2].Type)
	assert.Equal(t, []byte("imagebytes"), doc.Blocks[2].Data)
	assert.Equal(t, "Step one", doc.Blocks[2].Caption)

	assert.Equal(t, models.BlockListItem, doc.Blocks[3].Type)
	assert.Equal(t, "First step", doc.Blocks[3].Text)
	assert.False(t, doc.Blocks[3].Ordered)
	assert.Equal(t, "Second step", doc.Blocks[4].Text)
}

func TestBuildHeadingLevelClamp(t *testing.T) {
	html := `<div id="root"><h5>Deep</h5><h6>Deeper</h6></div>`
	b := NewBuilder(nil, nil)

	doc := b.Build(context.Background(), container(t, html), "", "")

	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, 4, doc.Blocks[0].Level)
	assert.Equal(t, 4, doc.Blocks[1].Level)
}

func TestBuildOrderedList(t *testing.T) {
	html := `<div id="root"><ol><li>One</li><li>Two</li></ol></div>`
	b := NewBuilder(nil, nil)

	doc := b.Build(context.Background(), container(t, html), "", "")

	require.Len(t, doc.Blocks, 2)
	for _, blk := range doc.Blocks {
		assert.Equal(t, models.BlockListItem, blk.Type)
		assert.True(t, blk.Ordered)
	}
}

func TestBuildNestedListDirectItemsOnly(t *testing.T) {
	// Only direct li children of the list element count; the nested list's
	// items surface through recursion into the parent li's text.
	html := `<div id="root"><ul><li>Outer</li></ul><div><ul><li>Inner</li></ul></div></div>`
	b := NewBuilder(nil, nil)

	doc := b.Build(context.Background(), container(t, html), "", "")

	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "Outer", doc.Blocks[0].Text)
	assert.Equal(t, "Inner", doc.Blocks[1].Text)
}

func TestBuildUnresolvedImagePlaceholder(t *testing.T) {
	html := `<div id="root"><img src="/img/gone.png" alt="Missing"></div>`
	b := NewBuilder(&fakeResolver{}, nil)

	doc := b.Build(context.Background(), container(t, html), "", "https://portal.example.com")

	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, models.BlockParagraph, doc.Blocks[0].Type)
	assert.Equal(t, ImagePlaceholder+" Missing", doc.Blocks[0].Text)
	assert.Equal(t, 0, doc.ImageCount())
}

func TestBuildTableFlattened(t *testing.T) {
	html := `<div id="root"><table>
		<tr><th>Key</th><th>Value</th></tr>
		<tr><td>Host</td><td>portal.example.com</td></tr>
	</table></div>`
	b := NewBuilder(nil, nil)

	doc := b.Build(context.Background(), container(t, html), "", "")

	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, models.BlockParagraph, doc.Blocks[0].Type)
	assert.Equal(t, "Key\nValue\nHost\nportal.example.com", doc.Blocks[0].Text)
}

func TestBuildRecursesWrapperDivs(t *testing.T) {
	html := `<div id="root"><div class="wrapper"><div><p>Buried text</p></div></div></div>`
	b := NewBuilder(nil, nil)

	doc := b.Build(context.Background(), container(t, html), "", "")

	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "Buried text", doc.Blocks[0].Text)
}

func TestBuildDropsEmptyText(t *testing.T) {
	html := `<div id="root"><p>   </p><h3></h3><ul><li>  </li></ul></div>`
	b := NewBuilder(nil, nil)

	doc := b.Build(context.Background(), container(t, html), "", "")

	assert.Empty(t, doc.Blocks)
}
