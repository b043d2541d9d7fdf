package models

// BlockType identifies the kind of content block in an output document.
type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockParagraph BlockType = "paragraph"
	BlockListItem  BlockType = "list_item"
	BlockImage     BlockType = "image"
)

// Block is a single unit of content in reading order. Which payload fields
// are meaningful depends on Type.
type Block struct {
	Type BlockType `json:"type"`

	// Heading
	Level int `json:"level,omitempty"` // 1..4

	// Heading, paragraph, list item, image placeholder
	Text string `json:"text,omitempty"`

	// List item
	Ordered bool `json:"ordered,omitempty"`

	// Image
	Data    []byte `json:"-"`
	Format  string `json:"format,omitempty"` // "png", "jpg", "gif", ...
	Caption string `json:"caption,omitempty"`
}

// OutputDocument is the portable representation of an extracted article:
// an ordered sequence of blocks plus the metadata needed to attribute it.
// Serialization to DOCX/PDF/markdown lives in the document package.
type OutputDocument struct {
	Title     string  `json:"title"`
	SourceURL string  `json:"source_url"`
	Blocks    []Block `json:"blocks"`
}

// AddHeading appends a heading block. Empty text is dropped.
func (d *OutputDocument) AddHeading(text string, level int) {
	if text == "" {
		return
	}
	d.Blocks = append(d.Blocks, Block{Type: BlockHeading, Level: level, Text: text})
}

// AddParagraph appends a paragraph block. Empty text is dropped.
func (d *OutputDocument) AddParagraph(text string) {
	if text == "" {
		return
	}
	d.Blocks = append(d.Blocks, Block{Type: BlockParagraph, Text: text})
}

// AddListItem appends a list item block. Empty text is dropped.
func (d *OutputDocument) AddListItem(text string, ordered bool) {
	if text == "" {
		return
	}
	d.Blocks = append(d.Blocks, Block{Type: BlockListItem, Text: text, Ordered: ordered})
}

// AddImage appends an image block with raw bytes and a format hint.
func (d *OutputDocument) AddImage(data []byte, format, caption string) {
	d.Blocks = append(d.Blocks, Block{Type: BlockImage, Data: data, Format: format, Caption: caption})
}

// ImageCount returns the number of embedded image blocks.
func (d *OutputDocument) ImageCount() int {
	n := 0
	for _, b := range d.Blocks {
		if b.Type == BlockImage {
			n++
		}
	}
	return n
}
