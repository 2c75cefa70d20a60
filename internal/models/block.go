package models

import (
	"github.com/cockroachdb/errors"
)

// BlockType tags the variant of an OCR block.
type BlockType string

const (
	BlockPage        BlockType = "PAGE"
	BlockLine        BlockType = "LINE"
	BlockWord        BlockType = "WORD"
	BlockTable       BlockType = "TABLE"
	BlockCell        BlockType = "CELL"
	BlockQuery       BlockType = "QUERY"
	BlockQueryResult BlockType = "QUERY_RESULT"
)

// RelationType tags a relationship edge between blocks.
type RelationType string

const (
	RelationChild  RelationType = "CHILD"
	RelationAnswer RelationType = "ANSWER"
)

// ErrInvalidBlock marks a block rejected at ingestion.
var ErrInvalidBlock = errors.New("invalid block")

// BoundingBox is expressed as ratios of the page size (0..1).
type BoundingBox struct {
	Width  float64 `json:"Width"`
	Height float64 `json:"Height"`
	Left   float64 `json:"Left"`
	Top    float64 `json:"Top"`
}

type Geometry struct {
	BoundingBox *BoundingBox `json:"BoundingBox,omitempty"`
}

type Relationship struct {
	Type RelationType `json:"Type"`
	IDs  []string     `json:"Ids"`
}

// Query is the question attached to a QUERY block.
type Query struct {
	Text  string   `json:"Text"`
	Alias string   `json:"Alias,omitempty"`
	Pages []string `json:"Pages,omitempty"`
}

// Block is one OCR unit returned by the document analysis service. Fields that only apply to
// some variants (cell coordinates, query) are zero for the others. Blocks are immutable once
// validated.
type Block struct {
	ID            string         `json:"Id"`
	Type          BlockType      `json:"BlockType"`
	Page          int            `json:"Page,omitempty"`
	Text          string         `json:"Text,omitempty"`
	Geometry      *Geometry      `json:"Geometry,omitempty"`
	Relationships []Relationship `json:"Relationships,omitempty"`
	RowIndex      int            `json:"RowIndex,omitempty"`
	ColumnIndex   int            `json:"ColumnIndex,omitempty"`
	RowSpan       int            `json:"RowSpan,omitempty"`
	ColumnSpan    int            `json:"ColumnSpan,omitempty"`
	Query         *Query         `json:"Query,omitempty"`
}

// Box returns the bounding box, or nil when the block carries no geometry.
func (b *Block) Box() *BoundingBox {
	if b == nil || b.Geometry == nil {
		return nil
	}
	return b.Geometry.BoundingBox
}

// Related returns the target ids of every edge of the given type, in relationship order.
func (b *Block) Related(t RelationType) []string {
	var ids []string
	for _, rel := range b.Relationships {
		if rel.Type == t {
			ids = append(ids, rel.IDs...)
		}
	}
	return ids
}

// Normalize validates a block and fills the defaults the service omits: page 1, and for
// cells a 1-based position with a 1x1 span.
func (b *Block) Normalize() error {
	if b.ID == "" {
		return errors.Wrap(ErrInvalidBlock, "missing Id")
	}
	if b.Type == "" {
		return errors.Wrapf(ErrInvalidBlock, "block %s: missing BlockType", b.ID)
	}
	if b.Page == 0 {
		b.Page = 1
	}
	if b.Page < 0 {
		return errors.Wrapf(ErrInvalidBlock, "block %s: negative page %d", b.ID, b.Page)
	}
	if b.Type == BlockCell {
		if b.RowIndex == 0 {
			b.RowIndex = 1
		}
		if b.ColumnIndex == 0 {
			b.ColumnIndex = 1
		}
		if b.RowSpan == 0 {
			b.RowSpan = 1
		}
		if b.ColumnSpan == 0 {
			b.ColumnSpan = 1
		}
		if b.RowIndex < 0 || b.ColumnIndex < 0 || b.RowSpan < 0 || b.ColumnSpan < 0 {
			return errors.Wrapf(ErrInvalidBlock, "block %s: negative cell coordinates", b.ID)
		}
	}
	if b.Type == BlockQuery && b.Query == nil {
		return errors.Wrapf(ErrInvalidBlock, "block %s: QUERY without Query", b.ID)
	}
	return nil
}

// NormalizeBlocks validates every block in place, stopping at the first invalid one.
func NormalizeBlocks(blocks []Block) error {
	for i := range blocks {
		if err := blocks[i].Normalize(); err != nil {
			return errors.Wrapf(err, "block #%d", i)
		}
	}
	return nil
}
