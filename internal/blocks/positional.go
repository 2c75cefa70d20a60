package blocks

import (
	"strings"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// FindAnchor returns the first LINE whose text contains phrase, case-insensitively.
func FindAnchor(g *Graph, phrase string) *models.Block {
	needle := strings.ToLower(phrase)
	for _, b := range g.Blocks() {
		if b.Type == models.BlockLine && strings.Contains(strings.ToLower(b.Text), needle) {
			return b
		}
	}
	return nil
}

// AboveAnchor returns the LINE blocks whose box starts strictly above the anchor and strictly
// left of the anchor's right edge, in reading order.
func AboveAnchor(g *Graph, anchor *models.Block) []*models.Block {
	box := anchor.Box()
	if box == nil {
		return nil
	}
	right := box.Left + box.Width

	var out []*models.Block
	for _, b := range g.Blocks() {
		if b.Type != models.BlockLine {
			continue
		}
		bb := b.Box()
		if bb == nil {
			continue
		}
		if bb.Top < box.Top && bb.Left < right {
			out = append(out, b)
		}
	}
	return out
}

// ResolveDate picks the candidate above the anchor that comes last in reading order. The
// service reads top-to-bottom, left-to-right, so the last candidate is the line closest to
// the anchor.
func ResolveDate(g *Graph, anchor *models.Block) *models.Block {
	if anchor == nil {
		return nil
	}
	candidates := AboveAnchor(g, anchor)
	if len(candidates) == 0 {
		return nil
	}
	return candidates[len(candidates)-1]
}

// QueryAnswer follows the ANSWER edge of the QUERY block with the given alias and returns the
// referenced block. Any missing link yields nil.
func QueryAnswer(g *Graph, alias string) *models.Block {
	for _, b := range g.Blocks() {
		if b.Type != models.BlockQuery || b.Query == nil || b.Query.Alias != alias {
			continue
		}
		ids := b.Related(models.RelationAnswer)
		if len(ids) == 0 {
			return nil
		}
		answer, ok := g.Lookup(ids[0])
		if !ok {
			return nil
		}
		return answer
	}
	return nil
}

// TextOf returns a pointer to the block's text, nil when there is no block or no text.
func TextOf(b *models.Block) *string {
	if b == nil || b.Text == "" {
		return nil
	}
	text := b.Text
	return &text
}
