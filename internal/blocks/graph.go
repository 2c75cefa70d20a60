// Package blocks reconstructs tables and positional fields from the block/relationship graph
// returned by the document analysis service.
package blocks

import (
	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// Graph indexes blocks by id while keeping the service's reading order.
// It is built once per document and is read-only afterwards.
type Graph struct {
	byID    map[string]*models.Block
	ordered []*models.Block
}

// NewGraph indexes blocks in a single pass. The slice must already be in pagination order;
// when an id repeats, the later block wins.
func NewGraph(blocks []models.Block) *Graph {
	g := &Graph{
		byID:    make(map[string]*models.Block, len(blocks)),
		ordered: make([]*models.Block, 0, len(blocks)),
	}
	for i := range blocks {
		b := &blocks[i]
		g.byID[b.ID] = b
		g.ordered = append(g.ordered, b)
	}
	return g
}

// Lookup returns the block with the given id.
func (g *Graph) Lookup(id string) (*models.Block, bool) {
	b, ok := g.byID[id]
	return b, ok
}

// Blocks returns every block in reading order.
func (g *Graph) Blocks() []*models.Block {
	return g.ordered
}

// Len returns the number of indexed blocks.
func (g *Graph) Len() int {
	return len(g.ordered)
}

// Related resolves the edges of type t from b. Ids missing from the graph are skipped.
func (g *Graph) Related(b *models.Block, t models.RelationType) []*models.Block {
	ids := b.Related(t)
	out := make([]*models.Block, 0, len(ids))
	for _, id := range ids {
		if target, ok := g.byID[id]; ok {
			out = append(out, target)
		}
	}
	return out
}

// Children returns the CHILD targets of b restricted to the given type.
func (g *Graph) Children(b *models.Block, t models.BlockType) []*models.Block {
	var out []*models.Block
	for _, c := range g.Related(b, models.RelationChild) {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// OfType returns every block of type t in reading order.
func (g *Graph) OfType(t models.BlockType) []*models.Block {
	var out []*models.Block
	for _, b := range g.ordered {
		if b.Type == t {
			out = append(out, b)
		}
	}
	return out
}
