package blocks

import (
	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// SelectTable keeps the tables with at least one keyword in any cell and returns the grid of
// the first survivor on the requested page. No match yields an empty grid.
func SelectTable(g *Graph, tables []Table, keywords []string, page int) models.Grid {
	for _, t := range tables {
		if t.Grid.Page != page {
			continue
		}
		if ContainsKeyword(g, t.Block, keywords) {
			return t.Grid
		}
	}
	return models.Grid{Page: page}
}
