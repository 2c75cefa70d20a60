package blocks

import (
	"strings"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// CellText joins the WORD children of a cell with single spaces, in relationship order.
// Missing words are skipped; a cell without words yields "".
func CellText(g *Graph, cell *models.Block) string {
	words := g.Children(cell, models.BlockWord)
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if w.Text != "" {
			parts = append(parts, w.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// ContainsKeyword reports whether any cell of the table contains one of the keywords,
// case-insensitively.
func ContainsKeyword(g *Graph, table *models.Block, keywords []string) bool {
	for _, cell := range g.Children(table, models.BlockCell) {
		text := strings.ToLower(CellText(g, cell))
		for _, kw := range keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}
