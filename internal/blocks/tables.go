package blocks

import (
	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// SpanPolicy decides how a cell covering several grid positions is written.
type SpanPolicy int

const (
	// SpanTopLeft writes spanned text only at the cell's top-left position.
	SpanTopLeft SpanPolicy = iota
	// SpanBroadcast copies spanned text to every covered position.
	SpanBroadcast
)

// Table is a TABLE block together with its reconstructed grid.
type Table struct {
	Block *models.Block
	Grid  models.Grid
}

// BuildTables reconstructs the grid of every TABLE block, in reading order.
func BuildTables(g *Graph, policy SpanPolicy) []Table {
	tableBlocks := g.OfType(models.BlockTable)
	tables := make([]Table, 0, len(tableBlocks))
	for _, tb := range tableBlocks {
		tables = append(tables, Table{
			Block: tb,
			Grid: models.Grid{
				Page: tb.Page,
				Rows: BuildGrid(g, tb, policy),
			},
		})
	}
	return tables
}

// BuildGrid lays the CELL children of a table out in a rectangular grid. Dimensions come from
// the furthest row/column any cell reaches including its span. Cells are written in
// relationship order, so where declared spans overlap the later cell wins.
func BuildGrid(g *Graph, table *models.Block, policy SpanPolicy) [][]string {
	cells := g.Children(table, models.BlockCell)
	rows, cols := gridDimensions(cells)

	grid := make([][]*string, rows)
	for r := range grid {
		grid[r] = make([]*string, cols)
	}

	for _, c := range cells {
		text := CellText(g, c)
		r0, c0 := c.RowIndex-1, c.ColumnIndex-1
		if r0 < 0 || c0 < 0 {
			continue
		}
		if c.RowSpan <= 1 && c.ColumnSpan <= 1 || policy == SpanTopLeft {
			grid[r0][c0] = &text
			continue
		}
		for r := r0; r < r0+max(c.RowSpan, 1); r++ {
			for col := c0; col < c0+max(c.ColumnSpan, 1); col++ {
				grid[r][col] = &text
			}
		}
	}

	out := make([][]string, rows)
	for r, row := range grid {
		out[r] = make([]string, cols)
		for c, v := range row {
			if v != nil {
				out[r][c] = *v
			}
		}
	}
	return out
}

func gridDimensions(cells []*models.Block) (rows, cols int) {
	for _, c := range cells {
		rows = max(rows, c.RowIndex+max(c.RowSpan, 1)-1)
		cols = max(cols, c.ColumnIndex+max(c.ColumnSpan, 1)-1)
	}
	return rows, cols
}
