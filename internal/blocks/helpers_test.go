package blocks

import (
	"fmt"
	"strings"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// tableFixture assembles TABLE/CELL/WORD blocks the way the analysis service emits them.
type tableFixture struct {
	blocks []models.Block
	seq    int
}

func (f *tableFixture) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

type cellSpec struct {
	row, col, rowSpan, colSpan int
	text                       string
}

func (f *tableFixture) table(page int, cells ...cellSpec) string {
	tableID := f.nextID("table")
	var cellIDs []string
	for _, c := range cells {
		cellID := f.nextID("cell")
		var wordIDs []string
		for _, w := range strings.Fields(c.text) {
			wordID := f.nextID("word")
			f.blocks = append(f.blocks, models.Block{ID: wordID, Type: models.BlockWord, Page: page, Text: w})
			wordIDs = append(wordIDs, wordID)
		}
		cell := models.Block{
			ID:          cellID,
			Type:        models.BlockCell,
			Page:        page,
			RowIndex:    c.row,
			ColumnIndex: c.col,
			RowSpan:     c.rowSpan,
			ColumnSpan:  c.colSpan,
		}
		if len(wordIDs) > 0 {
			cell.Relationships = []models.Relationship{{Type: models.RelationChild, IDs: wordIDs}}
		}
		f.blocks = append(f.blocks, cell)
		cellIDs = append(cellIDs, cellID)
	}
	f.blocks = append(f.blocks, models.Block{
		ID:            tableID,
		Type:          models.BlockTable,
		Page:          page,
		Relationships: []models.Relationship{{Type: models.RelationChild, IDs: cellIDs}},
	})
	return tableID
}

func (f *tableFixture) graph() *Graph {
	if err := models.NormalizeBlocks(f.blocks); err != nil {
		panic(err)
	}
	return NewGraph(f.blocks)
}

func line(id, text string, top, left, width float64) models.Block {
	return models.Block{
		ID:   id,
		Type: models.BlockLine,
		Text: text,
		Geometry: &models.Geometry{BoundingBox: &models.BoundingBox{
			Top: top, Left: left, Width: width, Height: 0.02,
		}},
	}
}
