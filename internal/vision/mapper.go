package vision

import (
	"fmt"
	"image"

	"github.com/thyrook/clanker/internal/board"
)

// Mapper converts frame pixels to board squares and back.
//
// Origin is the top-left corner of the board inside the frame; Tile is the
// rendered square size. From white's view the a8 square sits at Origin; from
// black's view the board is flipped and h1 sits there.
type Mapper struct {
	Origin image.Point
	Tile   int
}

// ToBoardIndex returns the square under p. Points off the board are a
// malformed-frame error, never clipped.
func (m Mapper) ToBoardIndex(p image.Point, side board.Side) (board.Index, error) {
	if m.Tile <= 0 {
		return board.Index{}, fmt.Errorf("invalid tile size %d", m.Tile)
	}

	dx := p.X - m.Origin.X
	dy := p.Y - m.Origin.Y
	// Integer division truncates toward zero, so reject negatives first.
	if dx < 0 || dy < 0 {
		return board.Index{}, fmt.Errorf("%w: point %v above or left of board", ErrMalformedFrame, p)
	}

	col, row := dx/m.Tile, dy/m.Tile
	if col > 7 || row > 7 {
		return board.Index{}, fmt.Errorf("%w: point %v beyond board", ErrMalformedFrame, p)
	}

	if side == board.Black {
		return board.Index{File: 7 - col, Rank: row}, nil
	}
	return board.Index{File: col, Rank: 7 - row}, nil
}

// SquareRect returns the pixel rectangle covered by a square.
func (m Mapper) SquareRect(idx board.Index, side board.Side) image.Rectangle {
	col, row := idx.File, 7-idx.Rank
	if side == board.Black {
		col, row = 7-idx.File, idx.Rank
	}
	topLeft := m.Origin.Add(image.Pt(col*m.Tile, row*m.Tile))
	return image.Rectangle{Min: topLeft, Max: topLeft.Add(image.Pt(m.Tile, m.Tile))}
}

// SquareCenter returns the pixel centre of a square, the inverse of
// ToBoardIndex.
func (m Mapper) SquareCenter(idx board.Index, side board.Side) image.Point {
	r := m.SquareRect(idx, side)
	return r.Min.Add(image.Pt(m.Tile/2, m.Tile/2))
}

// Bounds returns the pixel rectangle covered by the whole board.
func (m Mapper) Bounds() image.Rectangle {
	return image.Rectangle{Min: m.Origin, Max: m.Origin.Add(image.Pt(8*m.Tile, 8*m.Tile))}
}
