package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"
)

var (
	// ErrAmbiguousSquare is matched by *ConflictError.
	ErrAmbiguousSquare = errors.New("ambiguous square")

	// ErrIndexOutOfRange is returned for indices outside the 8x8 board.
	ErrIndexOutOfRange = errors.New("board index out of range")
)

// Index identifies a square. File 0 is the a-file, Rank 0 is rank 1.
type Index struct {
	File int
	Rank int
}

// Valid reports whether both coordinates are in [0,7].
func (i Index) Valid() bool {
	return i.File >= 0 && i.File < 8 && i.Rank >= 0 && i.Rank < 8
}

// String returns algebraic notation (e.g., "e4")
func (i Index) String() string {
	if !i.Valid() {
		return fmt.Sprintf("(%d,%d)", i.File, i.Rank)
	}
	return fmt.Sprintf("%c%d", 'a'+i.File, i.Rank+1)
}

// ParseSquare parses algebraic notation such as "e4".
func ParseSquare(s string) (Index, error) {
	if len(s) != 2 {
		return Index{}, fmt.Errorf("invalid square %q", s)
	}
	idx := Index{File: int(s[0] - 'a'), Rank: int(s[1] - '1')}
	if !idx.Valid() {
		return Index{}, fmt.Errorf("invalid square %q", s)
	}
	return idx, nil
}

// ConflictError reports two kinds detected on the same square in one cycle.
type ConflictError struct {
	Index  Index
	First  Kind
	Second Kind
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("ambiguous square %s: %s and %s", e.Index, e.First, e.Second)
}

// Is lets errors.Is match ErrAmbiguousSquare.
func (e *ConflictError) Is(target error) bool {
	return target == ErrAmbiguousSquare
}

// Grid is an 8x8 board in FEN order: row 0 is rank 8, column 0 is the a-file.
type Grid [8][8]Kind

// At returns the kind on a square.
func (g *Grid) At(i Index) Kind {
	return g[7-i.Rank][i.File]
}

// Set writes a kind to a square.
func (g *Grid) Set(i Index, k Kind) {
	g[7-i.Rank][i.File] = k
}

// PieceAt returns the kind on an algebraic square, Empty for bad input.
func (g *Grid) PieceAt(square string) Kind {
	idx, err := ParseSquare(square)
	if err != nil {
		return Empty
	}
	return g.At(idx)
}

// Count returns how many squares hold the given kind.
func (g *Grid) Count(k Kind) int {
	n := 0
	for _, row := range g {
		for _, cell := range row {
			if cell == k {
				n++
			}
		}
	}
	return n
}

// Assemble builds a grid from per-kind square sets. Kinds are visited in
// canonical order; a square claimed by two kinds yields a *ConflictError.
func Assemble(perKind map[Kind][]Index) (Grid, error) {
	var g Grid
	for _, k := range Kinds() {
		for _, idx := range perKind[k] {
			if !idx.Valid() {
				return Grid{}, fmt.Errorf("%s at %s: %w", k, idx, ErrIndexOutOfRange)
			}
			if prev := g.At(idx); prev != Empty && prev != k {
				return Grid{}, &ConflictError{Index: idx, First: prev, Second: k}
			}
			g.Set(idx, k)
		}
	}
	return g, nil
}

// AssembleLenient builds a grid where a later kind in canonical order
// overwrites an earlier one on the same square.
func AssembleLenient(perKind map[Kind][]Index) (Grid, error) {
	var g Grid
	for _, k := range Kinds() {
		for _, idx := range perKind[k] {
			if !idx.Valid() {
				return Grid{}, fmt.Errorf("%s at %s: %w", k, idx, ErrIndexOutOfRange)
			}
			g.Set(idx, k)
		}
	}
	return g, nil
}

// Placement serializes the grid as the FEN piece-placement field.
func (g *Grid) Placement() string {
	var sb strings.Builder
	for row := 0; row < 8; row++ {
		if row > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for col := 0; col < 8; col++ {
			k := g[row][col]
			if k == Empty {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(k.Symbol())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
	}
	return sb.String()
}

// ParsePlacement parses a FEN piece-placement field. Trailing FEN fields,
// if present, are ignored.
func ParsePlacement(s string) (Grid, error) {
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}

	var b chess.Board
	if err := b.UnmarshalText([]byte(s)); err != nil {
		return Grid{}, fmt.Errorf("placement %q: %w", s, err)
	}

	var g Grid
	for sq, p := range b.SquareMap() {
		g.Set(Index{File: int(sq.File()), Rank: int(sq.Rank())}, KindFromChess(p))
	}
	return g, nil
}

// Indices groups the occupied squares by kind, the inverse of Assemble.
func (g *Grid) Indices() map[Kind][]Index {
	out := make(map[Kind][]Index)
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			idx := Index{File: file, Rank: rank}
			if k := g.At(idx); k != Empty {
				out[k] = append(out[k], idx)
			}
		}
	}
	return out
}

// Diff returns the squares whose contents differ between two grids.
func Diff(a, b Grid) []Index {
	var changes []Index
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			idx := Index{File: file, Rank: rank}
			if a.At(idx) != b.At(idx) {
				changes = append(changes, idx)
			}
		}
	}
	return changes
}

// String returns a human-readable diagram of the board, rank 8 on top.
func (g *Grid) String() string {
	var sb strings.Builder
	sb.WriteString("\n  a b c d e f g h\n")
	for row := 0; row < 8; row++ {
		rank := 8 - row
		sb.WriteString(fmt.Sprintf("%d ", rank))
		for col := 0; col < 8; col++ {
			if k := g[row][col]; k != Empty {
				sb.WriteByte(k.Symbol())
				sb.WriteByte(' ')
				continue
			}
			if (row+col)%2 == 0 {
				sb.WriteString(". ")
			} else {
				sb.WriteString(": ")
			}
		}
		sb.WriteString(fmt.Sprintf("%d\n", rank))
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}
