package board

import (
	"errors"
	"testing"

	"github.com/notnil/chess"
)

const startPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

// startingIndices lists the 12 per-kind square sets of the initial position.
func startingIndices() map[Kind][]Index {
	m := map[Kind][]Index{
		WhiteRook:   {{0, 0}, {7, 0}},
		WhiteKnight: {{1, 0}, {6, 0}},
		WhiteBishop: {{2, 0}, {5, 0}},
		WhiteQueen:  {{3, 0}},
		WhiteKing:   {{4, 0}},
		BlackRook:   {{0, 7}, {7, 7}},
		BlackKnight: {{1, 7}, {6, 7}},
		BlackBishop: {{2, 7}, {5, 7}},
		BlackQueen:  {{3, 7}},
		BlackKing:   {{4, 7}},
	}
	for f := 0; f < 8; f++ {
		m[WhitePawn] = append(m[WhitePawn], Index{File: f, Rank: 1})
		m[BlackPawn] = append(m[BlackPawn], Index{File: f, Rank: 6})
	}
	return m
}

func TestKindsCanonicalOrder(t *testing.T) {
	var symbols string
	for _, k := range Kinds() {
		symbols += string(k.Symbol())
	}
	if symbols != "bknpqrBKNPQR" {
		t.Errorf("Expected canonical order bknpqrBKNPQR, got %s", symbols)
	}
}

func TestKindConversions(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := KindFromSymbol(k.Symbol())
		if !ok || got != k {
			t.Errorf("KindFromSymbol(%c) = %v, want %v", k.Symbol(), got, k)
		}
		if KindFromChess(k.ChessPiece()) != k {
			t.Errorf("KindFromChess round trip failed for %s", k)
		}
		if k.IsWhite() == k.IsBlack() {
			t.Errorf("%s must be exactly one colour", k)
		}
	}

	if WhiteKing.ChessPiece() != chess.WhiteKing {
		t.Error("WhiteKing should convert to chess.WhiteKing")
	}
	if Empty.ChessPiece() != chess.NoPiece {
		t.Error("Empty should convert to chess.NoPiece")
	}
	if _, ok := KindFromSymbol('x'); ok {
		t.Error("Expected unknown symbol to be rejected")
	}
}

func TestIndexString(t *testing.T) {
	pos := Index{File: 4, Rank: 3}
	if pos.String() != "e4" {
		t.Errorf("Expected e4, got %s", pos.String())
	}

	parsed, err := ParseSquare("e4")
	if err != nil {
		t.Fatalf("ParseSquare failed: %v", err)
	}
	if parsed != pos {
		t.Errorf("Expected %v, got %v", pos, parsed)
	}

	for _, bad := range []string{"", "e", "i1", "a9", "a0", "e44"} {
		if _, err := ParseSquare(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestAssembleStartingPosition(t *testing.T) {
	grid, err := Assemble(startingIndices())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if got := grid.Placement(); got != startPlacement {
		t.Errorf("Expected %s, got %s", startPlacement, got)
	}
}

func TestAssembleEmptyKindsContributeNothing(t *testing.T) {
	grid, err := Assemble(map[Kind][]Index{
		WhiteKing: {{4, 0}},
		BlackKing: {{4, 7}},
		WhiteRook: nil,
	})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if grid.Count(WhiteRook) != 0 {
		t.Errorf("Expected no white rooks, got %d", grid.Count(WhiteRook))
	}
	if got := grid.Placement(); got != "4k3/8/8/8/8/8/8/4K3" {
		t.Errorf("Unexpected placement %s", got)
	}

	empty, err := Assemble(nil)
	if err != nil {
		t.Fatalf("Assemble(nil) failed: %v", err)
	}
	if empty.Placement() != "8/8/8/8/8/8/8/8" {
		t.Errorf("Expected empty board, got %s", empty.Placement())
	}
}

func TestAssembleConflict(t *testing.T) {
	perKind := map[Kind][]Index{
		BlackPawn: {{3, 3}},
		WhitePawn: {{3, 3}},
	}

	_, err := Assemble(perKind)
	if err == nil {
		t.Fatal("Expected conflict error")
	}
	if !errors.Is(err, ErrAmbiguousSquare) {
		t.Errorf("Expected ErrAmbiguousSquare, got %v", err)
	}

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected *ConflictError, got %T", err)
	}
	if conflict.Index.String() != "d4" || conflict.First != BlackPawn || conflict.Second != WhitePawn {
		t.Errorf("Unexpected conflict %+v", conflict)
	}

	// Lenient assembly lets the later kind in canonical order win.
	grid, err := AssembleLenient(perKind)
	if err != nil {
		t.Fatalf("AssembleLenient failed: %v", err)
	}
	if grid.PieceAt("d4") != WhitePawn {
		t.Errorf("Expected white pawn on d4, got %s", grid.PieceAt("d4"))
	}
}

func TestAssembleOutOfRange(t *testing.T) {
	tests := []Index{{-1, 0}, {8, 0}, {0, -1}, {0, 8}}
	for _, idx := range tests {
		_, err := Assemble(map[Kind][]Index{WhiteQueen: {idx}})
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Index %v: expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
}

func TestAssembleDuplicateSameKind(t *testing.T) {
	grid, err := Assemble(map[Kind][]Index{WhiteKnight: {{1, 0}, {1, 0}}})
	if err != nil {
		t.Fatalf("Duplicate index of one kind should not conflict: %v", err)
	}
	if grid.Count(WhiteKnight) != 1 {
		t.Errorf("Expected 1 knight, got %d", grid.Count(WhiteKnight))
	}
}

func TestPlacementRunLengths(t *testing.T) {
	tests := []struct {
		name     string
		perKind  map[Kind][]Index
		expected string
	}{
		{
			name:     "Lone rook a1",
			perKind:  map[Kind][]Index{WhiteRook: {{0, 0}}},
			expected: "8/8/8/8/8/8/8/R7",
		},
		{
			name:     "Rook h8",
			perKind:  map[Kind][]Index{BlackRook: {{7, 7}}},
			expected: "7r/8/8/8/8/8/8/8",
		},
		{
			name:     "Split run",
			perKind:  map[Kind][]Index{WhitePawn: {{2, 3}, {5, 3}}},
			expected: "8/8/8/8/2P2P2/8/8/8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid, err := Assemble(tt.perKind)
			if err != nil {
				t.Fatalf("Assemble failed: %v", err)
			}
			if got := grid.Placement(); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestParsePlacementRoundTrip(t *testing.T) {
	placements := []string{
		startPlacement,
		"r3k2r/pppq1ppp/2n1bn2/3pp3/3PP3/2N1BN2/PPPQ1PPP/R3K2R",
		"8/8/8/8/8/8/8/8",
		"4k3/8/8/8/8/8/8/4K3",
	}
	for _, p := range placements {
		grid, err := ParsePlacement(p + " w - - 0 1")
		if err != nil {
			t.Fatalf("ParsePlacement(%s) failed: %v", p, err)
		}
		if got := grid.Placement(); got != p {
			t.Errorf("Round trip: expected %s, got %s", p, got)
		}

		rebuilt, err := Assemble(grid.Indices())
		if err != nil {
			t.Fatalf("Assemble(Indices) failed: %v", err)
		}
		if rebuilt != grid {
			t.Errorf("Indices/Assemble round trip changed %s", p)
		}
	}

	grid, err := ParsePlacement("4k3/8/8/8/8/8/8/4K3")
	if err != nil {
		t.Fatal(err)
	}
	if grid.PieceAt("e1") != WhiteKing || grid.PieceAt("e8") != BlackKing || grid.PieceAt("e4") != Empty {
		t.Errorf("Expected kings on e1 and e8, got\n%s", grid.String())
	}

	for _, bad := range []string{"", "8/8", "9/8/8/8/8/8/8/8", "ppppppppp/8/8/8/8/8/8/8", "x7/8/8/8/8/8/8/8", "7pp/8/8/8/8/8/8/8", "8/8/8/8/8/8/8/7"} {
		if _, err := ParsePlacement(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestDiff(t *testing.T) {
	before, _ := ParsePlacement(startPlacement)
	after, _ := ParsePlacement("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR")

	changes := Diff(before, after)
	if len(changes) != 2 {
		t.Fatalf("Expected 2 changes, got %d", len(changes))
	}

	found := map[string]bool{}
	for _, c := range changes {
		found[c.String()] = true
	}
	if !found["e2"] || !found["e4"] {
		t.Errorf("Expected e2 and e4 in changes, got %v", changes)
	}
}

func TestGridString(t *testing.T) {
	grid, _ := ParsePlacement(startPlacement)
	out := grid.String()
	if len(out) < 100 {
		t.Error("Board diagram seems too short")
	}
}

func TestSide(t *testing.T) {
	if White.Letter() != "w" || Black.Letter() != "b" {
		t.Error("Unexpected side letters")
	}
	if White.Opponent() != Black || Black.Opponent() != White {
		t.Error("Opponent is not symmetric")
	}
}
