package iface

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/thyrook/clanker/internal/board"
	"github.com/thyrook/clanker/internal/config"
	"github.com/thyrook/clanker/internal/decision"
	"github.com/thyrook/clanker/internal/storage"
)

// CLI provides command-line interface utilities
type CLI struct {
	config *config.Config
	quiet  bool
	out    io.Writer
	errOut io.Writer
}

// NewCLI creates a new CLI interface
func NewCLI(cfg *config.Config, quiet bool) *CLI {
	return &CLI{
		config: cfg,
		quiet:  quiet,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// SetOutput redirects normal and error output.
func (c *CLI) SetOutput(out, errOut io.Writer) {
	c.out = out
	c.errOut = errOut
}

// PrintBanner displays the application banner
func (c *CLI) PrintBanner() {
	if c.quiet {
		return
	}

	banner := `
  ██████╗██╗      █████╗ ███╗   ██╗██╗  ██╗███████╗██████╗
 ██╔════╝██║     ██╔══██╗████╗  ██║██║ ██╔╝██╔════╝██╔══██╗
 ██║     ██║     ███████║██╔██╗ ██║█████╔╝ █████╗  ██████╔╝
 ██║     ██║     ██╔══██║██║╚██╗██║██╔═██╗ ██╔══╝  ██╔══██╗
 ╚██████╗███████╗██║  ██║██║ ╚████║██║  ██╗███████╗██║  ██║
  ╚═════╝╚══════╝╚═╝  ╚═╝╚═╝  ╚═══╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝

          Screen-reading chess autoplayer
`
	fmt.Fprintln(c.out, banner)
	if c.config != nil {
		fmt.Fprintf(c.out, "   %s %s\n\n", c.config.AppName, c.config.Version)
	}
}

// PrintModeHeader displays the mode-specific header
func (c *CLI) PrintModeHeader(mode string) {
	if c.quiet {
		return
	}

	var header string
	switch mode {
	case "play":
		header = `
PLAY MODE
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
Watching the board and moving when our clock runs.
Press Ctrl+C to stop.
`
	case "recognize":
		header = `
RECOGNIZE MODE
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
Reading positions from recorded frames.
`
	case "render":
		header = `
RENDER MODE
━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
Drawing a synthetic board screenshot from a position.
`
	default:
		header = fmt.Sprintf("\n%s MODE\n", strings.ToUpper(mode))
	}

	fmt.Fprintln(c.out, header)
}

// PrintBoard prints the grid as seen by side, our pieces at the bottom.
func (c *CLI) PrintBoard(grid *board.Grid, side board.Side) {
	if c.quiet {
		fmt.Fprintln(c.out, grid.Placement())
		return
	}
	fmt.Fprint(c.out, c.boardDiagram(grid, side))
}

func (c *CLI) boardDiagram(grid *board.Grid, side board.Side) string {
	files := "  a b c d e f g h\n"
	if side == board.Black {
		files = "  h g f e d c b a\n"
	}

	var sb strings.Builder
	sb.WriteString(files)
	for r := 0; r < 8; r++ {
		rank := 7 - r
		if side == board.Black {
			rank = r
		}
		fmt.Fprintf(&sb, "%d ", rank+1)
		for f := 0; f < 8; f++ {
			file := f
			if side == board.Black {
				file = 7 - f
			}
			k := grid.At(board.Index{File: file, Rank: rank})
			switch {
			case k != board.Empty:
				sb.WriteByte(k.Symbol())
			case (file+rank)%2 == 0:
				sb.WriteByte(':')
			default:
				sb.WriteByte('.')
			}
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d\n", rank+1)
	}
	sb.WriteString(files)
	return sb.String()
}

// PrintDecision prints the move chosen in one cycle
func (c *CLI) PrintDecision(d *decision.Decision) {
	if c.quiet {
		fmt.Fprintln(c.out, d.Move)
		return
	}

	fmt.Fprintf(c.out, "🎯 %s\n", c.moveToNaturalLanguage(d.Move, &d.Grid))
	fmt.Fprintf(c.out, "   Notation: %s | Recognition: %.1f ms\n",
		d.Move, d.Recognition.Seconds()*1000)
	fmt.Fprintf(c.out, "   Position: %s\n", d.FEN)
	c.PrintSeparator()
}

// PrintStatus prints a status message
func (c *CLI) PrintStatus(message string, level string) {
	if c.quiet && level != "error" {
		return
	}

	var prefix string
	switch level {
	case "info":
		prefix = "ℹ️"
	case "success":
		prefix = "✅"
	case "warning":
		prefix = "⚠️"
	case "error":
		prefix = "❌"
	default:
		prefix = "•"
	}

	fmt.Fprintf(c.out, "%s %s\n", prefix, message)
}

// PrintError prints an error message
func (c *CLI) PrintError(err error) {
	fmt.Fprintf(c.errOut, "Error: %v\n", err)
}

// PrintWarning prints a warning message
func (c *CLI) PrintWarning(message string) {
	if !c.quiet {
		fmt.Fprintf(c.out, "⚠️  Warning: %s\n", message)
	}
}

// Helper functions

var pieceNouns = map[byte]string{
	'p': "pawn",
	'n': "knight",
	'b': "bishop",
	'r': "rook",
	'q': "queen",
	'k': "king",
}

// moveToNaturalLanguage describes a UCI move using the piece found on its
// origin square.
func (c *CLI) moveToNaturalLanguage(move string, grid *board.Grid) string {
	if len(move) < 4 {
		return move
	}

	from := move[0:2]
	to := move[2:4]

	piece := "piece"
	if grid != nil {
		if k := grid.PieceAt(from); k != board.Empty {
			piece = pieceNouns[k.Symbol()|0x20]
		}
	}

	switch {
	case piece == "king" && (move == "e1g1" || move == "e8g8"):
		return "Castle kingside"
	case piece == "king" && (move == "e1c1" || move == "e8c8"):
		return "Castle queenside"
	case grid != nil && grid.PieceAt(to) != board.Empty:
		return fmt.Sprintf("Take on %s with the %s from %s", to, piece, from)
	default:
		return fmt.Sprintf("Move %s from %s to %s", piece, from, to)
	}
}

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

// Colorize applies color to text if terminal supports it
func (c *CLI) Colorize(text string, color string) string {
	if c.quiet || os.Getenv("NO_COLOR") != "" {
		return text
	}
	return color + text + ColorReset
}

// PrintSuccess prints a success message in green
func (c *CLI) PrintSuccess(message string) {
	if !c.quiet {
		fmt.Fprintln(c.out, c.Colorize("✓ "+message, ColorGreen))
	}
}

// PrintInfo prints an info message in blue
func (c *CLI) PrintInfo(message string) {
	if !c.quiet {
		fmt.Fprintln(c.out, c.Colorize("ℹ "+message, ColorBlue))
	}
}

// PrintTable prints data in a formatted table
func (c *CLI) PrintTable(headers []string, rows [][]string) {
	if c.quiet {
		return
	}

	// Calculate column widths
	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) && len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	fmt.Fprintln(c.out)
	for i, h := range headers {
		fmt.Fprintf(c.out, "%-*s  ", colWidths[i], h)
	}
	fmt.Fprintln(c.out)

	for _, w := range colWidths {
		fmt.Fprint(c.out, strings.Repeat("─", w+2))
	}
	fmt.Fprintln(c.out)

	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) {
				fmt.Fprintf(c.out, "%-*s  ", colWidths[i], cell)
			}
		}
		fmt.Fprintln(c.out)
	}
	fmt.Fprintln(c.out)
}

// PrintHistory prints stored moves, newest first.
func (c *CLI) PrintHistory(records []storage.Record) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			time.Unix(rec.Timestamp, 0).Format("15:04:05"),
			rec.Side,
			fmt.Sprintf("%d", rec.Turn),
			rec.Move,
			rec.Premove,
			fmt.Sprintf("%.1f", rec.RecognitionMs),
			rec.FEN,
		})
	}
	c.PrintTable([]string{"Time", "Side", "Turn", "Move", "Premove", "Recog ms", "Position"}, rows)
}

// PrintBox prints text in a box
func (c *CLI) PrintBox(title string, lines []string) {
	if c.quiet {
		return
	}

	maxWidth := len(title)
	for _, line := range lines {
		if len(line) > maxWidth {
			maxWidth = len(line)
		}
	}

	width := maxWidth + 4

	fmt.Fprintln(c.out, "┌"+strings.Repeat("─", width)+"┐")

	padding := (width - len(title)) / 2
	fmt.Fprintf(c.out, "│%s%s%s│\n",
		strings.Repeat(" ", padding),
		c.Colorize(title, ColorBold),
		strings.Repeat(" ", width-padding-len(title)))

	fmt.Fprintln(c.out, "├"+strings.Repeat("─", width)+"┤")

	for _, line := range lines {
		fmt.Fprintf(c.out, "│ %-*s │\n", width-2, line)
	}

	fmt.Fprintln(c.out, "└"+strings.Repeat("─", width)+"┘")
}

// PrintStats prints statistics in a formatted grid, keys sorted
func (c *CLI) PrintStats(stats map[string]interface{}) {
	if c.quiet {
		return
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(c.out, "\n"+strings.Repeat("═", 70))
	fmt.Fprintln(c.out, c.Colorize(" STATISTICS", ColorBold+ColorCyan))
	fmt.Fprintln(c.out, strings.Repeat("═", 70))

	for _, key := range keys {
		fmt.Fprintf(c.out, "  %-30s: ", key)

		switch v := stats[key].(type) {
		case float64:
			fmt.Fprintf(c.out, "%.2f", v)
		case int:
			fmt.Fprintf(c.out, "%d", v)
		case bool:
			if v {
				fmt.Fprint(c.out, c.Colorize("✓ Yes", ColorGreen))
			} else {
				fmt.Fprint(c.out, c.Colorize("✗ No", ColorRed))
			}
		case string:
			fmt.Fprint(c.out, v)
		default:
			fmt.Fprintf(c.out, "%v", v)
		}
		fmt.Fprintln(c.out)
	}

	fmt.Fprintln(c.out, strings.Repeat("═", 70)+"\n")
}

// PrintPlayerStats prints the player's counters
func (c *CLI) PrintPlayerStats(s decision.PlayerStats) {
	c.PrintStats(map[string]interface{}{
		"Polls":                 s.Polls,
		"Moves":                 s.Moves,
		"Premoves":              s.Premoves,
		"Games":                 s.Games,
		"Cycles accepted":       s.Engine.AcceptedCycles,
		"Cycles total":          s.Engine.TotalCycles,
		"Malformed frames":      s.Engine.MalformedFrames,
		"Ambiguous squares":     s.Engine.Conflicts,
		"Invalid positions":     s.Engine.InvalidPositions,
		"Oracle restarts":       s.Engine.OracleRestarts,
		"Recognition mean (ms)": s.Engine.RecognitionMeanMs,
	})
}

// PrintHelp prints help for one of the commands
func (c *CLI) PrintHelp(commandName string) {
	switch commandName {
	case "recognize":
		c.PrintBox("RECOGNIZE HELP", []string{
			"Usage: recognize [options]",
			"",
			"Options:",
			"  -image PATH     Screenshot of the capture region",
			"  -video PATH     Recording of the capture region",
			"  -side w|b       Side playing at the bottom (default: w)",
			"  -config PATH    Configuration file",
			"",
			"Examples:",
			"  recognize -image shot.png",
			"  recognize -video game.mp4 -side b",
		})

	case "render-board":
		c.PrintBox("RENDER HELP", []string{
			"Usage: render-board [options]",
			"",
			"Options:",
			"  -fen FEN        Position to draw (default: start position)",
			"  -side w|b       Orientation (default: w)",
			"  -out PATH       Output image (default: board.png)",
			"",
			"Examples:",
			"  render-board -fen \"8/8/8/4k3/8/8/8/4K3 w - - 0 1\" -out endgame.png",
		})

	default:
		c.PrintBox("CLANKER HELP", []string{
			"Screen-reading chess autoplayer",
			"",
			"Options:",
			"  -config PATH    Configuration file (default: config.json)",
			"  -premove        Premove captures",
			"  -elo N          Playing strength",
			"  -statsview ADDR Serve runtime charts on ADDR",
			"  -history N      Print the last N stored moves and exit",
			"",
			"Examples:",
			"  clanker -config config.json",
			"  clanker -premove -elo 1800",
		})
	}
}

// PrintSeparator prints a visual separator
func (c *CLI) PrintSeparator() {
	if !c.quiet {
		fmt.Fprintln(c.out, strings.Repeat("━", 70))
	}
}
