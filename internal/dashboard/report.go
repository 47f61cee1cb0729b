package dashboard

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"github.com/web3guy0/xylbot/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// REPLAY REPORT - per symbol counters in a boxed table
// ═══════════════════════════════════════════════════════════════════════════

const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	FgRed   = "\033[31m"
	FgGreen = "\033[32m"
	FgCyan  = "\033[36m"

	TopLeft     = "╔"
	TopRight    = "╗"
	BottomLeft  = "╚"
	BottomRight = "╝"
	Horizontal  = "═"
	Vertical    = "║"
	TeeRight    = "╠"
	TeeLeft     = "╣"
)

// tableWidth is the inner width of every row
const tableWidth = 71

// Report renders router statistics
type Report struct {
	Title string
	Color bool
}

// NewReport enables colors when stdout is a terminal
func NewReport(title string) *Report {
	return &Report{
		Title: title,
		Color: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// Render writes one row per symbol plus a total line
func (r *Report) Render(w io.Writer, stats map[string]core.Stats) {
	symbols := make([]string, 0, len(stats))
	for sym := range stats {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	r.border(w, TopLeft, TopRight)
	r.line(w, r.paint(Bold+FgCyan, fmt.Sprintf(" %-*s", tableWidth-1, r.Title)))
	r.border(w, TeeRight, TeeLeft)
	r.line(w, r.paint(Dim, fmt.Sprintf(" %-8s %7s %7s %6s %7s %7s %6s %14s ",
		"SYMBOL", "BARS", "SIGNALS", "AMBIG", "ENTRIES", "REJECT", "EXITS", "P&L")))

	var total core.Stats
	total.RealizedPnL = decimal.Zero
	for _, sym := range symbols {
		st := stats[sym]
		r.row(w, sym, st)
		total.Bars += st.Bars
		total.Signals += st.Signals
		total.Ambiguous += st.Ambiguous
		total.Entries += st.Entries
		total.Rejected += st.Rejected
		total.Exits += st.Exits
		total.RealizedPnL = total.RealizedPnL.Add(st.RealizedPnL)
	}

	r.border(w, TeeRight, TeeLeft)
	r.row(w, "TOTAL", total)
	r.border(w, BottomLeft, BottomRight)
}

func (r *Report) row(w io.Writer, sym string, st core.Stats) {
	pnl := st.RealizedPnL.StringFixed(2)
	if st.RealizedPnL.IsPositive() {
		pnl = "+" + pnl
	}
	color := FgGreen
	if st.RealizedPnL.IsNegative() {
		color = FgRed
	}
	text := fmt.Sprintf(" %-8s %7d %7d %6d %7d %7d %6d ",
		sym, st.Bars, st.Signals, st.Ambiguous, st.Entries, st.Rejected, st.Exits)
	r.line(w, text+r.paint(color, fmt.Sprintf("%14s ", pnl)))
}

func (r *Report) border(w io.Writer, left, right string) {
	fmt.Fprintln(w, r.paint(FgCyan, left+strings.Repeat(Horizontal, tableWidth)+right))
}

func (r *Report) line(w io.Writer, text string) {
	v := r.paint(FgCyan, Vertical)
	fmt.Fprintln(w, v+text+v)
}

func (r *Report) paint(code, text string) string {
	if !r.Color {
		return text
	}
	return code + text + Reset
}
