package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polytrend/internal/portfolio"
)

// Console implementa ports.Notifier escribiendo el resumen de cada ciclo
// a stdout.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout. Con table=true
// imprime la tabla de posiciones abiertas además del resumen compacto.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el estado del portfolio tras un ciclo de scan.
func (c *Console) Notify(_ context.Context, snap portfolio.Snapshot) error {
	c.printCompact(snap)
	if c.table && len(snap.OpenPositions) > 0 {
		c.printTable(snap)
	}
	if c.table && snap.Insights != nil {
		c.printInsights(*snap.Insights)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(snap portfolio.Snapshot) {
	now := time.Now().Format("15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] cap $%.2f (avail $%.2f) pnl %+.2f (%+.1f%%) | open:%d W:%d L:%d stop:%d",
		now, snap.CapitalTotal, snap.CapitalAvailable, snap.PnL, snap.ROI,
		len(snap.OpenPositions), snap.Won, snap.Lost, snap.Stopped)

	if snap.Partial1+snap.Partial2 > 0 {
		fmt.Fprintf(&sb, " part:%d/%d", snap.Partial1, snap.Partial2)
	}
	if snap.Liquidated > 0 {
		fmt.Fprintf(&sb, " liq:%d", snap.Liquidated)
	}

	shown := 0
	for _, pos := range sortedByPnL(snap.OpenPositions) {
		if shown >= 3 {
			break
		}
		fmt.Fprintf(&sb, " | %s %.3f→%.3f %+.2f", pos.City, pos.EntryYes, pos.CurrentYes, pos.PnL)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printTable imprime la tabla completa de posiciones abiertas.
func (c *Console) printTable(snap portfolio.Snapshot) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "City", "Market", "Entry", "Now", "Stage", "Alloc", "PnL", "Age")

	for i, pos := range sortedByPnL(snap.OpenPositions) {
		table.Append(
			fmt.Sprintf("%d", i+1),
			pos.City,
			truncate(pos.Question, 38),
			fmt.Sprintf("%.3f", pos.EntryYes),
			fmt.Sprintf("%.3f", pos.CurrentYes),
			fmt.Sprintf("%d/3", pos.ExitStage),
			fmt.Sprintf("$%.2f", pos.Allocated),
			fmt.Sprintf("%+.2f", pos.PnL),
			ageLabel(pos.OpenedAt),
		)
	}
	table.Render()
}

// printInsights imprime el win rate por hora de apertura y por región.
func (c *Console) printInsights(ins portfolio.Insights) {
	fmt.Fprintf(c.out, "  win rate: %.0f%% en %d trades\n", ins.OverallWinRate*100, ins.TotalTrades)
	if len(ins.ByHour) > 0 {
		var parts []string
		for _, h := range ins.ByHour {
			parts = append(parts, fmt.Sprintf("%02d:00 %.0f%% (%d)", h.Hour, h.WinRate*100, h.Trades))
		}
		fmt.Fprintf(c.out, "  best hours: %s\n", strings.Join(parts, ", "))
	}
	if len(ins.ByRegion) > 0 {
		var parts []string
		for _, r := range ins.ByRegion {
			parts = append(parts, fmt.Sprintf("%s %.0f%% (%d)", r.Region, r.WinRate*100, r.Trades))
		}
		fmt.Fprintf(c.out, "  regions: %s\n", strings.Join(parts, ", "))
	}
}

// --- helpers ---

func sortedByPnL(views []portfolio.OpenPositionView) []portfolio.OpenPositionView {
	out := append([]portfolio.OpenPositionView(nil), views...)
	sort.Slice(out, func(i, j int) bool { return out[i].PnL > out[j].PnL })
	return out
}

func ageLabel(openedAt time.Time) string {
	age := time.Since(openedAt)
	if age < time.Hour {
		return fmt.Sprintf("%.0fm", age.Minutes())
	}
	return fmt.Sprintf("%.1fh", age.Hours())
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
