package overlay

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/driftyard/simcore/internal/world"
)

// Canvas is the part of tcell.Screen the renderer draws on.
type Canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (int, int)
}

var (
	styleText  = tcell.StyleDefault
	styleTitle = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleLabel = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleAlert = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// Overlay shows the statistics surface in the terminal. Draw is called from
// the simulation goroutine; input is polled on a separate goroutine and only
// signals Done.
type Overlay struct {
	screen tcell.Screen
	done   chan struct{}
	once   sync.Once
}

func New() (*Overlay, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("overlay screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("overlay init: %w", err)
	}
	o := &Overlay{screen: screen, done: make(chan struct{})}
	go o.poll()
	return o, nil
}

func (o *Overlay) poll() {
	for {
		ev := o.screen.PollEvent()
		if ev == nil {
			return // screen finalized
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				o.once.Do(func() { close(o.done) })
			}
		case *tcell.EventResize:
			o.screen.Sync()
		}
	}
}

// Done is closed when the user asks to quit (q, Esc or Ctrl-C).
func (o *Overlay) Done() <-chan struct{} { return o.done }

func (o *Overlay) Draw(st world.Stats) {
	o.screen.Clear()
	Render(o.screen, st)
	o.screen.Show()
}

func (o *Overlay) Close() {
	o.screen.Fini()
}

// Render draws st on c and returns the number of rows used.
func Render(c Canvas, st world.Stats) int {
	w, h := c.Size()
	y := 0
	line := func(label string, style tcell.Style, text string) {
		if y >= h {
			return
		}
		x := drawText(c, 0, y, w, styleLabel, fmt.Sprintf("%-10s", label))
		drawText(c, x, y, w, style, text)
		y++
	}

	drawText(c, 0, y, w, styleTitle, fmt.Sprintf("simcore  tick %d", st.Tick))
	y++
	line("entities", styleText, fmt.Sprintf("live %d/%d  ids %d  queued destroys %d",
		st.Live, st.MaxEntities, st.MintedIDs, st.QueuedDestroys))
	line("kinds", styleText, kindList(st.LiveByKind))
	line("pools", styleText, fmt.Sprintf("%s  hits %d  misses %d", kindList(st.PoolSizes), st.PoolHits, st.PoolMisses))
	line("tiers", styleText, tierList(st.TierSizes, st.TierInvocations))
	line("grid", styleText, fmt.Sprintf("cells %d  moves %d  queries %d/%d  pending %d  resolved %d",
		st.GridCells, st.GridMoves, st.GridQueries, st.SyncQueries, st.PendingQueries, st.QueriesResolved))

	frameStyle := styleText
	if st.Overruns > 0 || st.SlowQueries > 0 {
		frameStyle = styleAlert
	}
	line("frame", frameStyle, fmt.Sprintf("last %s  avg %s  max %s  overruns %d  slow queries %d",
		ms(st.LastTick), ms(st.AvgTick), ms(st.MaxTick), st.Overruns, st.SlowQueries))
	line("lifecycle", styleText, fmt.Sprintf("created %d  destroyed %d  rejected %d",
		st.Created, st.Destroyed, st.Rejected))
	return y
}

func drawText(c Canvas, x, y, maxX int, style tcell.Style, s string) int {
	for _, r := range s {
		if x >= maxX {
			break
		}
		c.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

func kindList(m map[world.Kind]int) string {
	if len(m) == 0 {
		return "-"
	}
	var parts []string
	for _, k := range world.Kinds() {
		if n, ok := m[k]; ok {
			parts = append(parts, fmt.Sprintf("%s %d", k, n))
		}
	}
	return strings.Join(parts, "  ")
}

func tierList(sizes map[world.Tier]int, inv map[world.Tier]uint64) string {
	parts := make([]string, 0, world.TierCount)
	for _, t := range world.Tiers() {
		parts = append(parts, fmt.Sprintf("%s %d (%d)", t, sizes[t], inv[t]))
	}
	return strings.Join(parts, "  ")
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}
