package overlay_test

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftyard/simcore/internal/overlay"
	"github.com/driftyard/simcore/internal/world"
)

type grid struct {
	w, h   int
	cells  [][]rune
	styles map[[2]int]tcell.Style
}

func newGrid(w, h int) *grid {
	g := &grid{w: w, h: h, styles: map[[2]int]tcell.Style{}}
	for i := 0; i < h; i++ {
		g.cells = append(g.cells, []rune(strings.Repeat(" ", w)))
	}
	return g
}

func (g *grid) SetContent(x, y int, r rune, _ []rune, style tcell.Style) {
	g.cells[y][x] = r
	g.styles[[2]int{x, y}] = style
}

func (g *grid) Size() (int, int) { return g.w, g.h }

func (g *grid) row(y int) string { return strings.TrimRight(string(g.cells[y]), " ") }

func stats() world.Stats {
	return world.Stats{
		Tick:        42,
		Live:        3,
		MaxEntities: 64,
		MintedIDs:   7,
		LiveByKind:  map[world.Kind]int{world.KindDebris: 2, world.KindShip: 1},
		PoolSizes:   map[world.Kind]int{world.KindProjectile: 4},
		TierSizes:   map[world.Tier]int{world.TierHigh: 1, world.TierNormal: 2},
		MaxTick:     1500 * time.Microsecond,
	}
}

func TestRender(t *testing.T) {
	g := newGrid(120, 20)
	rows := overlay.Render(g, stats())
	require.Equal(t, 8, rows)

	assert.Equal(t, "simcore  tick 42", g.row(0))
	assert.Contains(t, g.row(1), "live 3/64")
	assert.Contains(t, g.row(2), "ship 1  debris 2")
	assert.Contains(t, g.row(3), "projectile 4")
	assert.Contains(t, g.row(4), "high 1 (0)")
	assert.Contains(t, g.row(6), "max 1.50ms")
}

func TestRenderClipsToCanvas(t *testing.T) {
	g := newGrid(20, 3)
	assert.NotPanics(t, func() {
		rows := overlay.Render(g, stats())
		assert.Equal(t, 3, rows)
	})
	assert.Equal(t, "entities  live 3/64", g.row(1))
}

func TestRenderHighlightsOverruns(t *testing.T) {
	st := stats()
	g := newGrid(120, 20)
	overlay.Render(g, st)
	calm := g.styles[[2]int{10, 6}]

	st.Overruns = 1
	g = newGrid(120, 20)
	overlay.Render(g, st)
	assert.NotEqual(t, calm, g.styles[[2]int{10, 6}])
}
