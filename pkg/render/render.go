// Package render draws the radar into a terminal with tcell.
//
// The radar occupies the right side of the screen and the host list the
// left. Render units map to cells at a fixed scale, so a radius of 200
// fits a 100x50 terminal.
package render

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"

	"github.com/Xenebia/Radar-Scan/pkg/host"
	"github.com/Xenebia/Radar-Scan/pkg/radar"
)

const (
	// UnitsPerColumn and UnitsPerRow scale render units to terminal cells.
	// Cells are about twice as tall as wide.
	UnitsPerColumn = 8
	UnitsPerRow    = 16

	// RadiusStep is the radius change per key press.
	RadiusStep = 10

	// ListWidth is the number of columns reserved for the host list.
	ListWidth = 40

	rings      = 4
	ringPoints = 180
	trailLines = 10
	trailStep  = 0.05
)

var (
	ringStyle  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(0, 110, 0))
	labelStyle = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	onStyle    = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	offStyle   = tcell.StyleDefault.Foreground(tcell.ColorRed)
	titleStyle = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	helpStyle  = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// Radar draws a radar.View onto a tcell screen and handles its keys.
type Radar struct {
	screen tcell.Screen
	view   radar.View
	now    func() time.Time
}

// New returns a renderer for view. The screen must already be initialised.
func New(screen tcell.Screen, view radar.View) *Radar {
	return &Radar{
		screen: screen,
		view:   view,
		now:    time.Now,
	}
}

// Run redraws on every signal from redraw and dispatches key events until
// the user quits or ctx is cancelled.
func (r *Radar) Run(ctx context.Context, redraw <-chan struct{}) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go r.screen.ChannelEvents(events, quit)

	r.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-redraw:
			r.Draw()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if r.HandleKey(ev) {
					return nil
				}
				r.Draw()
			case *tcell.EventResize:
				r.screen.Sync()
				r.Draw()
			}
		}
	}
}

// HandleKey applies a key press and reports whether the user asked to quit.
func (r *Radar) HandleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		r.view.SetRadius(r.view.Radius() + RadiusStep)
	case tcell.KeyDown:
		r.view.SetRadius(r.view.Radius() - RadiusStep)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return true
		case '+', '=':
			r.view.SetRadius(r.view.Radius() + RadiusStep)
		case '-', '_':
			r.view.SetRadius(r.view.Radius() - RadiusStep)
		}
	}
	return false
}

// Draw renders one frame.
func (r *Radar) Draw() {
	r.screen.Clear()

	width, height := r.screen.Size()
	hosts := r.view.Hosts()
	radius := r.view.Radius()
	cx, cy := center(width, height)

	r.drawRings(cx, cy, radius)
	r.drawTrail(cx, cy, radius, r.view.Angle())
	r.drawMarkers(cx, cy, hosts)
	r.drawList(hosts, height)
	drawText(r.screen, 0, height-1, width,
		fmt.Sprintf("radius %d  up/down or +/- to adjust  q to quit", radius), helpStyle)

	r.screen.Show()
}

func (r *Radar) drawRings(cx, cy, radius int) {
	for i := 1; i <= rings; i++ {
		ringRadius := float64(radius * i / rings)
		for p := range ringPoints {
			a := radar.FullTurn * float64(p) / ringPoints
			x, y := cell(cx, cy, ringRadius*math.Cos(a), ringRadius*math.Sin(a))
			r.screen.SetContent(x, y, '.', nil, ringStyle)
		}
	}
}

func (r *Radar) drawTrail(cx, cy, radius int, angle float64) {
	// Oldest line first so the leading edge stays on top.
	for i := trailLines - 1; i >= 0; i-- {
		a := angle - float64(i)*trailStep
		style := tcell.StyleDefault.Foreground(trailColor(i))
		ch := ':'
		if i == 0 {
			ch = '*'
		}
		for d := UnitsPerColumn; d <= radius; d += UnitsPerColumn / 2 {
			x, y := cell(cx, cy, float64(d)*math.Cos(a), float64(d)*math.Sin(a))
			r.screen.SetContent(x, y, ch, nil, style)
		}
	}
}

func (r *Radar) drawMarkers(cx, cy int, hosts []host.Host) {
	for _, h := range hosts {
		x, y := cell(cx, cy, float64(h.Position.X), float64(h.Position.Y))
		switch {
		case h.Online:
			r.screen.SetContent(x, y, '@', nil, onStyle)
		case h.Visible():
			r.screen.SetContent(x, y, 'o', nil, tcell.StyleDefault.Foreground(fadeColor(h.Fade)))
		}
		label := h.Label()
		drawText(r.screen, x+2, y-1, len(label), label, labelStyle)
	}
}

func (r *Radar) drawList(hosts []host.Host, height int) {
	drawText(r.screen, 1, 0, ListWidth-1, "Hosts detected:", titleStyle)

	rows := max(height-3, 0)
	now := r.now()
	for i, h := range hosts {
		if i >= rows {
			drawText(r.screen, 1, 2+i, ListWidth-1, fmt.Sprintf("... +%d more", len(hosts)-i), helpStyle)
			return
		}
		drawText(r.screen, 1, 2+i, ListWidth-1, listLine(h, now), listStyle(h))
	}
}

// listLine formats one row of the host list.
func listLine(h host.Host, now time.Time) string {
	tag := "[OFF]"
	if h.Online {
		tag = "[ON]"
	}
	seen := "never"
	if !h.LastSeen.IsZero() {
		seen = humanize.RelTime(h.LastSeen, now, "ago", "from now")
	}
	return fmt.Sprintf("%-15s %-5s %s", h.Address, tag, seen)
}

func listStyle(h host.Host) tcell.Style {
	if h.Online {
		return labelStyle
	}
	return offStyle
}

// center returns the cell at the middle of the radar area.
func center(width, height int) (int, int) {
	return ListWidth + (width-ListWidth)/2, height / 2
}

// cell maps a render-space offset from the centre to a screen cell.
func cell(cx, cy int, x, y float64) (int, int) {
	return cx + int(math.Round(x/UnitsPerColumn)), cy + int(math.Round(y/UnitsPerRow))
}

// trailColor dims the sweep trail from the leading edge backwards.
func trailColor(i int) tcell.Color {
	g := 255 - int32(i)*20
	return tcell.NewRGBColor(0, g, 0)
}

// fadeColor maps a fade value to a red whose brightness follows it.
func fadeColor(fade int) tcell.Color {
	fade = min(max(fade, 0), host.MaxFade)
	return tcell.NewRGBColor(int32(55+fade*200/host.MaxFade), 0, 0)
}

// drawText writes text at (x, y), truncated to width cells.
func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	if width <= 0 {
		return
	}
	col := 0
	for _, r := range text {
		if col >= width {
			return
		}
		if r == '\n' || r == '\r' {
			return
		}
		if r == '\t' {
			r = ' '
		}
		screen.SetContent(x+col, y, r, nil, style)
		col++
	}
}
