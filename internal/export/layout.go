package export

// Column is one table column in pixels.
type Column struct {
	Title string
	X     float64
	Width float64
}

// Layout fixes every coordinate of the raster export. Nothing depends on
// anything but the section being drawn.
type Layout struct {
	Width   float64
	Margin  float64
	Header  float64
	Podium  float64
	Row     float64
	Footer  float64
	Columns []Column
}

// PodiumBars are the bar heights for first, second and third place.
var PodiumBars = [3]float64{120, 90, 70}

var imageColumnWidths = []float64{50, 45, 45, 150, 120, 130, 60, 55, 55, 60, 75, 115}

func DefaultLayout() Layout {
	l := Layout{
		Width:  1000,
		Margin: 20,
		Header: 120,
		Podium: 180,
		Row:    32,
		Footer: 48,
	}
	x := l.Margin
	for i, title := range Columns {
		l.Columns = append(l.Columns, Column{Title: title, X: x, Width: imageColumnWidths[i]})
		x += imageColumnWidths[i]
	}
	return l
}

// Height is the image height for a table of rows entries; the podium block
// is counted only when shown.
func (l Layout) Height(rows int, podium bool) float64 {
	h := l.Header + l.Row*float64(rows+1) + l.Footer
	if podium {
		h += l.Podium
	}
	return h
}

// PodiumSlot is where one podium place is drawn.
type PodiumSlot struct {
	Place   int
	CenterX float64
	Height  float64
}

// PodiumSlots returns places 2, 1, 3 from left to right.
func (l Layout) PodiumSlots() []PodiumSlot {
	step := l.Width / 4
	return []PodiumSlot{
		{Place: 2, CenterX: step, Height: PodiumBars[1]},
		{Place: 1, CenterX: 2 * step, Height: PodiumBars[0]},
		{Place: 3, CenterX: 3 * step, Height: PodiumBars[2]},
	}
}

// TableTop is the y of the table header row.
func (l Layout) TableTop(podium bool) float64 {
	if podium {
		return l.Header + l.Podium
	}
	return l.Header
}
