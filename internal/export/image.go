package export

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"runtime"
	"strings"
	"sync"
	"time"

	"agility-scorer/internal/domain"
	"agility-scorer/internal/ranking"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/sync/errgroup"
)

const brand = "Agility Scorer"

var (
	colorBackground = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	colorHeader     = color.RGBA{0x1F, 0x3A, 0x5F, 0xFF}
	colorHeaderText = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	colorText       = color.RGBA{0x22, 0x22, 0x22, 0xFF}
	colorMuted      = color.RGBA{0x77, 0x77, 0x77, 0xFF}
	colorStripe     = color.RGBA{0xF2, 0xF6, 0xFA, 0xFF}
	colorTableHead  = color.RGBA{0xDD, 0xEB, 0xF7, 0xFF}
	colorGold       = color.RGBA{0xD4, 0xAF, 0x37, 0xFF}
	colorSilver     = color.RGBA{0xB0, 0xB7, 0xBF, 0xFF}
	colorBronze     = color.RGBA{0xCD, 0x7F, 0x32, 0xFF}
)

var podiumColors = map[int]color.Color{1: colorGold, 2: colorSilver, 3: colorBronze}

var fonts = sync.OnceValues(func() (*[2]*truetype.Font, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	return &[2]*truetype.Font{regular, bold}, nil
})

// Image is one rendered (round, size) result.
type Image struct {
	Name    string
	Section Section
	PNG     []byte
}

// RenderImages renders every section in scope concurrently. The result
// follows Sections order.
func RenderImages(ctx context.Context, st domain.State, scope Scope, exportDate time.Time) ([]Image, error) {
	sections := Sections(st, scope)
	out := make([]Image, len(sections))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range sections {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			png, err := RenderImage(s, exportDate)
			if err != nil {
				return fmt.Errorf("failed to render %s %s: %w", s.Round.Name, s.Size, err)
			}
			out[i] = Image{Name: ImageName(s), Section: s, PNG: png}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ImageName is a file name safe slug for a section.
func ImageName(s Section) string {
	slug := strings.TrimPrefix(domain.DogIDFromName(s.Round.Name), "dog-")
	if slug == "" {
		slug = s.Round.ID
	}
	return fmt.Sprintf("%s-%s.png", slug, s.Size)
}

// RenderImage draws a single section as PNG.
func RenderImage(s Section, exportDate time.Time) ([]byte, error) {
	fs, err := fonts()
	if err != nil {
		return nil, err
	}
	l := DefaultLayout()
	podium := ranking.Podium(s.Ranked)
	height := l.Height(len(s.Ranked), podium != nil)

	dc := gg.NewContext(int(l.Width), int(height))
	dc.SetColor(colorBackground)
	dc.Clear()

	face := func(bold bool, size float64) font.Face {
		f := fs[0]
		if bold {
			f = fs[1]
		}
		return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	}

	drawHeader(dc, l, s, face)
	if podium != nil {
		drawPodium(dc, l, podium, face)
	}
	drawTable(dc, l, s.Ranked, l.TableTop(podium != nil), face)
	drawFooter(dc, l, height, exportDate, face)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

type faceFunc func(bold bool, size float64) font.Face

func drawHeader(dc *gg.Context, l Layout, s Section, face faceFunc) {
	dc.SetColor(colorHeader)
	dc.DrawRectangle(0, 0, l.Width, l.Header)
	dc.Fill()

	dc.SetColor(colorHeaderText)
	dc.SetFontFace(face(true, 30))
	dc.DrawStringAnchored(fit(dc, s.Round.Name, l.Width-260), l.Margin, 48, 0, 0.5)

	badge := s.Size.Label()
	dc.SetFontFace(face(true, 16))
	bw, _ := dc.MeasureString(badge)
	dc.SetColor(colorGold)
	dc.DrawRoundedRectangle(l.Width-l.Margin-bw-24, 30, bw+24, 32, 8)
	dc.Fill()
	dc.SetColor(colorHeader)
	dc.DrawStringAnchored(badge, l.Width-l.Margin-bw/2-12, 46, 0.5, 0.5)

	dc.SetColor(colorHeaderText)
	dc.SetFontFace(face(false, 16))
	times := fmt.Sprintf("SCT %s   MCT %s", SecondsText(s.CourseTime.SCT), SecondsText(s.CourseTime.MCT))
	dc.DrawStringAnchored(times, l.Margin, 92, 0, 0.5)
}

func drawPodium(dc *gg.Context, l Layout, podium []domain.RankedCompetitor, face faceFunc) {
	base := l.Header + l.Podium - 12
	barWidth := l.Width / 5
	for _, slot := range l.PodiumSlots() {
		c := podium[slot.Place-1]
		x := slot.CenterX - barWidth/2
		top := base - slot.Height

		dc.SetColor(podiumColors[slot.Place])
		dc.DrawRectangle(x, top, barWidth, slot.Height)
		dc.Fill()

		dc.SetColor(colorHeaderText)
		dc.SetFontFace(face(true, 28))
		dc.DrawStringAnchored(fmt.Sprint(slot.Place), slot.CenterX, top+slot.Height/2, 0.5, 0.5)

		dc.SetColor(colorText)
		dc.SetFontFace(face(true, 15))
		dc.DrawStringAnchored(fit(dc, c.DogName, barWidth+40), slot.CenterX, top-26, 0.5, 0.5)
		dc.SetColor(colorMuted)
		dc.SetFontFace(face(false, 12))
		dc.DrawStringAnchored(fit(dc, c.Handler, barWidth+40), slot.CenterX, top-10, 0.5, 0.5)
	}
}

func drawTable(dc *gg.Context, l Layout, ranked []domain.RankedCompetitor, top float64, face faceFunc) {
	tableWidth := l.Width - 2*l.Margin

	dc.SetColor(colorTableHead)
	dc.DrawRectangle(l.Margin, top, tableWidth, l.Row)
	dc.Fill()
	dc.SetColor(colorText)
	dc.SetFontFace(face(true, 12))
	for _, col := range l.Columns {
		dc.DrawStringAnchored(fit(dc, col.Title, col.Width-6), col.X+4, top+l.Row/2, 0, 0.5)
	}

	dc.SetFontFace(face(false, 13))
	for i, rc := range ranked {
		y := top + l.Row*float64(i+1)
		if i%2 == 1 {
			dc.SetColor(colorStripe)
			dc.DrawRectangle(l.Margin, y, tableWidth, l.Row)
			dc.Fill()
		}
		dc.SetColor(colorText)
		if rc.Rank == nil {
			dc.SetColor(colorMuted)
		}
		for j, cell := range Cells(rc) {
			col := l.Columns[j]
			dc.DrawStringAnchored(fit(dc, cell, col.Width-6), col.X+4, y+l.Row/2, 0, 0.5)
		}
	}
}

func drawFooter(dc *gg.Context, l Layout, height float64, exportDate time.Time, face faceFunc) {
	y := height - l.Footer/2
	dc.SetColor(colorMuted)
	dc.DrawLine(l.Margin, height-l.Footer, l.Width-l.Margin, height-l.Footer)
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.SetFontFace(face(true, 13))
	dc.DrawStringAnchored(brand, l.Margin, y, 0, 0.5)
	dc.SetFontFace(face(false, 13))
	dc.DrawStringAnchored(exportDate.UTC().Format("2006-01-02 15:04 MST"), l.Width-l.Margin, y, 1, 0.5)
}

// fit shortens s with an ellipsis until it is at most width wide.
func fit(dc *gg.Context, s string, width float64) string {
	if w, _ := dc.MeasureString(s); w <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 {
		r = r[:len(r)-1]
		candidate := string(r) + "…"
		if w, _ := dc.MeasureString(candidate); w <= width {
			return candidate
		}
	}
	return ""
}
