// Package pdfreport renders a titled list of text lines into a paginated A4 PDF.
package pdfreport

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
)

const (
	pageHeight   = 297.0
	marginLeft   = 20.0
	marginTop    = 25.0
	marginBottom = 20.0
	lineHeight   = 8.0
	titleSize    = 16.0
	textSize     = 12.0

	utf8Family = "report"
	coreFamily = "Helvetica"
)

// ErrUnencodable is returned when no font is configured and the text holds
// characters the core fonts cannot draw.
var ErrUnencodable = errors.New("text not representable in cp1252")

// Renderer draws one line per vertical offset and starts a new page when the
// next line would cross the bottom margin.
type Renderer struct {
	font []byte
}

// New creates a Renderer. fontPath names a TrueType font used for non-Latin
// text; empty falls back to the core Helvetica font with cp1252 encoding, and
// Render then fails with ErrUnencodable on text outside that code page.
func New(fontPath string) (*Renderer, error) {
	r := &Renderer{}
	if fontPath != "" {
		font, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font: %w", err)
		}
		r.font = font
	}
	return r, nil
}

// Render returns the PDF document.
func (r *Renderer) Render(title string, lines []string) ([]byte, error) {
	pdf, err := r.draw(title, lines)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) draw(title string, lines []string) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(title, true)

	family := coreFamily
	translate := func(s string) string { return s }
	if r.font != nil {
		pdf.AddUTF8FontFromBytes(utf8Family, "", r.font)
		family = utf8Family
	} else {
		cp1252 := pdf.UnicodeTranslatorFromDescriptor("")
		for _, s := range append([]string{title}, lines...) {
			if err := checkEncodable(s, cp1252(s)); err != nil {
				return nil, err
			}
		}
		translate = cp1252
	}

	pdf.AddPage()
	y := marginTop
	pdf.SetFont(family, "", titleSize)
	pdf.Text(marginLeft, y, translate(title))
	y += 2 * lineHeight

	pdf.SetFont(family, "", textSize)
	for _, line := range lines {
		if y > pageHeight-marginBottom {
			pdf.AddPage()
			y = marginTop
		}
		pdf.Text(marginLeft, y, translate(line))
		y += lineHeight
	}
	return pdf, nil
}

// checkEncodable compares s with its single-byte translation, where every
// rune missing from the code page became a '.'.
func checkEncodable(s, translated string) error {
	i := 0
	for _, c := range s {
		if i < len(translated) && translated[i] == '.' && c != '.' {
			return fmt.Errorf("%w: %q in %q", ErrUnencodable, c, s)
		}
		i++
	}
	return nil
}
