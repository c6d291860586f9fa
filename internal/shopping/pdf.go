package shopping

import (
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const pdfFontFamily = "ShoppingList"

// PDFRenderer lays the report out on A4 pages. The zero value uses
// A4Layout and the embedded font.
type PDFRenderer struct {
	Layout   Layout
	FontPath string
}

func NewPDFRenderer(fontPath string) *PDFRenderer {
	return &PDFRenderer{Layout: A4Layout, FontPath: fontPath}
}

func (*PDFRenderer) ContentType() string { return "application/pdf" }

func (*PDFRenderer) Filename() string { return "shopping_cart.pdf" }

func (r *PDFRenderer) Render(ctx context.Context, w io.Writer, report Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	font, err := LoadFont(r.FontPath)
	if err != nil {
		return err
	}

	layout := r.Layout.orDefault()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetTitle("Shopping list", true)
	doc.SetCreator("foodgram", true)
	doc.SetAutoPageBreak(false, 0)
	doc.AddUTF8FontFromBytes(pdfFontFamily, "", font)

	for _, page := range Paginate(layout, report) {
		doc.AddPage()
		doc.SetFont(pdfFontFamily, "", layout.FontSize)
		for _, line := range page.Lines {
			doc.Text(line.X, line.Y, line.Text)
		}
	}

	if err := doc.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
