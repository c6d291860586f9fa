package shopping

import (
	"context"
	"io"
)

// Renderer writes a report in one document format.
type Renderer interface {
	ContentType() string
	Filename() string
	Render(ctx context.Context, w io.Writer, report Report) error
}

// TextRenderer writes one entry per line.
type TextRenderer struct{}

func (TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }

func (TextRenderer) Filename() string { return "shopping_cart.txt" }

func (TextRenderer) Render(ctx context.Context, w io.Writer, report Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, entry := range report.Entries {
		if _, err := io.WriteString(w, entry.String()+"\n"); err != nil {
			return err
		}
	}
	return nil
}
