package shopping

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownFormat reports an export format with no registered renderer.
var ErrUnknownFormat = errors.New("shopping: unknown export format")

// DefaultFormat is used when the caller does not ask for a format.
const DefaultFormat = "pdf"

// Document is a rendered shopping list ready to be sent to the client.
type Document struct {
	ContentType string
	Filename    string
	Body        []byte
	// Entries is the number of aggregated lines in the document.
	Entries int
}

// Service wires a cart source to the available renderers.
type Service struct {
	Reader    CartReader
	Renderers map[string]Renderer
}

// NewService registers the pdf, html and txt renderers.
func NewService(reader CartReader, fontPath string) *Service {
	return &Service{
		Reader: reader,
		Renderers: map[string]Renderer{
			"pdf":  NewPDFRenderer(fontPath),
			"html": HTMLRenderer{},
			"txt":  TextRenderer{},
		},
	}
}

// Formats lists the registered format names in sorted order.
func (s *Service) Formats() []string {
	formats := make([]string, 0, len(s.Renderers))
	for name := range s.Renderers {
		formats = append(formats, name)
	}
	sort.Strings(formats)
	return formats
}

// List aggregates the user's current cart.
func (s *Service) List(ctx context.Context, userID uint) (Report, error) {
	recipes, err := s.Reader.CartRecipes(ctx, userID)
	if err != nil {
		return Report{}, err
	}
	return Aggregate(recipes)
}

// Normalize maps a requested format onto a registered name. The empty
// string selects DefaultFormat.
func (s *Service) Normalize(format string) (string, bool) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = DefaultFormat
	}
	_, ok := s.Renderers[format]
	return format, ok
}

// Export aggregates the user's cart and renders it in format.
func (s *Service) Export(ctx context.Context, userID uint, format string) (Document, error) {
	name, ok := s.Normalize(format)
	if !ok {
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	renderer := s.Renderers[name]

	report, err := s.List(ctx, userID)
	if err != nil {
		return Document{}, err
	}

	var body bytes.Buffer
	if err := renderer.Render(ctx, &body, report); err != nil {
		return Document{}, err
	}

	return Document{
		ContentType: renderer.ContentType(),
		Filename:    renderer.Filename(),
		Body:        body.Bytes(),
		Entries:     len(report.Entries),
	}, nil
}
