package shopping

import (
	"context"
	"io"
)

//go:generate templ generate -f shopping_list.templ

// HTMLRenderer produces a printable page through the ShoppingListPage
// component.
type HTMLRenderer struct{}

func (HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }

func (HTMLRenderer) Filename() string { return "shopping_cart.html" }

func (HTMLRenderer) Render(ctx context.Context, w io.Writer, report Report) error {
	return ShoppingListPage(report).Render(ctx, w)
}
