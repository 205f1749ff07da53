package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/foodgram/foodgram-api/internal/apperr"
	"github.com/foodgram/foodgram-api/internal/recipe"
)

// ShoppingListTitle heads every rendered shopping list.
const ShoppingListTitle = "Shopping list"

// DocumentRenderer turns a titled list of lines into a document.
// *pdfreport.Renderer implements it.
type DocumentRenderer interface {
	Render(title string, lines []string) ([]byte, error)
}

// ShoppingListCompiler aggregates a user's cart into a shopping list.
type ShoppingListCompiler struct {
	store Store
	pdf   DocumentRenderer
}

// NewShoppingListCompiler creates a compiler rendering PDFs with pdf.
func NewShoppingListCompiler(store Store, pdf DocumentRenderer) *ShoppingListCompiler {
	return &ShoppingListCompiler{store: store, pdf: pdf}
}

// Compile sums the amounts of every ingredient across the recipes in the
// viewer's cart, one item per (name, measurement unit) ordered by name then
// unit. An empty cart yields an empty list.
func (c *ShoppingListCompiler) Compile(ctx context.Context, viewer Viewer) ([]recipe.ShoppingItem, error) {
	if !viewer.Authenticated() {
		return nil, apperr.ErrUnauthorized
	}
	items, err := c.store.ShoppingList(ctx, viewer.ID)
	if err != nil {
		return nil, internal(err)
	}
	return items, nil
}

// Lines formats items as "<name>, <unit>: <amount>".
func Lines(items []recipe.ShoppingItem) []string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%s, %s: %d", it.Name, it.MeasurementUnit, it.TotalAmount)
	}
	return lines
}

// RenderText returns the plain text shopping list: the title, then one line per item.
func RenderText(items []recipe.ShoppingItem) []byte {
	var b strings.Builder
	b.WriteString(ShoppingListTitle)
	b.WriteByte('\n')
	for _, line := range Lines(items) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// RenderPDF returns the shopping list as a paginated PDF document.
func (c *ShoppingListCompiler) RenderPDF(items []recipe.ShoppingItem) ([]byte, error) {
	doc, err := c.pdf.Render(ShoppingListTitle, Lines(items))
	if err != nil {
		return nil, internal(err)
	}
	return doc, nil
}
