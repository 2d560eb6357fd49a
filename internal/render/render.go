// Package render turns records into cards and writes them as HTML.
//
// Record fields only ever reach markup through html/template, which escapes
// text nodes and sanitizes the card link's href. Nothing here builds markup
// by string concatenation.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"

	"github.com/starford/langcards/internal/models"
)

// DefaultLinkLabel is the text of the link on every card.
const DefaultLinkLabel = "Learn more"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

// Card is the visual representation of one record.
type Card struct {
	Title        string
	Description  string
	CreationInfo string
	Href         string
	LinkLabel    string
}

// Container receives cards. Render always clears it before appending,
// so a container only ever shows the cards of the latest render.
type Container interface {
	Clear()
	Append(card Card)
}

// Flusher is implemented by containers that publish their contents once
// all cards of a render have been appended.
type Flusher interface {
	Flush()
}

// Renderer builds cards from records.
type Renderer struct {
	linkLabel string
	logger    *slog.Logger
}

// NewRenderer creates a Renderer. An empty label falls back to DefaultLinkLabel.
func NewRenderer(linkLabel string, logger *slog.Logger) *Renderer {
	if linkLabel == "" {
		linkLabel = DefaultLinkLabel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{linkLabel: linkLabel, logger: logger}
}

// Card converts a record into a card.
func (r *Renderer) Card(rec models.Record) Card {
	return Card{
		Title:        rec.Name,
		Description:  rec.Description,
		CreationInfo: rec.CreationInfo,
		Href:         rec.Link,
		LinkLabel:    r.linkLabel,
	}
}

// Cards converts records into cards, preserving order.
func (r *Renderer) Cards(records []models.Record) []Card {
	out := make([]Card, len(records))
	for i, rec := range records {
		out[i] = r.Card(rec)
	}
	return out
}

// Render replaces the contents of c with one card per record, in order.
func (r *Renderer) Render(c Container, records []models.Record) {
	c.Clear()
	for _, rec := range records {
		r.logger.Debug("render: card", slog.String("name", rec.Name))
		c.Append(r.Card(rec))
	}
	if f, ok := c.(Flusher); ok {
		f.Flush()
	}
}

// WriteCards writes the HTML for cards, one <article class="card"> each.
func WriteCards(w io.Writer, cards []Card) error {
	return templates.ExecuteTemplate(w, "cards", cards)
}

// Page is the data of the full search page.
type Page struct {
	Title   string
	Query   string
	Session string
	Seq     uint64
	Cards   []Card
}

// WritePage writes the full HTML page with its search box and card container.
func WritePage(w io.Writer, p Page) error {
	return templates.ExecuteTemplate(w, "page", p)
}

// WriteText writes cards as plain text blocks for terminals.
func WriteText(w io.Writer, cards []Card) error {
	for i, c := range cards {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n  %s\n  %s\n  %s: %s\n",
			c.Title, c.Description, c.CreationInfo, c.LinkLabel, c.Href); err != nil {
			return err
		}
	}
	return nil
}
