package digest

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/kanflow/movedigest/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// Rendered is a fully rendered email body.
type Rendered struct {
	HTML string
	Text string
}

type view struct {
	ProductName string
	Preview     string
	Count       int
	Movements   []domain.Movement
}

// Renderer renders email templates by id. Only CARD_MOVE_DIGEST exists today.
type Renderer struct {
	productName string
	html        map[string]*htmltemplate.Template
	text        map[string]*texttemplate.Template
}

// NewRenderer parses the embedded templates once at startup.
func NewRenderer(productName string) (*Renderer, error) {
	h, err := htmltemplate.ParseFS(templateFS, "templates/card_move_digest.html")
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}
	t, err := texttemplate.ParseFS(templateFS, "templates/card_move_digest.txt")
	if err != nil {
		return nil, fmt.Errorf("parse text template: %w", err)
	}
	return &Renderer{
		productName: productName,
		html:        map[string]*htmltemplate.Template{domain.CardMoveDigestTemplate: h},
		text:        map[string]*texttemplate.Template{domain.CardMoveDigestTemplate: t},
	}, nil
}

// Render produces the HTML and plain-text bodies for templateID. Movements
// appear in the order they were serialised.
func (r *Renderer) Render(templateID string, data map[string]string) (*Rendered, error) {
	h, ok := r.html[templateID]
	if !ok {
		return nil, fmt.Errorf("unknown email template %q", templateID)
	}
	movements, err := ParseTemplateData(data)
	if err != nil {
		return nil, err
	}

	v := view{
		ProductName: r.productName,
		Preview:     Preview(len(movements)),
		Count:       len(movements),
		Movements:   movements,
	}

	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, v); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	if err := r.text[templateID].Execute(&tb, v); err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}
	return &Rendered{HTML: hb.String(), Text: tb.String()}, nil
}
