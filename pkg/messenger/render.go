package messenger

import (
	"html"

	"github.com/s-home/messenger-go/pkg/attachment"
	"github.com/s-home/messenger-go/pkg/markdown"
)

// Render produces the bubble body for one message. The host's
// RenderMessage override wins; otherwise bot markdown is converted to the
// bubble HTML subset and user text is escaped verbatim.
func (w *Widget) Render(m Message) string {
	if w.opts.RenderMessage != nil {
		return w.opts.RenderMessage(m)
	}
	if m.Type == TypeBot {
		return markdown.ToBubbleHTML(m.Content)
	}
	return html.EscapeString(m.Content)
}

// Label resolves the display name shown above a bubble.
func (w *Widget) Label(m Message) string {
	if name, ok := w.opts.LabelUser[m.Type]; ok {
		return name
	}
	if m.Type == TypeBot {
		return "Bot"
	}
	return "You"
}

// ImageURIs returns the message's attachments as renderable data URIs.
func (w *Widget) ImageURIs(m Message) []string {
	if len(m.Images) == 0 {
		return nil
	}
	uris := make([]string, 0, len(m.Images))
	for _, img := range m.Images {
		if uri := attachment.DataURI(img); uri != "" {
			uris = append(uris, uri)
		}
	}
	return uris
}

// Placeholder returns the input placeholder text.
func (w *Widget) Placeholder() string {
	return w.opts.InputPlaceholder
}
