package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToBubbleHTML(t *testing.T) {
	assert.Empty(t, ToBubbleHTML(""))

	out := ToBubbleHTML("**bold** and _italic_ with `code`")
	assert.Contains(t, out, "<b>bold</b>")
	assert.Contains(t, out, "<i>italic</i>")
	assert.Contains(t, out, "<code>code</code>")

	out = ToBubbleHTML("- one\n- two")
	assert.Contains(t, out, "• one")
	assert.Contains(t, out, "• two")
	assert.NotContains(t, out, "<ul>")
	assert.NotContains(t, out, "<li>")

	// headings are not part of the bubble tag set
	out = ToBubbleHTML("# Title")
	assert.NotContains(t, out, "<h1>")
	assert.Contains(t, out, "Title")
}
