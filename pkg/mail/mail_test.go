package mail

import (
	"context"
	"html/template"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendUsesConfiguredSender(t *testing.T) {
	box := &Outbox{}
	prev := SetSender(box)
	defer SetSender(prev)

	tmpl := template.Must(template.New("greet").Parse(`<p>Hello {{.Name}}</p>`))
	err := To("ravi@example.com").Subject("Hi").Render(tmpl, map[string]string{"Name": "<Ravi>"}).Send(context.Background())
	require.NoError(t, err)

	sent := box.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ravi@example.com"}, sent[0].Recipients())
	assert.Equal(t, "Hi", sent[0].SubjectLine())
	assert.Equal(t, "<p>Hello &lt;Ravi&gt;</p>", sent[0].Body())
}

func TestSendErrors(t *testing.T) {
	box := &Outbox{}
	prev := SetSender(box)
	defer SetSender(prev)

	assert.Error(t, To().Subject("x").Text("y").Send(context.Background()))

	bad := template.Must(template.New("bad").Parse(`{{.Missing.Field}}`))
	err := To("a@b.in").Render(bad, struct{}{}).Send(context.Background())
	assert.ErrorContains(t, err, "mail: render bad")
	assert.Empty(t, box.Sent())
}

func TestRawHeaders(t *testing.T) {
	raw := string(To("a@b.in", "c@d.in").Subject("Order").Text("body").Raw("Shop <s@shop.in>"))
	assert.True(t, strings.HasPrefix(raw, "From: Shop <s@shop.in>\r\nTo: a@b.in, c@d.in\r\n"))
	assert.Contains(t, raw, "Content-Type: text/plain")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nbody"))
}
