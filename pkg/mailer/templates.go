package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

var layout = template.Must(template.New("mail").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>{{.Title}}</h2>
{{range .Paragraphs}}<p>{{.}}</p>{{end}}
{{if .Code}}<p style="font-size:24px;letter-spacing:4px"><strong>{{.Code}}</strong></p>{{end}}
</body></html>`))

type content struct {
	Title      string
	Paragraphs []string
	Code       string
}

// Compose builds a Message with matching text and HTML bodies.
func Compose(to, subject string, code string, paragraphs ...string) (Message, error) {
	var html bytes.Buffer
	if err := layout.Execute(&html, content{Title: subject, Paragraphs: paragraphs, Code: code}); err != nil {
		return Message{}, fmt.Errorf("render mail: %w", err)
	}

	var text bytes.Buffer
	for _, p := range paragraphs {
		text.WriteString(p)
		text.WriteString("\n\n")
	}
	if code != "" {
		text.WriteString(code)
		text.WriteString("\n")
	}

	return Message{
		To:       to,
		Subject:  subject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}, nil
}
