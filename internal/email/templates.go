package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type meetingOfferData struct {
	Greeting     string
	Body         template.HTML
	CallToAction string
	BookingURL   string
	Signature    string
}

type genericReplyData struct {
	Greeting  string
	Body      template.HTML
	Signature string
}

type forwardData struct {
	Heading        string
	Name           string
	Email          string
	Company        string
	Phone          string
	Message        string
	Classification string
	Confidence     string
	Reasoning      string
	Reason         string
}

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func renderEmailTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
