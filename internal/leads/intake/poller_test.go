package intake

import (
	"strings"
	"testing"

	imap "github.com/BrianLeishman/go-imap"
)

func TestSubmissionFromEmail(t *testing.T) {
	mail := &imap.Email{
		Subject: "Help with data pipeline",
		Text:    "We are looking for help migrating our warehouse.",
		From:    imap.EmailAddresses{"dana@example.com": "Dana"},
	}

	input, ok := submissionFromEmail(mail)
	if !ok {
		t.Fatal("expected a submission")
	}
	if input.Email != "dana@example.com" || input.Name != "Dana" {
		t.Errorf("sender = %q <%s>", input.Name, input.Email)
	}
	if !strings.HasPrefix(input.Message, "Help with data pipeline\n\n") {
		t.Errorf("subject should prefix the message, got %q", input.Message)
	}
	if input.Source != "email" {
		t.Errorf("source = %q, want email", input.Source)
	}
}

func TestSubmissionFromEmailFallbacks(t *testing.T) {
	noName := &imap.Email{
		Text: "body",
		From: imap.EmailAddresses{"anon@example.com": ""},
	}
	input, ok := submissionFromEmail(noName)
	if !ok || input.Name != "anon@example.com" {
		t.Errorf("name should fall back to the address, got %q (%v)", input.Name, ok)
	}

	htmlOnly := &imap.Email{
		HTML: "<p>hello</p>",
		From: imap.EmailAddresses{"a@example.com": "A"},
	}
	if input, ok := submissionFromEmail(htmlOnly); !ok || !strings.Contains(input.Message, "<p>hello</p>") {
		t.Errorf("html body should be used when text is empty, got %q (%v)", input.Message, ok)
	}

	if _, ok := submissionFromEmail(&imap.Email{From: imap.EmailAddresses{"a@example.com": "A"}}); ok {
		t.Error("empty body should be skipped")
	}
	if _, ok := submissionFromEmail(&imap.Email{Text: "body"}); ok {
		t.Error("missing sender should be skipped")
	}
}
