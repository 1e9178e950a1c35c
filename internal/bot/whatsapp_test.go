package bot

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"expensebot/internal/sheets/memory"
)

type fakeSender struct {
	to, body string
	err      error
}

func (f *fakeSender) Send(_ context.Context, to, body string) error {
	f.to, f.body = to, body
	return f.err
}

func postForm(h http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWhatsAppWebhook(t *testing.T) {
	store := memory.New()
	sender := &fakeSender{}
	wh := NewWhatsAppWebhook(newTestHandler(store), sender)

	rec := postForm(wh, url.Values{"From": {"whatsapp:+15550100"}, "Body": {"Taxi 18"}})
	if rec.Code != http.StatusOK || rec.Body.String() != "Message processed" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
	if sender.to != "whatsapp:+15550100" || !strings.Contains(sender.body, "Taxi: $18.00") {
		t.Fatalf("unexpected reply %q to %q", sender.body, sender.to)
	}
	if recs, _ := store.ReadAll(context.Background(), "whatsapp:+15550100"); len(recs) != 1 {
		t.Fatalf("expense not stored: %+v", recs)
	}
}

func TestWhatsAppWebhookErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("twilio down")}
	wh := NewWhatsAppWebhook(newTestHandler(memory.New()), sender)

	if rec := postForm(wh, url.Values{"From": {"whatsapp:+1"}, "Body": {"help"}}); rec.Code != http.StatusInternalServerError {
		t.Fatalf("send failure status = %d", rec.Code)
	}
	if rec := postForm(wh, url.Values{"Body": {"help"}}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing sender status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	wh.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad form status = %d", rec.Code)
	}
}

func TestWhatsAppAddress(t *testing.T) {
	if got := whatsAppAddress(" +15550100 "); got != "whatsapp:+15550100" {
		t.Fatalf("got %q", got)
	}
	if got := whatsAppAddress("whatsapp:+1"); got != "whatsapp:+1" {
		t.Fatalf("got %q", got)
	}
	if _, err := NewTwilioSender("", "", "+1"); err == nil {
		t.Fatal("expected credentials error")
	}
}

// twilioSignature signs a webhook request the way Twilio does.
func twilioSignature(authToken, target string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(target)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWhatsAppWebhookSignature(t *testing.T) {
	const (
		token  = "secret-token"
		target = "https://bot.example.com/webhook"
	)
	form := url.Values{"From": {"whatsapp:+15550100"}, "Body": {"Taxi 18"}}

	tests := []struct {
		name      string
		signature string
		want      int
		stored    int
	}{
		{"valid", twilioSignature(token, target, form), http.StatusOK, 1},
		{"missing", "", http.StatusForbidden, 0},
		{"wrong token", twilioSignature("other", target, form), http.StatusForbidden, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			sender := &fakeSender{}
			wh := NewWhatsAppWebhook(newTestHandler(store), sender, WithSignatureValidation(token, target))

			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.signature != "" {
				req.Header.Set("X-Twilio-Signature", tt.signature)
			}
			rec := httptest.NewRecorder()
			wh.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			recs, _ := store.ReadAll(context.Background(), "whatsapp:+15550100")
			if len(recs) != tt.stored {
				t.Fatalf("stored %d records, want %d", len(recs), tt.stored)
			}
			if tt.stored == 0 && sender.body != "" {
				t.Fatalf("rejected request got a reply: %q", sender.body)
			}
		})
	}
}

func TestWhatsAppWebhookSignatureFromRequestURL(t *testing.T) {
	const token = "secret-token"
	form := url.Values{"From": {"whatsapp:+1"}, "Body": {"help"}}
	wh := NewWhatsAppWebhook(newTestHandler(memory.New()), &fakeSender{}, WithSignatureValidation(token, ""))

	req := httptest.NewRequest(http.MethodPost, "http://bot.internal/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Twilio-Signature", twilioSignature(token, "https://bot.internal/webhook", form))
	rec := httptest.NewRecorder()
	wh.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
