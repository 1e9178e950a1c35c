package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	applog "expensebot/internal/log"
)

// Sender delivers an outbound WhatsApp message.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// TwilioSender sends through the Twilio Messages API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(accountSID, authToken, from string) (*TwilioSender, error) {
	if accountSID == "" || authToken == "" {
		return nil, errors.New("missing Twilio credentials")
	}
	if from == "" {
		return nil, errors.New("missing TWILIO_PHONE_NUMBER")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{client: client, from: whatsAppAddress(from)}, nil
}

// whatsAppAddress adds the "whatsapp:" channel prefix Twilio expects.
func whatsAppAddress(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

func (s *TwilioSender) Send(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(whatsAppAddress(to))
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	if resp.Sid != nil {
		applog.FromContext(ctx).WithComponent(applog.ComponentWhatsApp).DebugContext(ctx, "Twilio message queued", "sid", *resp.Sid)
	}
	return nil
}

// WhatsAppWebhook handles Twilio's incoming-message callback. The reply is
// sent through the REST API, not as TwiML.
type WhatsAppWebhook struct {
	handler   *Handler
	sender    Sender
	validator *twilioclient.RequestValidator
	publicURL string
}

type WebhookOption func(*WhatsAppWebhook)

// WithSignatureValidation rejects requests whose X-Twilio-Signature does not
// match authToken. publicURL is the address configured in Twilio; when empty
// it is rebuilt from the request.
func WithSignatureValidation(authToken, publicURL string) WebhookOption {
	return func(wh *WhatsAppWebhook) {
		v := twilioclient.NewRequestValidator(authToken)
		wh.validator = &v
		wh.publicURL = publicURL
	}
}

func NewWhatsAppWebhook(handler *Handler, sender Sender, opts ...WebhookOption) *WhatsAppWebhook {
	wh := &WhatsAppWebhook{handler: handler, sender: sender}
	for _, opt := range opts {
		opt(wh)
	}
	return wh
}

func (wh *WhatsAppWebhook) validSignature(r *http.Request) bool {
	target := wh.publicURL
	if target == "" {
		scheme := "http"
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			scheme = "https"
		}
		target = scheme + "://" + r.Host + r.URL.RequestURI()
	}
	params := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return wh.validator.Validate(target, params, r.Header.Get("X-Twilio-Signature"))
}

func (wh *WhatsAppWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx).WithComponent(applog.ComponentWhatsApp)

	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "Invalid webhook form", applog.FieldError, err)
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if wh.validator != nil && !wh.validSignature(r) {
		logger.WarnContext(ctx, "Rejected webhook with invalid Twilio signature")
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}
	from := strings.TrimSpace(r.PostForm.Get("From"))
	body := r.PostForm.Get("Body")
	if from == "" {
		http.Error(w, "Missing sender", http.StatusBadRequest)
		return
	}

	logger.InfoContext(ctx, "Incoming WhatsApp message",
		applog.FieldPlatform, wh.handler.Platform(),
		applog.FieldUserID, from)

	reply := wh.handler.Handle(ctx, from, body)
	if err := wh.sender.Send(ctx, from, reply); err != nil {
		logger.ErrorContext(ctx, "Failed to send WhatsApp reply",
			applog.FieldOperation, applog.OpReply,
			applog.FieldUserID, from,
			applog.FieldError, err)
		http.Error(w, "Error processing message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Message processed"))
}
