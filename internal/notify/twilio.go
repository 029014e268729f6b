package notify

import (
	"fmt"
	"strings"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSink delivers notifications as WhatsApp messages via Twilio.
type TwilioSink struct {
	client *twilio.RestClient
	from   string
	to     string
}

func NewTwilioSink(accountSID, authToken, from, to string) *TwilioSink {
	return &TwilioSink{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken}),
		from:   from,
		to:     to,
	}
}

func (s *TwilioSink) Ready() error {
	if normalizeWhatsAppAddress(s.from) == "" {
		return fmt.Errorf("twilio sink: sender number not configured")
	}
	if normalizeWhatsAppAddress(s.to) == "" {
		return fmt.Errorf("twilio sink: recipient number not configured")
	}
	return nil
}

func (s *TwilioSink) Send(content Content) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(normalizeWhatsAppAddress(s.to))
	params.SetFrom(normalizeWhatsAppAddress(s.from))
	params.SetBody(fmt.Sprintf("%s\n%s", content.Title, content.LargeBody))

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	return nil
}

func normalizeWhatsAppAddress(number string) string {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "whatsapp:") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "+") {
		return "whatsapp:" + trimmed
	}
	return "whatsapp:+" + trimmed
}
