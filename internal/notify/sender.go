package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Sender delivers one message to one phone number on a single channel.
type Sender interface {
	Send(phone, message string) error
	Channel() string
}

// formatPhone normalizes an Indian phone number to its 10-digit form.
func formatPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+91")
	phone = strings.TrimPrefix(phone, "91")
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	return phone
}

// WhatsAppSender delivers via the WhatsApp Business Cloud API.
type WhatsAppSender struct {
	apiKey  string
	phoneID string
	baseURL string
	client  *http.Client
}

func NewWhatsAppSender(apiKey, phoneID string) *WhatsAppSender {
	return &WhatsAppSender{
		apiKey:  apiKey,
		phoneID: phoneID,
		baseURL: "https://graph.facebook.com/v19.0",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WhatsAppSender) Channel() string {
	return "whatsapp"
}

func (s *WhatsAppSender) Send(phone, message string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                "91" + formatPhone(phone),
		"type":              "text",
		"text": map[string]string{
			"body": message,
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneID)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("WhatsApp API error: %s", string(body))
	}

	return nil
}

// SMSSender delivers via the Fast2SMS bulk API.
type SMSSender struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewSMSSender(apiKey string) *SMSSender {
	return &SMSSender{
		apiKey:  apiKey,
		baseURL: "https://www.fast2sms.com/dev/bulkV2",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SMSSender) Channel() string {
	return "sms"
}

func (s *SMSSender) Send(phone, message string) error {
	payload := map[string]interface{}{
		"route":   "q",
		"message": message,
		"numbers": formatPhone(phone),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", s.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorization", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Fast2SMS API error: %s", string(body))
	}

	return nil
}

// MockSender logs messages instead of sending them. Used when no outbound
// API key is configured, and in tests.
type MockSender struct{}

func NewMockSender() *MockSender {
	return &MockSender{}
}

func (s *MockSender) Channel() string {
	return "mock"
}

func (s *MockSender) Send(phone, message string) error {
	log.Printf("[MockSender] To %s: %s", formatPhone(phone), message)
	return nil
}
