package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/pgmicro/inventory-backend/pkg/database"
)

// Notifier delivers a plain-text message to a recipient address
type Notifier interface {
	Notify(to, subject, body string) error
}

// EmailService sends mail through the Gmail API when an OAuth refresh
// token has been captured, falling back to the Resend HTTP API.
type EmailService struct {
	db        *gorm.DB
	apiKey    string
	fromEmail string
	google    *oauth2.Config
}

// NewEmailService creates a new email service instance
func NewEmailService(db *gorm.DB) *EmailService {
	return &EmailService{
		db:        db,
		apiKey:    os.Getenv("RESEND_API_KEY"),
		fromEmail: os.Getenv("EMAIL_FROM_ADDRESS"),
		google: &oauth2.Config{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
			Scopes:       []string{"https://www.googleapis.com/auth/gmail.send"},
			Endpoint:     google.Endpoint,
		},
	}
}

// IsConfigured checks if any sending path is available
func (s *EmailService) IsConfigured() bool {
	if s.apiKey != "" && s.fromEmail != "" {
		return true
	}
	_, err := s.gmailCredential()
	return err == nil
}

// Notify sends a plain-text email to a single recipient
func (s *EmailService) Notify(to, subject, body string) error {
	if cred, err := s.gmailCredential(); err == nil {
		return s.sendGmail(cred, to, subject, body)
	}
	return s.sendResend(to, subject, body)
}

func (s *EmailService) gmailCredential() (*database.GoogleCredential, error) {
	if s.google.ClientID == "" || s.google.ClientSecret == "" {
		return nil, fmt.Errorf("google oauth not configured")
	}
	var cred database.GoogleCredential
	if err := s.db.Order("obtained_at DESC").First(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}

// sendGmail posts an RFC 2822 message through the Gmail API using a
// token minted from the stored refresh token.
func (s *EmailService) sendGmail(cred *database.GoogleCredential, to, subject, body string) error {
	ctx := context.Background()
	source := s.google.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})

	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.fromEmail, to, subject, body)
	payload, err := json.Marshal(map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(raw)),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal gmail payload: %v", err)
	}

	client := oauth2.NewClient(ctx, source)
	resp, err := client.Post(
		"https://gmail.googleapis.com/gmail/v1/users/me/messages/send",
		"application/json",
		bytes.NewBuffer(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to send via gmail: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gmail API returned status %d", resp.StatusCode)
	}
	return nil
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// sendResend sends an email using the Resend API
func (s *EmailService) sendResend(to, subject, body string) error {
	if s.apiKey == "" || s.fromEmail == "" {
		return fmt.Errorf("email service not configured")
	}

	payload := sendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %v", err)
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("email API returned status %d", resp.StatusCode)
	}

	return nil
}
