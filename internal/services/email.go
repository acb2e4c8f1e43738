package services

import (
	"fmt"
	"html"
	"log"
	"net/smtp"
	"strings"

	"alalim-backend/internal/models"
)

type EmailService struct {
	host    string
	port    string
	user    string
	pass    string
	from    string
	devMode bool
}

func NewEmailService(host, port, user, pass, from string) *EmailService {
	devMode := host == "" || user == ""
	if devMode {
		log.Println("⚠ Email service running in DEV MODE (logging to console)")
	}
	return &EmailService{
		host:    host,
		port:    port,
		user:    user,
		pass:    pass,
		from:    from,
		devMode: devMode,
	}
}

var feedbackLabels = map[models.FeedbackType]string{
	models.FeedbackBug:          "Bug report",
	models.FeedbackContentError: "Content error",
	models.FeedbackSuggestion:   "Suggestion",
}

// SendFeedbackEmail forwards a feedback report to the team inbox.
func (s *EmailService) SendFeedbackEmail(to string, f *models.Feedback, from *models.UserProfile) error {
	label := feedbackLabels[f.Type]
	subject := fmt.Sprintf("[Al-Alim] %s", label)

	sender := "Unknown user"
	if from != nil {
		sender = fmt.Sprintf("%s (%s)", from.Name, from.Provider)
	}
	replyTo := "not provided"
	if f.Email != nil && *f.Email != "" {
		replyTo = *f.Email
	}

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Segoe UI', Arial, sans-serif; margin: 0; padding: 0; background-color: #fafaf9;">
  <div style="max-width: 560px; margin: 40px auto; background: white; border-radius: 12px; box-shadow: 0 4px 24px rgba(0,0,0,0.08); overflow: hidden;">
    <div style="background: linear-gradient(135deg, #047857 0%%, #0d9488 100%%); padding: 24px 32px;">
      <h1 style="color: white; margin: 0; font-size: 20px; font-weight: 700;">Al-Alim feedback</h1>
      <p style="color: rgba(255,255,255,0.85); margin: 6px 0 0; font-size: 14px;">%s</p>
    </div>
    <div style="padding: 32px;">
      <p style="color: #57534e; font-size: 13px; margin: 0 0 4px;"><strong>From:</strong> %s</p>
      <p style="color: #57534e; font-size: 13px; margin: 0 0 4px;"><strong>Reply to:</strong> %s</p>
      <p style="color: #57534e; font-size: 13px; margin: 0 0 20px;"><strong>Reference:</strong> %s</p>
      <div style="color: #1c1917; font-size: 14px; line-height: 1.6; white-space: pre-wrap; border-left: 3px solid #0d9488; padding-left: 16px;">%s</div>
    </div>
  </div>
</body>
</html>`,
		html.EscapeString(label),
		html.EscapeString(sender),
		html.EscapeString(replyTo),
		f.ID.String(),
		html.EscapeString(f.Description),
	)

	return s.sendHTML(to, subject, body)
}

func (s *EmailService) sendHTML(to, subject, htmlBody string) error {
	if s.devMode {
		log.Printf("📧 [DEV EMAIL] To: %s | Subject: %s", to, subject)
		log.Printf("📧 Body:\n%s", htmlBody)
		return nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}
