package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"student-intake-platform/internal/config"
	"student-intake-platform/models"
)

type EmailSender interface {
	SendActivationEmail(student *models.Student, username string) error
	SendContactNotification(info models.ContactInfo) error
}

type SMTPEmailSender struct {
	config *config.Config
}

func NewSMTPEmailSender(cfg *config.Config) *SMTPEmailSender {
	return &SMTPEmailSender{config: cfg}
}

type activationData struct {
	Name     string
	Username string
}

const activationHTMLTemplate = `<html><body>
<h2>Your account is ready</h2>
<p>Hi {{.Name}},</p>
<p>Your student account has been activated. You can now sign in with the username <strong>{{.Username}}</strong> and the password you were given, and upload your documents for processing.</p>
<p>If you did not expect this email, please ignore it.</p>
</body></html>`

const activationTextTemplate = `Hi {{.Name}},

Your student account has been activated. You can now sign in with the username {{.Username}} and the password you were given, and upload your documents for processing.

If you did not expect this email, please ignore it.`

// SendActivationEmail notifies a newly activated student.
func (s *SMTPEmailSender) SendActivationEmail(student *models.Student, username string) error {
	if student.ContactInfo == nil || student.ContactInfo.Email == "" {
		return fmt.Errorf("student %s has no contact email", student.AIKey)
	}

	data := activationData{Name: student.ContactInfo.Name, Username: username}
	htmlBody, textBody, err := renderTemplates(activationHTMLTemplate, activationTextTemplate, data)
	if err != nil {
		return fmt.Errorf("failed to generate email content: %w", err)
	}

	return s.sendEmail([]string{student.ContactInfo.Email}, "Your account has been activated", htmlBody, textBody)
}

const contactHTMLTemplate = `<html><body>
<h2>New contact request</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Phone:</strong> {{.Phone}}</p>
<p><strong>Message:</strong> {{.Message}}</p>
</body></html>`

const contactTextTemplate = `New contact request

Name: {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}
Message: {{.Message}}`

// SendContactNotification tells the configured admins about a new
// contact-form submission.
func (s *SMTPEmailSender) SendContactNotification(info models.ContactInfo) error {
	recipients := []string{}
	for _, adminEmail := range s.config.AdminEmails {
		if strings.TrimSpace(adminEmail) != "" {
			recipients = append(recipients, strings.TrimSpace(adminEmail))
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no admin recipients configured")
	}

	htmlBody, textBody, err := renderTemplates(contactHTMLTemplate, contactTextTemplate, info)
	if err != nil {
		return fmt.Errorf("failed to generate email content: %w", err)
	}

	return s.sendEmail(recipients, "New contact request: "+info.Name, htmlBody, textBody)
}

func renderTemplates(htmlTpl, textTpl string, data any) (string, string, error) {
	htmlT, err := template.New("html").Parse(htmlTpl)
	if err != nil {
		return "", "", err
	}
	textT, err := template.New("text").Parse(textTpl)
	if err != nil {
		return "", "", err
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := htmlT.Execute(&htmlBuf, data); err != nil {
		return "", "", err
	}
	if err := textT.Execute(&textBuf, data); err != nil {
		return "", "", err
	}
	return htmlBuf.String(), textBuf.String(), nil
}

func (s *SMTPEmailSender) sendEmail(recipients []string, subject, htmlBody, textBody string) error {
	if s.config.SMTPHost == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	// SMTP authentication
	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)

	// Compose message
	message := fmt.Sprintf(`From: %s
To: %s
Subject: %s
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="boundary123"

--boundary123
Content-Type: text/plain; charset=UTF-8

%s

--boundary123
Content-Type: text/html; charset=UTF-8

%s

--boundary123--`,
		s.config.SMTPFrom,
		strings.Join(recipients, ", "),
		subject,
		textBody,
		htmlBody)

	// Send email
	addr := fmt.Sprintf("%s:%s", s.config.SMTPHost, s.config.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.SMTPFrom, recipients, []byte(message))
}
