// Package services содержит отправку писем по сообщениям из очередей:
// напоминания студентам об истекающих абонементах, сводки о просроченных
// проверках и обращения через контактную форму — администратору.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rasbandhu/evaluation-service/internal/lib/sl"
	"github.com/rasbandhu/evaluation-service/internal/lib/smtp"
	"github.com/rasbandhu/evaluation-service/internal/models"
)

type SenderService struct {
	transport  smtp.TransportInterface
	adminEmail string
	log        *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, adminEmail string, log *slog.Logger) *SenderService {
	return &SenderService{
		transport:  transport,
		adminEmail: adminEmail,
		log:        log,
	}
}

// SendInfoExpiringSubscription отправляет студенту письмо о скором
// окончании абонемента.
func (s *SenderService) SendInfoExpiringSubscription(body []byte) error {
	var message models.ExpiryNotice
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", "error", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Your evaluation subscription expires tomorrow"
	bodyText := fmt.Sprintf("Dear %s,\n\nYour %s subscription expires on %s.\n\nPlease renew it in advance so your answer checking is not interrupted.",
		message.Name, programTitle(message.Program), message.Expiry.Format("02 Jan 2006"))

	return s.sendEmail(to, subject, bodyText)
}

// SendInfoOverdueEvaluation отправляет администратору сводку о заявке,
// висящей без проверки дольше SLA-окна.
func (s *SenderService) SendInfoOverdueEvaluation(body []byte) error {
	var message models.SlaNotice
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", "error", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{s.adminEmail}
	subject := "Evaluation past its checking window"
	bodyText := fmt.Sprintf("Evaluation %s (%s) is %d hours past its checking window.\nStatus: %s, submitted: %s.",
		message.EvaluationID, programTitle(message.Program), message.HoursOverdue,
		message.Status, message.CreatedAt.Format("02 Jan 2006 15:04"))

	return s.sendEmail(to, subject, bodyText)
}

// SendContactMessage пересылает администратору обращение через контактную
// форму или запрос звонка ментора.
func (s *SenderService) SendContactMessage(body []byte) error {
	var message models.ContactMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("Failed to unmarshal message body", "error", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{s.adminEmail}
	subject := "New contact form message"
	if message.Kind == "mentorship_call" {
		subject = "New mentorship call request"
	}
	bodyText := fmt.Sprintf("From: %s <%s>\nPhone: %s\n\n%s",
		message.Name, message.Email, message.Phone, message.Message)

	return s.sendEmail(to, subject, bodyText)
}

func programTitle(program string) string {
	if program == models.ProgramDaily {
		return "Daily Answer Evaluation"
	}
	return "Test Evaluation"
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("Failed to connect to SMTP server", "error", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("Failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("Failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("Failed to get Data writer", "error", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("Failed to write email body", "error", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("Failed to close Data writer", "error", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("Failed to quit SMTP client", "error", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
