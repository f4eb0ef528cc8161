package utils

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/gomail.v2"
)

// SendEmail sends a plain-text email through the configured SMTP relay.
// Failures are logged and returned but callers generally treat them as
// best effort.
func SendEmail(to, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	if smtpHost == "" || smtpUser == "" {
		log.Printf("SMTP not configured, skipping email to %s (%s)", to, subject)
		return nil
	}

	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &smtpPort)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	if err := d.DialAndSend(m); err != nil {
		log.Printf("Failed to send email to %s: %v", to, err)
		return err
	}
	return nil
}

// NotifyAgentRegistered emails a newly registered agent their referral code.
func NotifyAgentRegistered(to, name, referralCode string) {
	subject := "Smart Souq affiliate registration received"
	body := fmt.Sprintf("Dear %s,\n\nYour affiliate registration has been received and is pending review.\nYour referral code is: %s\n\nYou will be notified once your account is approved.\n\nBest regards,\nSmart Souq", name, referralCode)
	_ = SendEmail(to, subject, body)
}

// NotifyAgentApproved emails an agent that their account went live.
func NotifyAgentApproved(to, name string) {
	subject := "Smart Souq affiliate account approved"
	body := fmt.Sprintf("Dear %s,\n\nYour affiliate account has been approved. You can now generate tracking links and earn commissions.\n\nBest regards,\nSmart Souq", name)
	_ = SendEmail(to, subject, body)
}
