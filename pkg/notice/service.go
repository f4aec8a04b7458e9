// Package notice wires the notification manager with the embedded email
// templates used by the credential lifecycle flows.
package notice

import (
	"embed"
	"log/slog"

	"github.com/simple-auth/simple-auth/pkg/notification"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NewNotificationManager creates a notification manager with an SMTP email
// notifier and all lifecycle templates registered.
func NewNotificationManager(smtpConfig notification.SMTPConfig) (*notification.NotificationManager, error) {
	notificationManager := notification.NewNotificationManager()

	emailNotifier, err := notification.NewEmailNotifier(smtpConfig)
	if err != nil {
		return nil, err
	}
	notificationManager.RegisterNotifier(notification.EmailSystem, emailNotifier)

	if err := registerTemplates(notificationManager); err != nil {
		return nil, err
	}
	return notificationManager, nil
}

// NewMockNotificationManager creates a notification manager backed by a mock
// notifier, with all lifecycle templates registered. Used in tests and local
// development without an SMTP server.
func NewMockNotificationManager() (*notification.NotificationManager, *notification.MockNotifier, error) {
	notificationManager := notification.NewNotificationManager()
	mock := &notification.MockNotifier{}
	notificationManager.RegisterNotifier(notification.EmailSystem, mock)

	if err := registerTemplates(notificationManager); err != nil {
		return nil, nil, err
	}
	return notificationManager, mock, nil
}

func registerTemplates(nm *notification.NotificationManager) error {
	templates := []struct {
		noticeType notification.NoticeType
		subject    string
		file       string
	}{
		{notification.EmailVerificationNotice, "Verify Your Email Address", "templates/email/email_verification.html"},
		{notification.WelcomeNotice, "Welcome!", "templates/email/welcome.html"},
		{notification.PasswordResetNotice, "Password Reset Request", "templates/email/password_reset.html"},
		{notification.PasswordChangedNotice, "Your Password Was Changed", "templates/email/password_changed.html"},
	}

	for _, tpl := range templates {
		err := nm.RegisterNotification(tpl.noticeType, notification.EmailSystem, notification.NoticeTemplate{
			Subject: tpl.subject,
			Html:    loadTemplate(tpl.file),
		})
		if err != nil {
			slog.Error("failed to register notification template", "type", tpl.noticeType, "error", err)
			return err
		}
	}
	return nil
}
