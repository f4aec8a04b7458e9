package notification

import (
	"fmt"
	"log/slog"
)

// NotificationSystem represents a delivery channel (e.g., email).
type NotificationSystem string

// NoticeType represents a kind of notice (e.g., "email_verification").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	EmailVerificationNotice NoticeType = "email_verification"
	WelcomeNotice           NoticeType = "welcome"
	PasswordResetNotice     NoticeType = "password_reset"
	PasswordChangedNotice   NoticeType = "password_changed"
)

// NoticeTemplate holds the subject and body templates for one notice on one
// system. Text and Html are Go html/template sources; either may be empty.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// NotificationManager manages notifiers and notice templates.
type NotificationManager struct {
	notifiers      map[NotificationSystem]Notifier
	noticeRegistry map[NoticeType]map[NotificationSystem]NoticeTemplate
}

// NewNotificationManager creates and returns a new NotificationManager.
func NewNotificationManager() *NotificationManager {
	return &NotificationManager{
		notifiers:      make(map[NotificationSystem]Notifier),
		noticeRegistry: make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
	}
}

// RegisterNotifier registers a notifier for a specific system.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.notifiers[system] = notifier
}

// RegisterNotification adds a notice template to the registry.
func (nm *NotificationManager) RegisterNotification(noticeType NoticeType, system NotificationSystem, template NoticeTemplate) error {
	if noticeType == "" || system == "" {
		return fmt.Errorf("invalid input: notice type and system cannot be empty")
	}

	if _, exists := nm.noticeRegistry[noticeType]; !exists {
		nm.noticeRegistry[noticeType] = make(map[NotificationSystem]NoticeTemplate)
	}
	nm.noticeRegistry[noticeType][system] = template
	return nil
}

// Send sends a notice using the specified system and type.
func (nm *NotificationManager) Send(noticeType NoticeType, system NotificationSystem, notification NotificationData) error {
	systemTemplates, exists := nm.noticeRegistry[noticeType]
	if !exists {
		return fmt.Errorf("no templates registered for notice type: %s", noticeType)
	}

	template, exists := systemTemplates[system]
	if !exists {
		return fmt.Errorf("no template registered for system: %s under notice type: %s", system, noticeType)
	}

	notifier, exists := nm.notifiers[system]
	if !exists {
		return fmt.Errorf("no notifier registered for system: %s", system)
	}

	return notifier.Send(noticeType, notification, template)
}

// SendEmailAsync dispatches an email notice on a new goroutine. Delivery
// failures are logged, never surfaced to the caller; the triggering request
// has already been answered.
func (nm *NotificationManager) SendEmailAsync(noticeType NoticeType, notification NotificationData) {
	go func() {
		if err := nm.Send(noticeType, EmailSystem, notification); err != nil {
			slog.Error("Failed to send email notice", "type", noticeType, "to", notification.To, "err", err)
		}
	}()
}
