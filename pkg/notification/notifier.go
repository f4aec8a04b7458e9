package notification

// NotificationData carries the recipient and per-message template values.
type NotificationData struct {
	To   string            // Recipient identifier (e.g., email address)
	Data map[string]string // Template values (e.g., "Code", "FirstName")
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
