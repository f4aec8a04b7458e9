package notification

import "sync"

// MockNotifier records sent notifications for tests. It is safe for use from
// the async dispatch goroutines.
type MockNotifier struct {
	mutex             sync.Mutex
	SentNotifications []NotificationData
	SentTypes         []NoticeType
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.SentNotifications = append(m.SentNotifications, notification)
	m.SentTypes = append(m.SentTypes, noticeType)
	return nil
}

// Sent returns a snapshot of the recorded notifications.
func (m *MockNotifier) Sent() []NotificationData {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	out := make([]NotificationData, len(m.SentNotifications))
	copy(out, m.SentNotifications)
	return out
}
