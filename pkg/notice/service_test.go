package notice

import (
	"testing"

	"github.com/simple-auth/simple-auth/pkg/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockNotificationManager(t *testing.T) {
	nm, mock, err := NewMockNotificationManager()
	require.NoError(t, err)
	require.NotNil(t, nm)
	require.NotNil(t, mock)

	types := []notification.NoticeType{
		notification.EmailVerificationNotice,
		notification.WelcomeNotice,
		notification.PasswordResetNotice,
		notification.PasswordChangedNotice,
	}
	for _, noticeType := range types {
		err := nm.Send(noticeType, notification.EmailSystem, notification.NotificationData{
			To:   "alice@example.com",
			Data: map[string]string{"FirstName": "Alice", "Code": "123456"},
		})
		assert.NoError(t, err, "notice type %s", noticeType)
	}
	assert.Len(t, mock.Sent(), len(types))
}

func TestLoadTemplate(t *testing.T) {
	content := loadTemplate("templates/email/email_verification.html")
	assert.Contains(t, content, "{{.Code}}")

	assert.Empty(t, loadTemplate("templates/email/missing.html"))
}
