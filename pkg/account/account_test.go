package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckVerifyCode(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("no code stored", func(t *testing.T) {
		a := Account{}
		assert.Equal(t, CodeMissing, a.CheckVerifyCode("123456", now))
	})

	t.Run("mismatch", func(t *testing.T) {
		a := Account{}
		a.SetVerifyCode("123456", now.Add(5*time.Minute))
		assert.Equal(t, CodeMismatch, a.CheckVerifyCode("654321", now))
	})

	t.Run("match in window", func(t *testing.T) {
		a := Account{}
		a.SetVerifyCode("123456", now.Add(5*time.Minute))
		assert.Equal(t, CodeOK, a.CheckVerifyCode("123456", now.Add(4*time.Minute)))
	})

	t.Run("match exactly at expiry is accepted", func(t *testing.T) {
		a := Account{}
		expiry := now.Add(5 * time.Minute)
		a.SetVerifyCode("123456", expiry)
		assert.Equal(t, CodeOK, a.CheckVerifyCode("123456", expiry))
	})

	t.Run("match after expiry", func(t *testing.T) {
		a := Account{}
		a.SetVerifyCode("123456", now.Add(5*time.Minute))
		assert.Equal(t, CodeExpired, a.CheckVerifyCode("123456", now.Add(6*time.Minute)))
	})

	t.Run("cleared code is missing", func(t *testing.T) {
		a := Account{}
		a.SetVerifyCode("123456", now.Add(5*time.Minute))
		a.ClearVerifyCode()
		assert.Equal(t, CodeMissing, a.CheckVerifyCode("123456", now))
	})
}

func TestCheckResetCode(t *testing.T) {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("match in window", func(t *testing.T) {
		a := Account{}
		a.SetResetCode("987654", now.Add(15*time.Minute))
		assert.Equal(t, CodeOK, a.CheckResetCode("987654", now.Add(10*time.Minute)))
	})

	t.Run("match exactly at expiry is rejected", func(t *testing.T) {
		a := Account{}
		expiry := now.Add(15 * time.Minute)
		a.SetResetCode("987654", expiry)
		assert.Equal(t, CodeExpired, a.CheckResetCode("987654", expiry))
	})

	t.Run("match after expiry", func(t *testing.T) {
		a := Account{}
		a.SetResetCode("987654", now.Add(15*time.Minute))
		assert.Equal(t, CodeExpired, a.CheckResetCode("987654", now.Add(16*time.Minute)))
	})

	t.Run("mismatch before expiry check", func(t *testing.T) {
		a := Account{}
		a.SetResetCode("987654", now.Add(-time.Minute))
		assert.Equal(t, CodeMismatch, a.CheckResetCode("111111", now))
	})
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleUser))
	assert.False(t, ValidRole(Role("ROOT")))
}

func TestTwoFactorActive(t *testing.T) {
	assert.False(t, TwoFactor{State: TwoFactorDisabled}.Active())
	assert.False(t, TwoFactor{State: TwoFactorPending, Secret: "JBSWY3DP"}.Active())
	assert.True(t, TwoFactor{State: TwoFactorEnabled, Secret: "JBSWY3DP"}.Active())
}
