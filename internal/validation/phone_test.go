package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone_EquivalentForms(t *testing.T) {
	forms := []string{
		"+15551234567",
		"+1 555 123 4567",
		"+1 (555) 123-4567",
		"(555) 123-4567",
		"555.123.4567",
		"5551234567",
		"15551234567",
	}

	for _, raw := range forms {
		got, err := NormalizePhone(raw, "1")
		require.NoError(t, err, "номер %q должен нормализоваться", raw)
		assert.Equal(t, "+15551234567", got, "номер %q", raw)
	}
}

func TestNormalizePhone_DomesticLeadingZero(t *testing.T) {
	got, err := NormalizePhone("0555123456", "1")
	require.NoError(t, err)
	assert.Equal(t, "+1555123456", got)
}

func TestNormalizePhone_DefaultCountryWithPlus(t *testing.T) {
	got, err := NormalizePhone("9161234567", "+7")
	require.NoError(t, err)
	assert.Equal(t, "+79161234567", got)
}

func TestNormalizePhone_Invalid(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"abc",
		"+0123456789",
		"+1234567890123456",
	}

	for _, raw := range cases {
		_, err := NormalizePhone(raw, "1")
		if err != ErrInvalidPhone {
			t.Fatalf("ожидали ErrInvalidPhone для %q, получили %v", raw, err)
		}
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	first, err := NormalizePhone("+44 7911 123456", "1")
	require.NoError(t, err)

	second, err := NormalizePhone(first, "1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, IsE164(second))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+1***4567", MaskPhone("+15551234567"))
	assert.Equal(t, "+44***3456", MaskPhone("+447911123456"))
	assert.Equal(t, "***", MaskPhone("+123"))
}

func TestValidateVerificationCode(t *testing.T) {
	assert.NoError(t, ValidateVerificationCode("000000"))
	assert.NoError(t, ValidateVerificationCode("123456"))

	for _, code := range []string{"", "12345", "1234567", "12a456", " 123456"} {
		if err := ValidateVerificationCode(code); err == nil {
			t.Fatalf("код %q должен быть отклонён", code)
		}
	}
}

func TestValidateInviteeName(t *testing.T) {
	assert.NoError(t, ValidateInviteeName("Анна Петрова"))
	assert.NoError(t, ValidateInviteeName("O'Brien (Sales)"))
	assert.Error(t, ValidateInviteeName("   "))
	assert.Error(t, ValidateInviteeName("<script>"))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("Team.Lead+sms@Example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("no-at-sign"))
	assert.Error(t, ValidateEmail("a@b@c.com"))
	assert.Error(t, ValidateEmail("user@localhost"))
}
