package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinInviteeNameLength = 1
	MaxInviteeNameLength = 100
	VerificationCodeLen  = 6
)

var (
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	inviteeNameRegex = regexp.MustCompile(`^[\p{L}0-9\s\-_.,'()]+$`)
	codeRegex        = regexp.MustCompile(`^\d{6}$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}
	if !emailLocalRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}
	if !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateInviteeName проверяет имя приглашаемого участника.
func ValidateInviteeName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("имя приглашаемого обязательно")
	}

	if err := ValidateLength("имя приглашаемого", name, MinInviteeNameLength, MaxInviteeNameLength); err != nil {
		return err
	}

	if !inviteeNameRegex.MatchString(name) {
		return fmt.Errorf("имя приглашаемого содержит недопустимые символы")
	}

	return nil
}

// ValidateVerificationCode проверяет, что код состоит ровно из шести цифр.
func ValidateVerificationCode(code string) error {
	if !codeRegex.MatchString(code) {
		return fmt.Errorf("код подтверждения должен состоять из %d цифр", VerificationCodeLen)
	}
	return nil
}
