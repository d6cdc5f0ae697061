package validation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhone возвращается для номеров, которые нельзя привести к E.164.
var ErrInvalidPhone = errors.New("некорректный номер телефона")

var (
	e164Regex     = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	nonDigitRegex = regexp.MustCompile(`\D`)
)

// domesticLength задаёт длину внутреннего номера без кода страны.
const domesticLength = 10

// NormalizePhone приводит номер к виду +<код страны><номер>.
// Десятизначный номер без "+" считается внутренним: ведущий 0 отбрасывается,
// добавляется defaultCountryCode.
func NormalizePhone(raw, defaultCountryCode string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}

	international := strings.HasPrefix(raw, "+")
	digits := nonDigitRegex.ReplaceAllString(raw, "")

	if !international && len(digits) == domesticLength {
		digits = strings.TrimPrefix(digits, "0")
		digits = strings.TrimPrefix(defaultCountryCode, "+") + digits
	}

	phone := "+" + digits
	if !e164Regex.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

// IsE164 проверяет, что номер уже нормализован.
func IsE164(phone string) bool {
	return e164Regex.MatchString(phone)
}

// MaskPhone скрывает номер для логов: +<код страны>***<последние 4 цифры>.
func MaskPhone(phone string) string {
	digits := nonDigitRegex.ReplaceAllString(phone, "")
	if len(digits) <= 4 {
		return "***"
	}

	cc := digits[:1]
	if num, err := phonenumbers.Parse("+"+digits, ""); err == nil && num.GetCountryCode() > 0 {
		cc = strconv.Itoa(int(num.GetCountryCode()))
	}
	if len(cc)+4 > len(digits) {
		cc = digits[:1]
	}

	return "+" + cc + "***" + digits[len(digits)-4:]
}
