package valueobjects

import (
	"crypto/md5" //nolint:gosec // o contrato do gravatar exige MD5
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail = errors.New("invalid email format")
)

var emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// Email é um value object que garante que emails sejam sempre válidos.
// O valor zero representa uma conta sem email primário.
type Email struct {
	value string
}

// NewEmail cria um novo Email validado
func NewEmail(email string) (Email, error) {
	email = normalize(email)

	if !isValidEmail(email) {
		return Email{}, ErrInvalidEmail
	}

	return Email{value: email}, nil
}

// String retorna o valor do email
func (e Email) String() string {
	return e.value
}

// IsZero indica se não há email (conta sem email primário)
func (e Email) IsZero() bool {
	return e.value == ""
}

// Hash retorna o hash usado pelo gravatar: md5 hexadecimal do email normalizado.
// Retorna string vazia quando não há email.
func (e Email) Hash() string {
	if e.IsZero() {
		return ""
	}
	return HashEmail(e.value)
}

// HashEmail calcula o hash de gravatar de um endereço arbitrário
func HashEmail(email string) string {
	sum := md5.Sum([]byte(normalize(email))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

func normalize(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// isValidEmail valida o formato do email
func isValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}

	return emailPattern.MatchString(email)
}
