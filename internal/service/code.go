package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

var codeSpace = big.NewInt(1_000_000)

// GenerateCode возвращает шестизначный код, равномерно распределённый на [000000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// CodeHasher хэширует коды подтверждения; открытый код нигде не хранится.
type CodeHasher interface {
	Hash(code string) ([]byte, error)
	Compare(hash []byte, code string) bool
}

// BcryptHasher реализует CodeHasher на bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher создаёт хэшер. Некорректная стоимость заменяется bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(code string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return nil, fmt.Errorf("hash code: %w", err)
	}
	return hash, nil
}

func (h *BcryptHasher) Compare(hash []byte, code string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(code)) == nil
}
