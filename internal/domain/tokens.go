package domain

import (
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const tokenLength = 40

// NewPlainToken генерирует непрозрачный токен. Клиенту отдаётся открытое
// значение, в хранилище попадает только хэш.
func NewPlainToken() (string, error) {
	buf := make([]byte, tokenLength)
	if _, err := crand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken возвращает hex-представление SHA-256 от открытого токена.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
