package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// SignatureHeader несёт HMAC-подпись тела запроса.
const SignatureHeader = "x-paystack-signature"

// Verifier проверяет подпись webhook: HMAC-SHA512 от сырого тела, hex.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign возвращает hex-подпись тела. Используется в тестах и утилитах.
func (v *Verifier) Sign(body []byte) string {
	mac := hmac.New(sha512.New, v.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify сравнивает подпись до разбора JSON. Пустой секрет отклоняет всё.
func (v *Verifier) Verify(body []byte, signature string) error {
	if len(v.secret) == 0 {
		return domain.ErrSignatureInvalid
	}
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature == "" {
		return domain.ErrSignatureInvalid
	}
	if !hmac.Equal([]byte(v.Sign(body)), []byte(signature)) {
		return domain.ErrSignatureInvalid
	}
	return nil
}
