// redact — безопасное представление секретов в логах.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Token возвращает литерал-заглушку для токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }

// Authorization маскирует значение заголовка Authorization, оставляя схему.
//
//	"Bearer abc.def"  -> "Bearer [REDACTED_TOKEN]"
//	"abc"             -> "[REDACTED_TOKEN]"
//	""                -> ""
func Authorization(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}

	if i := strings.IndexByte(v, ' '); i > 0 {
		return v[:i] + " " + Token()
	}

	return Token()
}

// Fingerprint — короткий стабильный отпечаток секрета (первые 8 байт sha256, hex).
// Позволяет различать сессии в логах и ключах, не раскрывая сам секрет.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:8])
}
