package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingHash       = errors.New("init data has no hash")
	ErrSignatureMismatch = errors.New("init data signature mismatch")
	ErrExpired           = errors.New("init data expired")
)

// VerifyInitData checks the Telegram Web App signature of raw init data.
// maxAge <= 0 disables the auth_date freshness check.
func VerifyInitData(raw, botToken string, maxAge time.Duration, now time.Time) error {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return fmt.Errorf("malformed init data: %w", err)
	}
	hash := values.Get("hash")
	if hash == "" {
		return ErrMissingHash
	}

	expected := signature(values, botToken)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(hash))) {
		return ErrSignatureMismatch
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid auth_date: %w", err)
		}
		if now.Sub(time.Unix(authDate, 0)) > maxAge {
			return ErrExpired
		}
	}
	return nil
}

// SignInitData sets hash on values and returns the encoded init data string.
func SignInitData(values url.Values, botToken string) string {
	signed := url.Values{}
	for k, v := range values {
		if k != "hash" {
			signed[k] = v
		}
	}
	signed.Set("hash", signature(signed, botToken))
	return signed.Encode()
}

func signature(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
