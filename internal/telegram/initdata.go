// Package telegram authenticates WebApp initData payloads: parsing,
// HMAC signature verification and freshness checks.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingUser       = errors.New("initdata: missing user field")
	ErrMalformedUser     = errors.New("initdata: malformed user json")
	ErrMissingAuthParams = errors.New("initdata: missing auth_date or hash")
	ErrInvalidSignature  = errors.New("initdata: invalid signature")
	ErrStale             = errors.New("initdata: stale auth_date")
)

// WebAppUser mirrors the user object Telegram embeds in initData. The id
// is kept as json.Number so oversized ids survive without precision loss.
type WebAppUser struct {
	ID        json.Number `json:"id"`
	Username  string      `json:"username"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
}

// InitData is the parsed, not-yet-verified payload.
type InitData struct {
	User     WebAppUser
	AuthDate time.Time
	Hash     string
	QueryID  string

	// checkString is the canonical payload the signature covers:
	// key=value pairs minus hash, sorted by key, joined with \n.
	checkString string
}

// ParseInitData extracts structured fields from a raw initData query
// string. It performs no signature or freshness checks.
func ParseInitData(raw string) (*InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("initdata: parse query: %w", err)
	}

	hash := values.Get("hash")
	authDateStr := values.Get("auth_date")
	if hash == "" || authDateStr == "" {
		return nil, ErrMissingAuthParams
	}
	authUnix, err := strconv.ParseInt(authDateStr, 10, 64)
	if err != nil {
		return nil, ErrMissingAuthParams
	}

	userRaw := values.Get("user")
	if userRaw == "" {
		return nil, ErrMissingUser
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(userRaw), &user); err != nil {
		return nil, ErrMalformedUser
	}
	if user.ID.String() == "" {
		return nil, ErrMalformedUser
	}

	return &InitData{
		User:        user,
		AuthDate:    time.Unix(authUnix, 0),
		Hash:        hash,
		QueryID:     values.Get("query_id"),
		checkString: checkString(values),
	}, nil
}

func checkString(values url.Values) string {
	pairs := make([]string, 0, len(values))
	for k, v := range values {
		if k == "hash" {
			continue
		}
		pairs = append(pairs, k+"="+strings.Join(v, ""))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\n")
}

// Sign computes the hex signature Telegram would attach to the given
// canonical payload. Secret key derivation follows the Bot API spec:
// HMAC-SHA256 of the bot token keyed with the "WebAppData" constant.
func Sign(canonicalPayload, botToken string) string {
	kd := hmac.New(sha256.New, []byte("WebAppData"))
	kd.Write([]byte(botToken))
	secret := kd.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(canonicalPayload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks providedHex against the signature of canonicalPayload in
// constant time. Any decode failure yields false, never an error.
func Verify(canonicalPayload, providedHex, botToken string) bool {
	provided, err := hex.DecodeString(providedHex)
	if err != nil {
		return false
	}
	expected, err := hex.DecodeString(Sign(canonicalPayload, botToken))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, provided)
}
