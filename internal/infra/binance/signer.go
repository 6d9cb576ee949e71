package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"
)

// Signer handles Binance API request authentication. Binance signs the
// full query string (timestamp included) with HMAC-SHA256, hex encoded.
type Signer struct {
	accessKey string
	secretKey string
}

// NewSigner creates a new Signer instance
func NewSigner(accessKey, secretKey string) *Signer {
	return &Signer{
		accessKey: accessKey,
		secretKey: secretKey,
	}
}

// APIKey returns the key for the X-MBX-APIKEY request header.
func (s *Signer) APIKey() string {
	return s.accessKey
}

// SignQuery appends the request timestamp and signature to the given
// parameters and returns the final encoded query string.
func (s *Signer) SignQuery(params url.Values) string {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	query := params.Encode()
	return query + "&signature=" + computeHmacSha256(query, s.secretKey)
}

func computeHmacSha256(message string, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}
