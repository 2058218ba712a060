package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// VerifyWebhook checks the X-Shopify-Hmac-Sha256 header against the raw
// request body. The digest is computed over the verbatim payload bytes and
// compared in constant time.
func (c *Client) VerifyWebhook(payload []byte, header string) bool {
	return VerifyWebhookSignature(payload, c.webhookSecret, header)
}

// VerifyWebhookSignature validates a Shopify webhook HMAC with an explicit
// secret.
func VerifyWebhookSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
