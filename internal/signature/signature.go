package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Header names attached to every delivery attempt. The receiving server
// recomputes the signature from the request body's "data" field and the
// shared endpoint secret.
const (
	SignatureHeader = "X-Webhook-Signature"
	EventHeader     = "X-Webhook-Event"
	IDHeader        = "X-Webhook-ID"
)

// Canonicalize returns a stable serialization of a JSON payload: the
// payload is decoded and re-encoded so object keys come out sorted,
// making the result independent of the producer's key order. Payloads
// that are not valid JSON are signed as-is.
func Canonicalize(payload []byte) []byte {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return payload
	}
	out, err := json.Marshal(v)
	if err != nil {
		return payload
	}
	return out
}

// Sign computes the authenticity tag for a payload under the endpoint
// secret: HMAC-SHA256 over the canonical payload bytes, rendered as
// "sha256=<hex>". Identical inputs always produce identical output.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(Canonicalize(payload))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is a valid signature for payload under
// secret, in constant time.
func Verify(payload []byte, secret, sig string) bool {
	want := Sign(payload, secret)
	return hmac.Equal([]byte(want), []byte(sig))
}
