package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifyWebhookSignature checks the x-signature header Mercado Pago
// sends with every webhook. The header carries "ts=...,v1=..." and v1
// is HMAC-SHA256 over "id:{dataID};request-id:{requestID};ts:{ts};"
// keyed with the account's webhook secret.
func VerifyWebhookSignature(secret, signatureHeader, requestID, dataID string) bool {
	if secret == "" || signatureHeader == "" || requestID == "" || dataID == "" {
		return false
	}
	var ts, v1 string
	for _, part := range strings.Split(signatureHeader, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.TrimSpace(kv[0]) {
		case "ts":
			ts = strings.TrimSpace(kv[1])
		case "v1":
			v1 = strings.TrimSpace(kv[1])
		}
	}
	if ts == "" || v1 == "" {
		return false
	}
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(v1))
}
