package acs

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

// The platform authenticates requests with an HMAC-SHA256 signature over
// the verb, path+query, and the x-ms-date, host, and x-ms-content-sha256
// headers. See the ACS HMAC authentication contract.

const hmacDateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// signRequest sets the x-ms-date, x-ms-content-sha256, and Authorization
// headers on req. body is the raw request body (may be empty).
func signRequest(req *http.Request, body []byte, accessKey []byte, now time.Time) {
	contentHash := contentSHA256(body)
	date := now.UTC().Format(hmacDateFormat)

	stringToSign := fmt.Sprintf("%s\n%s\n%s;%s;%s",
		req.Method,
		req.URL.RequestURI(),
		date,
		req.URL.Host,
		contentHash,
	)

	mac := hmac.New(sha256.New, accessKey)
	mac.Write([]byte(stringToSign))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("x-ms-date", date)
	req.Header.Set("x-ms-content-sha256", contentHash)
	req.Header.Set("Authorization",
		"HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature="+signature)
}

// contentSHA256 returns the base64 SHA-256 digest of the request body
func contentSHA256(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}
