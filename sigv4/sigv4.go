// Package sigv4 produces AWS Signature Version 4 headers for one outbound
// request. Signing is pure: the caller supplies the instant, so the same
// time value drives both the signature and the x-amz-date header.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	Algorithm = "AWS4-HMAC-SHA256"

	HeaderDate          = "x-amz-date"
	HeaderAccessToken   = "x-amz-access-token"
	HeaderSecurityToken = "x-amz-security-token"
	HeaderAuthorization = "Authorization"

	dateTimeFormat = "20060102T150405Z"
	dateFormat     = "20060102"
)

// Credentials are the signing keys. SessionToken is set for temporary
// credentials only.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Request is the part of an HTTP request covered by the signature.
type Request struct {
	Method  string
	Host    string
	Path    string
	Query   url.Values
	Body    []byte
	Region  string
	Service string
}

// Sign returns the headers to attach to the request: Authorization,
// x-amz-date and, when present, the access and security tokens.
func Sign(req Request, creds Credentials, accessToken string, now time.Time) map[string]string {
	now = now.UTC()
	amzDate := now.Format(dateTimeFormat)
	scope := strings.Join([]string{now.Format(dateFormat), req.Region, req.Service, "aws4_request"}, "/")

	headers := map[string]string{
		"host":     strings.ToLower(req.Host),
		HeaderDate: amzDate,
	}
	if accessToken != "" {
		headers[HeaderAccessToken] = accessToken
	}
	if creds.SessionToken != "" {
		headers[HeaderSecurityToken] = creds.SessionToken
	}

	canonical, signed := CanonicalRequest(req, headers)
	stringToSign := strings.Join([]string{Algorithm, amzDate, scope, hashHex([]byte(canonical))}, "\n")

	key := signingKey(creds.SecretAccessKey, now.Format(dateFormat), req.Region, req.Service)
	signature := hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))

	out := map[string]string{
		HeaderAuthorization: fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
			Algorithm, creds.AccessKeyID, scope, signed, signature),
		HeaderDate: amzDate,
	}
	if accessToken != "" {
		out[HeaderAccessToken] = accessToken
	}
	if creds.SessionToken != "" {
		out[HeaderSecurityToken] = creds.SessionToken
	}
	return out
}

// CanonicalRequest builds the canonical request text and the signed header
// list for the given header set.
func CanonicalRequest(req Request, headers map[string]string) (canonical, signedHeaders string) {
	names := make([]string, 0, len(headers))
	lower := make(map[string]string, len(headers))
	for k, v := range headers {
		lk := strings.ToLower(k)
		names = append(names, lk)
		lower[lk] = strings.TrimSpace(v)
	}
	sort.Strings(names)

	var hb strings.Builder
	for _, n := range names {
		hb.WriteString(n)
		hb.WriteByte(':')
		hb.WriteString(lower[n])
		hb.WriteByte('\n')
	}
	signedHeaders = strings.Join(names, ";")

	canonical = strings.Join([]string{
		strings.ToUpper(req.Method),
		CanonicalPath(req.Path),
		CanonicalQuery(req.Query),
		hb.String(),
		signedHeaders,
		hashHex(req.Body),
	}, "\n")
	return canonical, signedHeaders
}

// CanonicalPath percent-encodes each path segment, leaving separators intact.
func CanonicalPath(p string) string {
	if p == "" {
		return "/"
	}
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = Escape(s)
	}
	return strings.Join(segments, "/")
}

// CanonicalQuery encodes parameters and sorts them by key, then by value.
func CanonicalQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(q))
	for k, vs := range q {
		ek := Escape(k)
		for _, v := range vs {
			pairs = append(pairs, pair{ek, Escape(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.k + "=" + p.v
	}
	return strings.Join(parts, "&")
}

// Escape applies RFC 3986 percent-encoding: only unreserved characters pass
// through unchanged.
func Escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func signingKey(secret, date, region, service string) []byte {
	k := hmacSHA256([]byte("AWS4"+secret), []byte(date))
	k = hmacSHA256(k, []byte(region))
	k = hmacSHA256(k, []byte(service))
	return hmacSHA256(k, []byte("aws4_request"))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
