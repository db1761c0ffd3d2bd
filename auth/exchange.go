package auth

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"inboundcore/sigv4"
)

const (
	stsVersion       = "2011-06-15"
	assumeRoleTTL    = 3600
	stsService       = "sts"
	formContentType  = "application/x-www-form-urlencoded"
	acceptXML        = "text/xml"
	acceptJSON       = "application/json"
	refreshTokenType = "refresh_token"
)

// ExchangeError is a failed credential exchange.
type ExchangeError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("auth exchange %s: HTTP %d: %s", e.Endpoint, e.Status, e.Body)
}

func isServerError(err error) bool {
	var ee *ExchangeError
	return errors.As(err, &ee) && ee.Status >= 500
}

type assumeRoleResponse struct {
	Result struct {
		Credentials struct {
			AccessKeyID     string `xml:"AccessKeyId"`
			SecretAccessKey string `xml:"SecretAccessKey"`
			SessionToken    string `xml:"SessionToken"`
			Expiration      string `xml:"Expiration"`
		} `xml:"Credentials"`
	} `xml:"AssumeRoleResult"`
}

// assumeRole exchanges the long-lived IAM key for role credentials.
func (p *Provider) assumeRole(ctx context.Context) (signingEntry, error) {
	form := url.Values{
		"Action":          {"AssumeRole"},
		"Version":         {stsVersion},
		"RoleArn":         {p.cfg.RoleARN},
		"RoleSessionName": {p.cfg.RoleSessionName},
		"DurationSeconds": {strconv.Itoa(assumeRoleTTL)},
	}
	body := []byte(form.Encode())

	u, err := url.Parse(p.cfg.STSEndpoint)
	if err != nil {
		return signingEntry{}, fmt.Errorf("auth sts endpoint: %w", err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	headers := sigv4.Sign(sigv4.Request{
		Method:  http.MethodPost,
		Host:    u.Host,
		Path:    path,
		Body:    body,
		Region:  p.cfg.STSRegion,
		Service: stsService,
	}, sigv4.Credentials{AccessKeyID: p.cfg.AccessKeyID, SecretAccessKey: p.cfg.SecretAccessKey}, "", p.clock.Now())

	data, err := p.postForm(ctx, p.cfg.STSEndpoint, acceptXML, body, headers)
	if err != nil {
		return signingEntry{}, err
	}
	var resp assumeRoleResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return signingEntry{}, fmt.Errorf("auth sts decode: %w", err)
	}
	c := resp.Result.Credentials
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return signingEntry{}, fmt.Errorf("auth sts: response carried no credentials")
	}
	exp, err := time.Parse(time.RFC3339, c.Expiration)
	if err != nil {
		exp = p.clock.Now().Add(assumeRoleTTL * time.Second)
	}
	return signingEntry{
		Credentials: sigv4.Credentials{AccessKeyID: c.AccessKeyID, SecretAccessKey: c.SecretAccessKey, SessionToken: c.SessionToken},
		Expiry:      exp,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// refreshAccessToken trades the refresh token for a short-lived access token.
func (p *Provider) refreshAccessToken(ctx context.Context) (tokenEntry, error) {
	form := url.Values{
		"grant_type":    {refreshTokenType},
		"refresh_token": {p.cfg.RefreshToken},
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
	}
	data, err := p.postForm(ctx, p.cfg.TokenEndpoint, acceptJSON, []byte(form.Encode()), nil)
	if err != nil {
		return tokenEntry{}, err
	}
	var resp tokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return tokenEntry{}, fmt.Errorf("auth token decode: %w", err)
	}
	if resp.AccessToken == "" {
		return tokenEntry{}, fmt.Errorf("auth token: response carried no access_token")
	}
	ttl := time.Duration(resp.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	return tokenEntry{Token: resp.AccessToken, Expiry: p.clock.Now().Add(ttl)}, nil
}

// postForm posts a form body and returns the raw answer. STS answers in
// the format named by Accept, so each caller states the one it decodes.
func (p *Provider) postForm(ctx context.Context, endpoint, accept string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("auth request %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", formContentType)
	req.Header.Set("Accept", accept)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth POST %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("auth read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &ExchangeError{Endpoint: endpoint, Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
