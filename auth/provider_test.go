package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"inboundcore/config"
)

const stsBody = `<AssumeRoleResponse xmlns="https://sts.amazonaws.com/doc/2011-06-15/">
  <AssumeRoleResult>
    <Credentials>
      <AccessKeyId>ASIATEMP</AccessKeyId>
      <SecretAccessKey>tempsecret</SecretAccessKey>
      <SessionToken>tempsession</SessionToken>
      <Expiration>2099-01-01T00:00:00Z</Expiration>
    </Credentials>
  </AssumeRoleResult>
</AssumeRoleResponse>`

type fakeExchanges struct {
	mu          sync.Mutex
	tokenCalls  int
	stsCalls    int
	tokenStatus []int
	expiresIn   int
	lastForm    map[string]string
	stsAuth     string
	stsAccept   string
	tokenAccept string
}

func (f *fakeExchanges) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		r.ParseForm()
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		switch r.URL.Path {
		case "/token":
			f.tokenCalls++
			f.lastForm = form
			f.tokenAccept = r.Header.Get("Accept")
			if i := f.tokenCalls - 1; i < len(f.tokenStatus) && f.tokenStatus[i] != http.StatusOK {
				w.WriteHeader(f.tokenStatus[i])
				w.Write([]byte(`{"error":"nope"}`))
				return
			}
			expires := f.expiresIn
			if expires == 0 {
				expires = 3600
			}
			json.NewEncoder(w).Encode(map[string]any{"access_token": "Atza|fresh", "token_type": "bearer", "expires_in": expires})
		case "/sts":
			f.stsCalls++
			f.stsAuth = r.Header.Get("Authorization")
			f.stsAccept = r.Header.Get("Accept")
			if form["Action"] != "AssumeRole" || form["RoleArn"] != "arn:aws:iam::1:role/sp" {
				t.Errorf("sts form = %v", form)
			}
			// STS switches to a JSON body when asked for one.
			if strings.Contains(f.stsAccept, "json") {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"AssumeRoleResponse":{"AssumeRoleResult":{"Credentials":{"AccessKeyId":"ASIAROLE"}}}}`))
				return
			}
			w.Header().Set("Content-Type", "text/xml")
			w.Write([]byte(stsBody))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}
}

func testProvider(t *testing.T, f *fakeExchanges, roleARN string) (*httptest.Server, *Provider) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	cfg := config.Defaults().Auth
	cfg.TokenEndpoint = srv.URL + "/token"
	cfg.STSEndpoint = srv.URL + "/sts"
	cfg.ClientID = "amzn1.app"
	cfg.ClientSecret = "shh"
	cfg.RefreshToken = "Atzr|long"
	cfg.AccessKeyID = "AKIAUSER"
	cfg.SecretAccessKey = "usersecret"
	cfg.RoleARN = roleARN
	return srv, NewProvider(cfg, srv.Client())
}

func TestTokenExchangeAndCache(t *testing.T) {
	f := &fakeExchanges{}
	srv, p := testProvider(t, f, "")
	defer srv.Close()

	c, err := p.Credentials(context.Background())
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if c.AccessToken != "Atza|fresh" {
		t.Errorf("token = %q, want %q", c.AccessToken, "Atza|fresh")
	}
	if c.Signing.AccessKeyID != "AKIAUSER" {
		t.Errorf("access key = %q, want static key", c.Signing.AccessKeyID)
	}
	if f.lastForm["grant_type"] != "refresh_token" || f.lastForm["refresh_token"] != "Atzr|long" || f.lastForm["client_id"] != "amzn1.app" {
		t.Errorf("form = %v", f.lastForm)
	}

	if _, err := p.Credentials(context.Background()); err != nil {
		t.Fatalf("Credentials (cached): %v", err)
	}
	if f.tokenCalls != 1 {
		t.Errorf("token calls = %d, want 1", f.tokenCalls)
	}
	if f.stsCalls != 0 {
		t.Errorf("sts calls = %d, want 0 without a role", f.stsCalls)
	}
}

func TestAssumeRole(t *testing.T) {
	f := &fakeExchanges{}
	srv, p := testProvider(t, f, "arn:aws:iam::1:role/sp")
	defer srv.Close()

	key, tok, err := p.SigningCredentials(context.Background())
	if err != nil {
		t.Fatalf("SigningCredentials: %v", err)
	}
	if key.AccessKeyID != "ASIATEMP" || key.SecretAccessKey != "tempsecret" || key.SessionToken != "tempsession" {
		t.Errorf("signing = %+v", key)
	}
	if tok != "Atza|fresh" {
		t.Errorf("token = %q", tok)
	}
	if !strings.Contains(f.stsAuth, "Credential=AKIAUSER/") || !strings.Contains(f.stsAuth, "/us-east-1/sts/aws4_request") {
		t.Errorf("sts Authorization = %q", f.stsAuth)
	}
	if f.stsAccept != "text/xml" {
		t.Errorf("sts Accept = %q, want text/xml", f.stsAccept)
	}
	if f.tokenAccept != "application/json" {
		t.Errorf("token Accept = %q, want application/json", f.tokenAccept)
	}
	signingExp, tokenExp := p.Expiries()
	if signingExp.Year() != 2099 || tokenExp.IsZero() {
		t.Errorf("expiries = %v, %v", signingExp, tokenExp)
	}
}

func TestServerErrorRetriedOnce(t *testing.T) {
	f := &fakeExchanges{tokenStatus: []int{http.StatusBadGateway, http.StatusOK}}
	srv, p := testProvider(t, f, "")
	defer srv.Close()

	if _, err := p.Credentials(context.Background()); err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if f.tokenCalls != 2 {
		t.Errorf("token calls = %d, want 2", f.tokenCalls)
	}
}

func TestPersistentServerErrorFails(t *testing.T) {
	f := &fakeExchanges{tokenStatus: []int{500, 500, 500}}
	srv, p := testProvider(t, f, "")
	defer srv.Close()

	_, err := p.Credentials(context.Background())
	var ee *ExchangeError
	if !errors.As(err, &ee) || ee.Status != 500 {
		t.Fatalf("err = %v, want 500 ExchangeError", err)
	}
	if f.tokenCalls != 2 {
		t.Errorf("token calls = %d, want 2", f.tokenCalls)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	f := &fakeExchanges{tokenStatus: []int{http.StatusBadRequest}}
	srv, p := testProvider(t, f, "")
	defer srv.Close()

	if _, err := p.Credentials(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if f.tokenCalls != 1 {
		t.Errorf("token calls = %d, want 1", f.tokenCalls)
	}
}

func TestNearExpiryRefreshes(t *testing.T) {
	f := &fakeExchanges{expiresIn: 30}
	srv, p := testProvider(t, f, "")
	defer srv.Close()

	p.Credentials(context.Background())
	p.Credentials(context.Background())
	if f.tokenCalls != 2 {
		t.Errorf("token calls = %d, want 2 when lifetime is inside the skew", f.tokenCalls)
	}

	p.Invalidate()
	if s, tok := p.Expiries(); !s.IsZero() || !tok.IsZero() {
		t.Error("Invalidate should clear cached entries")
	}
}

type memCache struct {
	data map[string][]byte
	ttls map[string]time.Duration
}

func (m *memCache) Load(_ context.Context, key string, v any) (bool, error) {
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, v)
}

func (m *memCache) Store(_ context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = b
	m.ttls[key] = ttl
	return nil
}

func TestSharedCacheAvoidsExchange(t *testing.T) {
	f := &fakeExchanges{}
	srv, first := testProvider(t, f, "arn:aws:iam::1:role/sp")
	defer srv.Close()
	cache := &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
	first.WithCache(cache)

	if _, err := first.Credentials(context.Background()); err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if ttl := cache.ttls["inboundcore:auth:token:amzn1.app"]; ttl <= 0 || ttl > time.Hour {
		t.Errorf("token ttl = %v", ttl)
	}

	second := NewProvider(first.cfg, srv.Client()).WithCache(cache)
	c, err := second.Credentials(context.Background())
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if c.Signing.SessionToken != "tempsession" {
		t.Errorf("session token = %q", c.Signing.SessionToken)
	}
	if f.tokenCalls != 1 || f.stsCalls != 1 {
		t.Errorf("calls token=%d sts=%d, want 1 each", f.tokenCalls, f.stsCalls)
	}
}
