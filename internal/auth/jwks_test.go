package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type keyServer struct {
	pub   *rsa.PublicKey
	kid   atomic.Pointer[string]
	hits  atomic.Int32
	hold  chan struct{}
	held  chan struct{}
	holdN int32
}

func newKeyServer(t *testing.T, kid string) (*keyServer, *httptest.Server) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	ks := &keyServer{pub: &priv.PublicKey}
	ks.kid.Store(&kid)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := ks.hits.Add(1)
		if ks.hold != nil && n == ks.holdN {
			close(ks.held)
			<-ks.hold
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": *ks.kid.Load(),
				"n":   base64.RawURLEncoding.EncodeToString(ks.pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(ks.pub.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return ks, srv
}

type testClock struct{ now atomic.Int64 }

func newTestClock(start time.Time) *testClock {
	c := &testClock{}
	c.now.Store(start.UnixNano())
	return c
}

func (c *testClock) Now() time.Time { return time.Unix(0, c.now.Load()) }

func (c *testClock) Advance(d time.Duration) { c.now.Add(int64(d)) }

func TestJWKSLimitsUnknownKidRefresh(t *testing.T) {
	t.Parallel()

	ks, srv := newKeyServer(t, "k1")
	clock := newTestClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	jwks := NewJWKS(srv.URL, srv.Client(), time.Hour)
	jwks.now = clock.Now

	if _, err := jwks.Key(context.Background(), "k1"); err != nil {
		t.Fatalf("known key: %v", err)
	}
	for i := range 50 {
		if _, err := jwks.Key(context.Background(), fmt.Sprintf("forged-%d", i)); err == nil {
			t.Fatalf("expected unknown key id error for forged-%d", i)
		}
	}
	if got := ks.hits.Load(); got != 1 {
		t.Fatalf("unknown key ids refetched keys: got=%d fetches want=1", got)
	}

	clock.Advance(minUnknownKidRefresh)
	if _, err := jwks.Key(context.Background(), "forged-late"); err == nil {
		t.Fatal("expected unknown key id error")
	}
	if _, err := jwks.Key(context.Background(), "forged-late-2"); err == nil {
		t.Fatal("expected unknown key id error")
	}
	if got := ks.hits.Load(); got != 2 {
		t.Fatalf("expected one refresh per interval: got=%d fetches want=2", got)
	}
}

func TestJWKSPicksUpRotatedKey(t *testing.T) {
	t.Parallel()

	ks, srv := newKeyServer(t, "k1")
	clock := newTestClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	jwks := NewJWKS(srv.URL, srv.Client(), time.Hour)
	jwks.now = clock.Now

	if _, err := jwks.Key(context.Background(), "k1"); err != nil {
		t.Fatalf("initial key: %v", err)
	}
	rotated := "k2"
	ks.kid.Store(&rotated)

	clock.Advance(minUnknownKidRefresh)
	key, err := jwks.Key(context.Background(), "k2")
	if err != nil {
		t.Fatalf("rotated key: %v", err)
	}
	if key.(*rsa.PublicKey).N.Cmp(ks.pub.N) != 0 {
		t.Fatal("unexpected rotated key material")
	}
}

func TestJWKSCachedLookupDoesNotWaitForRefresh(t *testing.T) {
	t.Parallel()

	ks, srv := newKeyServer(t, "k1")
	ks.hold = make(chan struct{})
	ks.held = make(chan struct{})
	ks.holdN = 2
	release := sync.OnceFunc(func() { close(ks.hold) })
	t.Cleanup(release)
	clock := newTestClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	jwks := NewJWKS(srv.URL, srv.Client(), time.Hour)
	jwks.now = clock.Now

	if _, err := jwks.Key(context.Background(), "k1"); err != nil {
		t.Fatalf("initial key: %v", err)
	}
	clock.Advance(minUnknownKidRefresh)

	refreshed := make(chan error, 1)
	go func() {
		_, err := jwks.Key(context.Background(), "k9")
		refreshed <- err
	}()
	<-ks.held

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := jwks.Key(ctx, "k1")
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cached key: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("cached lookup blocked behind a refresh")
	}

	release()
	if err := <-refreshed; err == nil {
		t.Fatal("expected unknown key id after refresh")
	}
}
