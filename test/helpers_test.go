//go:build integration
// +build integration

package test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/store"
	"github.com/alicebob/miniredis/v2"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

type shopUser struct {
	id       int
	password string
	role     string
}

// shopAPI is a storefront backend with fixed accounts.
type shopAPI struct {
	*httptest.Server
	users      map[string]shopUser
	ttl        time.Duration
	profileHit atomic.Int32
	rejectAll  atomic.Bool
}

func newShopAPI(t *testing.T) *shopAPI {
	t.Helper()
	api := &shopAPI{
		users: map[string]shopUser{
			"alice": {id: 1, password: "correct-horse", role: "ROLE_MERCHANT"},
			"bob":   {id: 2, password: "battery-staple", role: "ROLE_USER"},
			"root":  {id: 3, password: "toor", role: "ROLE_ADMIN"},
		},
		ttl: time.Hour,
	}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Close)
	return api
}

func (a *shopAPI) baseURL() string { return a.URL + "/api" }

func (a *shopAPI) token(username string) string {
	u := a.users[username]
	tok, _ := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub":  username,
		"role": u.role,
		"exp":  time.Now().Add(a.ttl).Unix(),
	}).SignedString([]byte("integration"))
	return tok
}

func (a *shopAPI) serve(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/auth/login":
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		u, ok := a.users[body.Username]
		if !ok || u.password != body.Password {
			io.WriteString(w, `{"code":0,"message":"invalid username or password"}`)
			return
		}
		w.Header().Set("X-New-Token", "Bearer "+a.token(body.Username))
		io.WriteString(w, `{"code":1}`)

	case "/api/user":
		a.profileHit.Add(1)
		if a.rejectAll.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		claims := jwtlib.MapClaims{}
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		name, _ := claims["sub"].(string)
		u := a.users[name]
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 1,
			"data": map[string]any{"id": u.id, "username": name, "role": u.role},
		})

	default:
		http.NotFound(w, r)
	}
}

// backendFactory opens a credential backend; calling it twice returns two
// handles on the same underlying storage.
type backendFactory struct {
	name string
	open func(t *testing.T) store.Backend
}

func backendFactories(t *testing.T) []backendFactory {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	filePath := t.TempDir() + "/session.json"
	badgerDir := t.TempDir()

	factories := []backendFactory{
		{
			name: "file",
			open: func(t *testing.T) store.Backend { return store.NewFileBackend(filePath) },
		},
		{
			name: "badger",
			open: func(t *testing.T) store.Backend {
				b, err := store.OpenBadger(badgerDir, "it", nil)
				if err != nil {
					t.Fatalf("open badger: %v", err)
				}
				return b
			},
		},
		{
			name: "miniredis",
			open: func(t *testing.T) store.Backend {
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = rdb.Close() })
				return store.NewRedisBackend(rdb, "it", time.Hour)
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		factories = append(factories, backendFactory{
			name: "standalone:" + addr,
			open: func(t *testing.T) store.Backend {
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				t.Cleanup(func() { _ = rdb.Close() })
				return store.NewRedisBackend(rdb, "goSession-it", time.Hour)
			},
		})
	}
	return factories
}

func newController(t *testing.T, api *shopAPI, backend store.Backend) *goSession.Controller {
	t.Helper()
	cfg := goSession.DefaultConfig()
	cfg.Gateway.BaseURL = api.baseURL()
	c, err := goSession.New().WithConfig(cfg).WithBackend(backend).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return c
}
