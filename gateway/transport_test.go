package gateway

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportInjectsBearerAndObservesRenewal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer current", r.Header.Get("Authorization"))
		w.Header().Set("X-New-Token", "renewed")
	}))
	defer srv.Close()

	var observed string
	client := &http.Client{Transport: &Transport{
		Source:        TokenSourceFunc(func() string { return "current" }),
		RenewedHeader: "X-New-Token",
		Observe: func(h http.Header) {
			observed = RenewedToken(h, "X-New-Token")
		},
	}}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "renewed", observed)
}

func TestTransportAnonymousAndExplicitAuth(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	token := ""
	called := false
	client := &http.Client{Transport: &Transport{
		Source:        TokenSourceFunc(func() string { return token }),
		RenewedHeader: "X-New-Token",
		Observe:       func(http.Header) { called = true },
	}}

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	token = "ignored"
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Basic abc")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{"", "Basic abc"}, seen)
	assert.False(t, called, "no renewed header means no observation")
}

func TestRSAPasswordEncoder(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pkix := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey)})

	for _, pemBytes := range [][]byte{pkix, pkcs1} {
		enc, err := RSAPasswordEncoder(pemBytes)
		require.NoError(t, err)

		out, err := enc("hunter2")
		require.NoError(t, err)
		ct, err := base64.StdEncoding.DecodeString(out)
		require.NoError(t, err)
		plain, err := rsa.DecryptPKCS1v15(nil, key, ct)
		require.NoError(t, err)
		assert.Equal(t, "hunter2", string(plain))
	}

	_, err = RSAPasswordEncoder([]byte("not pem"))
	assert.Error(t, err)
}
