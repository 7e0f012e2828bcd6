package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/203.0.113.7", r.URL.Path)
		w.Write([]byte(`{"city":"Oslo","country":"Norway"}`))
	}))
	defer srv.Close()

	resolver := NewHTTPResolver(srv.URL, time.Second)

	assert.Equal(t, "Oslo, Norway", resolver.Lookup(context.Background(), "203.0.113.7"))
}

func TestLookup_CountryOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"country":"Norway"}`))
	}))
	defer srv.Close()

	resolver := NewHTTPResolver(srv.URL, time.Second)

	assert.Equal(t, "Norway", resolver.Lookup(context.Background(), "203.0.113.7"))
}

func TestLookup_FailuresFallBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	resolver := NewHTTPResolver(srv.URL, time.Second)

	assert.Equal(t, "N/A", resolver.Lookup(context.Background(), "203.0.113.7"))
	assert.Equal(t, "N/A", resolver.Lookup(context.Background(), ""))

	unconfigured := NewHTTPResolver("", time.Second)
	assert.Equal(t, "N/A", unconfigured.Lookup(context.Background(), "203.0.113.7"))
}
