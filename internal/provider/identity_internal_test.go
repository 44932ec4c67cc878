package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestFetchIdentityFieldNumericID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 42, "login": "octocat"}`))
	}))
	defer srv.Close()

	id, err := fetchIdentityField(context.Background(), &oauth2.Token{AccessToken: "test-token"}, srv.URL, "id", nil)
	require.NoError(t, err)
	require.Equal(t, "42", id)
}

func TestFetchIdentityFieldMissingKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"login": "octocat"}`))
	}))
	defer srv.Close()

	_, err := fetchIdentityField(context.Background(), &oauth2.Token{AccessToken: "t"}, srv.URL, "id", nil)
	require.Error(t, err)
}

func TestFetchIdentityFieldNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := fetchIdentityField(context.Background(), &oauth2.Token{AccessToken: "t"}, srv.URL, "id", nil)
	require.Error(t, err)
}

func TestConfigureSetsUserAgentOnIdentityRequests(t *testing.T) {
	Configure("vaulth-test/1.0")
	t.Cleanup(func() { Configure("") })

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"id": "u1"}`))
	}))
	defer srv.Close()

	_, err := fetchIdentityField(context.Background(), &oauth2.Token{AccessToken: "t"}, srv.URL, "id", nil)
	require.NoError(t, err)
	require.Equal(t, "vaulth-test/1.0", gotUA)
}

func TestFetchIdentityJSONNestedField(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"id": "u-123"}}`))
	}))
	defer srv.Close()

	var body struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := fetchIdentityJSON(context.Background(), &oauth2.Token{AccessToken: "t"}, srv.URL, &body)
	require.NoError(t, err)
	require.Equal(t, "u-123", body.Data.ID)
}
