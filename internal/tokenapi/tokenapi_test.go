package tokenapi_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vaulth-auth/vaulth/core/router"
	"github.com/vaulth-auth/vaulth/internal/claims"
	"github.com/vaulth-auth/vaulth/internal/jwtservice"
	"github.com/vaulth-auth/vaulth/internal/oauth2x"
	"github.com/vaulth-auth/vaulth/internal/store"
	"github.com/vaulth-auth/vaulth/internal/tokenapi"
)

func generateTestKeyPair(t *testing.T) (privPEM, pubPEM []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	privPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM
}

type fakeStore struct {
	byProvider map[string]store.User
	loggedIn   map[string]bool
	registered map[string]store.User
	takenIDs   map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byProvider: map[string]store.User{},
		loggedIn:   map[string]bool{},
		registered: map[string]store.User{},
		takenIDs:   map[string]bool{},
	}
}

func (f *fakeStore) SelectByProvider(ctx context.Context, p store.Provider, providerID string) (store.User, error) {
	u, ok := f.byProvider[string(p)+":"+providerID]
	if !ok {
		return store.User{}, store.ErrNoMatchingUser
	}
	return u, nil
}

func (f *fakeStore) Login(ctx context.Context, id string) (store.User, error) {
	f.loggedIn[id] = true
	return store.User{ID: id}, nil
}

func (f *fakeStore) RegisterByProvider(ctx context.Context, p store.Provider, providerID string, givenID *string) (store.User, error) {
	if givenID != nil && f.takenIDs[*givenID] {
		return store.User{}, store.ErrUserIDTaken
	}
	id := uuid.NewString()
	if givenID != nil {
		id = *givenID
	}
	u := store.User{ID: id}
	f.byProvider[string(p)+":"+providerID] = u
	f.takenIDs[id] = true
	// The real INSERT stamps login_at = now(), so a new user is logged in.
	f.loggedIn[id] = true
	return u, nil
}

func setup(t *testing.T) (*jwtservice.Service, *fakeStore, map[string]oauth2x.Client) {
	t.Helper()
	priv, pub := generateTestKeyPair(t)
	jwt, err := jwtservice.New(priv, pub, time.Hour)
	require.NoError(t, err)
	st := newFakeStore()
	clients := map[string]oauth2x.Client{
		"app1": {ClientSecret: "s3cr3t"},
	}
	return jwt, st, clients
}

func mintCode(t *testing.T, jwt *jwtservice.Service, providerName, providerID, clientID string) string {
	t.Helper()
	code, err := jwtservice.Encode(jwt, claims.CodeClaim{
		ProviderName: providerName,
		ProviderID:   providerID,
		ClientID:     clientID,
	})
	require.NoError(t, err)
	return code
}

func doRequest(t *testing.T, rtr interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	rtr.ServeHTTP(w, req)
	return w
}

func TestLoginSucceedsForLinkedUser(t *testing.T) {
	t.Parallel()
	jwt, st, clients := setup(t)
	userID := uuid.NewString()
	st.byProvider["discord:pid1"] = store.User{ID: userID}

	ep := tokenapi.New(jwt, st, clients, 60)
	r := router.New[*router.Context]()
	r.Post("/token", ep.Login())

	code := mintCode(t, jwt, "discord", "pid1", "app1")
	w := doRequest(t, r, http.MethodPost, "/token", map[string]string{
		"client_id": "app1", "client_secret": "s3cr3t", "code": code,
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.EqualValues(t, 60, resp["expires_in"])
	require.True(t, st.loggedIn[userID])
}

// TestLoginForExistingUserMatchesLiteralScenario is scenarios S3/S4: a
// local user "u1" already linked to discord_id "12345" exchanges the code
// minted by the second leg and gets back an access token with sub="u1".
func TestLoginForExistingUserMatchesLiteralScenario(t *testing.T) {
	t.Parallel()
	jwt, st, clients := setup(t)
	st.byProvider["discord:12345"] = store.User{ID: "u1"}

	ep := tokenapi.New(jwt, st, clients, 60)
	r := router.New[*router.Context]()
	r.Post("/token", ep.Login())

	code := mintCode(t, jwt, "discord", "12345", "app1")
	w := doRequest(t, r, http.MethodPost, "/token", map[string]string{
		"client_id": "app1", "client_secret": "s3cr3t", "code": code,
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.EqualValues(t, 60, resp["expires_in"])

	accessToken, _ := resp["access_token"].(string)
	accessClaim, err := jwtservice.Decode[claims.AccessClaim](jwt, accessToken)
	require.NoError(t, err)
	require.Equal(t, "u1", accessClaim.Sub)
	require.True(t, st.loggedIn["u1"])
}

func TestLoginRejectsUnmatchedUser(t *testing.T) {
	t.Parallel()
	jwt, st, clients := setup(t)

	ep := tokenapi.New(jwt, st, clients, 60)
	r := router.New[*router.Context]()
	r.Post("/token", ep.Login())

	code := mintCode(t, jwt, "discord", "pid-missing", "app1")
	w := doRequest(t, r, http.MethodPost, "/token", map[string]string{
		"client_id": "app1", "client_secret": "s3cr3t", "code": code,
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"no matching user"}`, w.Body.String())
}

func TestLoginRejectsWrongSecret(t *testing.T) {
	t.Parallel()
	jwt, st, clients := setup(t)
	st.byProvider["discord:pid1"] = store.User{ID: uuid.NewString()}

	ep := tokenapi.New(jwt, st, clients, 60)
	r := router.New[*router.Context]()
	r.Post("/token", ep.Login())

	code := mintCode(t, jwt, "discord", "pid1", "app1")
	w := doRequest(t, r, http.MethodPost, "/token", map[string]string{
		"client_id": "app1", "client_secret": "wrong", "code": code,
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"invalid client_secret"}`, w.Body.String())
}

func TestLoginRejectsUndecodableCode(t *testing.T) {
	t.Parallel()
	jwt, st, clients := setup(t)

	ep := tokenapi.New(jwt, st, clients, 60)
	r := router.New[*router.Context]()
	r.Post("/token", ep.Login())

	w := doRequest(t, r, http.MethodPost, "/token", map[string]string{
		"client_id": "app1", "client_secret": "s3cr3t", "code": "garbage",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"invalid code"}`, w.Body.String())
}

func TestRegisterCreatesNewUser(t *testing.T) {
	t.Parallel()
	jwt, st, clients := setup(t)

	ep := tokenapi.New(jwt, st, clients, 60)
	r := router.New[*router.Context]()
	r.Post("/token/{user}", ep.Register())

	givenID := uuid.NewString()
	code := mintCode(t, jwt, "github", "gh-1", "app1")
	w := doRequest(t, r, http.MethodPost, "/token/"+givenID, map[string]string{
		"client_id": "app1", "client_secret": "s3cr3t", "code": code,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
}

// TestRegisterAcceptsArbitraryClientChosenID is scenario S5's single-shot
// shape: the id "newbie" is a plain string, not a UUID, and must round
// trip as the spec requires.
func TestRegisterAcceptsArbitraryClientChosenID(t *testing.T) {
	t.Parallel()
	jwt, st, clients := setup(t)

	ep := tokenapi.New(jwt, st, clients, 60)
	r := router.New[*router.Context]()
	r.Post("/token/{user}", ep.Register())

	code := mintCode(t, jwt, "discord", "99", "app1")
	w := doRequest(t, r, http.MethodPost, "/token/newbie", map[string]string{
		"client_id": "app1", "client_secret": "s3cr3t", "code": code,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, st.loggedIn["newbie"])
	u, err := st.SelectByProvider(context.Background(), store.Discord, "99")
	require.NoError(t, err)
	require.Equal(t, "newbie", u.ID)
}

func TestRegisterLogsInWhenAlreadyLinkedToSameUser(t *testing.T) {
	t.Parallel()
	jwt, st, clients := setup(t)
	givenID := "u1"
	st.byProvider["github:gh-1"] = store.User{ID: givenID}

	ep := tokenapi.New(jwt, st, clients, 60)
	r := router.New[*router.Context]()
	r.Post("/token/{user}", ep.Register())

	code := mintCode(t, jwt, "github", "gh-1", "app1")
	w := doRequest(t, r, http.MethodPost, "/token/"+givenID, map[string]string{
		"client_id": "app1", "client_secret": "s3cr3t", "code": code,
	})

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, st.loggedIn[givenID])
}

func TestRegisterRejectsMismatchedUser(t *testing.T) {
	t.Parallel()
	jwt, st, clients := setup(t)
	linkedID := uuid.NewString()
	st.byProvider["github:gh-1"] = store.User{ID: linkedID}

	ep := tokenapi.New(jwt, st, clients, 60)
	r := router.New[*router.Context]()
	r.Post("/token/{user}", ep.Register())

	otherID := uuid.NewString()
	code := mintCode(t, jwt, "github", "gh-1", "app1")
	w := doRequest(t, r, http.MethodPost, "/token/"+otherID, map[string]string{
		"client_id": "app1", "client_secret": "s3cr3t", "code": code,
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"mismatched users"}`, w.Body.String())
}

func TestRegisterRejectsTakenUserID(t *testing.T) {
	t.Parallel()
	jwt, st, clients := setup(t)
	givenID := uuid.NewString()
	st.takenIDs[givenID] = true

	ep := tokenapi.New(jwt, st, clients, 60)
	r := router.New[*router.Context]()
	r.Post("/token/{user}", ep.Register())

	code := mintCode(t, jwt, "github", "gh-new", "app1")
	w := doRequest(t, r, http.MethodPost, "/token/"+givenID, map[string]string{
		"client_id": "app1", "client_secret": "s3cr3t", "code": code,
	})

	require.Equal(t, http.StatusConflict, w.Code)
	require.JSONEq(t, `{"error":"user id taken"}`, w.Body.String())
}
