package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crmdesk/crmctl/internal/model"
)

type fakeStorage struct {
	entries  map[string][]byte
	readErr  error
	writeErr error
}

var _ Storage = (*fakeStorage)(nil)

func newFakeStorage() *fakeStorage {
	return &fakeStorage{entries: map[string][]byte{}}
}

func (f *fakeStorage) Read(key string) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	v, ok := f.entries[key]
	if !ok {
		return nil, ErrNoEntry
	}
	return v, nil
}

func (f *fakeStorage) Write(key string, value []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.entries[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeStorage) Remove(key string) error {
	delete(f.entries, key)
	return nil
}

type fakeAuth struct {
	res   LoginResult
	err   error
	calls int
}

var _ Authenticator = (*fakeAuth)(nil)

func (f *fakeAuth) Login(_ context.Context, _, _ string) (LoginResult, error) {
	f.calls++
	if f.err != nil {
		return LoginResult{}, f.err
	}
	return f.res, nil
}

func mintToken(t *testing.T, payload string) string {
	t.Helper()
	return "hdr." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".sig"
}

func TestHydrate_ClaimsBeatStoredUser(t *testing.T) {
	t.Parallel()

	st := newFakeStorage()
	st.entries[KeyToken] = []byte(mintToken(t, `{"id":"1","username":"bob","role":"sales_rep"}`))
	// stale record that disagrees with the token
	st.entries[KeyUser] = []byte(`{"id":"9","username":"eve","role":"admin"}`)

	s := NewStore(st, nil, zap.NewNop())
	s.Hydrate()

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	require.NotNil(t, snap.User)
	assert.Equal(t, model.User{ID: "1", Username: "bob", Role: model.RoleSalesRep}, *snap.User)
	require.NotNil(t, snap.Claims)
}

func TestHydrate_UndecodableTokenFallsBackToStoredUser(t *testing.T) {
	t.Parallel()

	st := newFakeStorage()
	st.entries[KeyToken] = []byte("not-a-token")
	st.entries[KeyUser] = []byte(`{"id":"2","username":"ann","role":"admin"}`)

	s := NewStore(st, nil, zap.NewNop())
	s.Hydrate()

	snap := s.Snapshot()
	assert.Equal(t, "not-a-token", snap.Token)
	assert.Nil(t, snap.Claims)
	require.NotNil(t, snap.User)
	assert.Equal(t, "ann", snap.User.Username)
}

func TestHydrate_StoredUserWithoutToken(t *testing.T) {
	t.Parallel()

	st := newFakeStorage()
	st.entries[KeyUser] = []byte(`{"id":"3","username":"cat","role":"sales_rep"}`)

	s := NewStore(st, nil, zap.NewNop())
	s.Hydrate()

	// Degraded state: authenticated-looking session with no token. The
	// backend will reject the data calls; hydration does not.
	snap := s.Snapshot()
	assert.Empty(t, snap.Token)
	require.NotNil(t, snap.User)
	assert.Equal(t, "cat", snap.User.Username)
}

func TestHydrate_Empty(t *testing.T) {
	t.Parallel()

	s := NewStore(newFakeStorage(), nil, zap.NewNop())
	s.Hydrate()

	snap := s.Snapshot()
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Claims)
	assert.Empty(t, snap.Token)
}

func TestLogin_SuccessPersistsBothEntries(t *testing.T) {
	t.Parallel()

	tok := mintToken(t, `{"id":"1","username":"bob","role":"admin"}`)
	st := newFakeStorage()
	auth := &fakeAuth{res: LoginResult{
		Token: tok,
		User:  model.User{ID: "server", Username: "server-bob", Role: model.RoleSalesRep},
	}}

	s := NewStore(st, auth, zap.NewNop())
	s.Hydrate()
	ok := s.Login(context.Background(), "bob", "pw")
	require.True(t, ok)

	// claims win over the server-supplied user object
	snap := s.Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, "bob", snap.User.Username)
	assert.True(t, snap.User.Role.IsAdmin())

	assert.Equal(t, tok, string(st.entries[KeyToken]))
	var persisted model.User
	require.NoError(t, json.Unmarshal(st.entries[KeyUser], &persisted))
	assert.Equal(t, "bob", persisted.Username)
}

func TestLogin_OpaqueTokenUsesServerUser(t *testing.T) {
	t.Parallel()

	st := newFakeStorage()
	auth := &fakeAuth{res: LoginResult{
		Token: "opaque-token",
		User:  model.User{ID: "7", Username: "dora", Role: model.RoleSalesRep},
	}}

	s := NewStore(st, auth, zap.NewNop())
	s.Hydrate()
	require.True(t, s.Login(context.Background(), "dora", "pw"))

	snap := s.Snapshot()
	assert.Nil(t, snap.Claims)
	require.NotNil(t, snap.User)
	assert.Equal(t, "dora", snap.User.Username)
}

func TestLogin_FailureLeavesPriorSession(t *testing.T) {
	t.Parallel()

	st := newFakeStorage()
	st.entries[KeyToken] = []byte(mintToken(t, `{"id":"1","username":"bob","role":"sales_rep"}`))

	auth := &fakeAuth{err: errors.New("boom")}
	s := NewStore(st, auth, zap.NewNop())
	s.Hydrate()

	before := s.Snapshot()
	assert.False(t, s.Login(context.Background(), "bob", "wrong"))
	after := s.Snapshot()

	assert.Equal(t, before.Token, after.Token)
	require.NotNil(t, after.User)
	assert.Equal(t, before.User.Username, after.User.Username)
	assert.Equal(t, 1, auth.calls)
}

func TestLogout_Idempotent(t *testing.T) {
	t.Parallel()

	st := newFakeStorage()
	st.entries[KeyToken] = []byte("tok")
	st.entries[KeyUser] = []byte(`{"id":"1","username":"bob","role":"admin"}`)

	s := NewStore(st, nil, zap.NewNop())
	s.Hydrate()
	s.Logout()
	s.Logout()

	snap := s.Snapshot()
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)
	assert.Empty(t, st.entries)
}

func TestRestart_RestoresSameSession(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	storage := NewFileStorage(dir)
	tok := mintToken(t, `{"id":"1","username":"bob","role":"sales_rep"}`)
	auth := &fakeAuth{res: LoginResult{Token: tok, User: model.User{ID: "1", Username: "bob", Role: model.RoleSalesRep}}}

	first := NewStore(storage, auth, zap.NewNop())
	first.Hydrate()
	require.True(t, first.Login(context.Background(), "bob", "pw"))

	// simulated process restart: a new store over the same storage, no
	// re-authentication
	second := NewStore(NewFileStorage(dir), nil, zap.NewNop())
	second.Hydrate()

	snap := second.Snapshot()
	assert.Equal(t, tok, snap.Token)
	require.NotNil(t, snap.User)
	assert.Equal(t, model.RoleSalesRep, snap.User.Role)
	assert.Equal(t, 1, auth.calls)
}
