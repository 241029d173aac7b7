package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/truenumber/truenumber-cli/internal/apiclient"
	"github.com/truenumber/truenumber-cli/internal/apitest"
	"github.com/truenumber/truenumber-cli/internal/dependencies/mocks"
	"github.com/truenumber/truenumber-cli/internal/model"
	"github.com/truenumber/truenumber-cli/internal/testutil"
)

type StoreTestSuite struct {
	suite.Suite

	server *apitest.Server
	client *apiclient.Client
	tokens *TokenFile
	store  *Store

	aliceID model.UserID
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	clk := mocks.NewMockClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	s.server = apitest.NewServer(clk, mocks.NewMockRandom())

	s.aliceID = s.server.Seed(model.User{
		Username: "alice",
		Email:    "alice@example.com",
		Phone:    "0600000001",
		Role:     model.RoleClient,
		Balance:  100,
	}, "password1")

	s.client = apiclient.New(s.server.URL())
	s.tokens = NewTokenFile(filepath.Join(s.T().TempDir(), "token"))
	s.store = NewStore(s.client, s.tokens, testutil.NopLogger())
}

func (s *StoreTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *StoreTestSuite) login() {
	err := s.store.Login(context.Background(), Credentials{
		Email:    "alice@example.com",
		Password: "password1",
	})
	s.Require().NoError(err)
}

func (s *StoreTestSuite) TestRestoreWithoutTokenMakesNoNetworkCall() {
	s.store.Restore(context.Background())

	s.Equal(StateUnauthenticated, s.store.State())
	s.Zero(s.server.Requests())
}

func (s *StoreTestSuite) TestLoginEstablishesSession() {
	s.login()

	snap := s.store.Snapshot()
	s.Equal(StateAuthenticated, snap.State)
	s.Require().NotNil(snap.User)
	s.Equal(s.aliceID, snap.User.ID)
	s.Equal("alice", snap.User.Username)
	s.Equal(100, snap.User.Balance)
	s.NoError(s.store.Err())
}

func (s *StoreTestSuite) TestLoginPersistsAttachedToken() {
	s.login()

	persisted, err := s.tokens.Load()
	s.Require().NoError(err)
	s.NotEmpty(persisted)
	s.Equal(s.client.Token(), persisted)
}

func (s *StoreTestSuite) TestLoginFailureLeavesPriorSessionUntouched() {
	s.login()
	before, err := s.tokens.Load()
	s.Require().NoError(err)

	loginErr := s.store.Login(context.Background(), Credentials{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	s.Require().Error(loginErr)
	s.Equal("Identifiants incorrects", apiclient.ServerMessage(loginErr, "fallback"))

	snap := s.store.Snapshot()
	s.Equal(StateAuthenticated, snap.State)
	s.Require().NotNil(snap.User)
	s.Equal(s.aliceID, snap.User.ID)

	after, err := s.tokens.Load()
	s.Require().NoError(err)
	s.Equal(before, after)
}

func (s *StoreTestSuite) TestLoginResponseWithoutTokenIsProtocolError() {
	raw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"_id":"u1","username":"alice","role":"client"}}`))
	}))
	defer raw.Close()

	client := apiclient.New(raw.URL)
	store := NewStore(client, NewTokenFile(filepath.Join(s.T().TempDir(), "token")), testutil.NopLogger())

	err := store.Login(context.Background(), Credentials{Email: "alice@example.com", Password: "password1"})
	s.Require().ErrorIs(err, model.ErrMalformedResponse)
	s.Equal(StateUnauthenticated, store.State())
}

func (s *StoreTestSuite) TestRestoreWithValidToken() {
	token := s.server.TokenFor(s.aliceID)
	s.Require().NoError(s.tokens.Save(token))

	s.store.Restore(context.Background())

	snap := s.store.Snapshot()
	s.Equal(StateAuthenticated, snap.State)
	s.Require().NotNil(snap.User)
	s.Equal(s.aliceID, snap.User.ID)
}

func (s *StoreTestSuite) TestRestoreWithInvalidTokenClearsFile() {
	s.Require().NoError(s.tokens.Save("tok_bogus"))

	s.store.Restore(context.Background())

	s.Equal(StateUnauthenticated, s.store.State())
	s.Nil(s.store.User())
	s.Error(s.store.Err())

	persisted, err := s.tokens.Load()
	s.Require().NoError(err)
	s.Empty(persisted)
	s.Empty(s.client.Token())
}

func (s *StoreTestSuite) TestRestoreTokenLeavesFileAlone() {
	s.Require().NoError(s.tokens.Save("tok_from_previous_run"))

	s.store.RestoreToken(context.Background(), s.server.TokenFor(s.aliceID))

	s.Equal(StateAuthenticated, s.store.State())
	persisted, err := s.tokens.Load()
	s.Require().NoError(err)
	s.Equal("tok_from_previous_run", persisted)
}

func (s *StoreTestSuite) TestLogoutClearsEverything() {
	s.login()

	s.store.Logout()

	s.Equal(StateUnauthenticated, s.store.State())
	s.Nil(s.store.User())
	s.Empty(s.client.Token())
	persisted, err := s.tokens.Load()
	s.Require().NoError(err)
	s.Empty(persisted)
}

func (s *StoreTestSuite) TestLogoutWhenAlreadyLoggedOut() {
	s.store.Logout()
	s.store.Logout()
	s.Equal(StateUnauthenticated, s.store.State())
}

func (s *StoreTestSuite) TestRevokedTokenForcesLogout() {
	s.login()
	s.server.InvalidateToken(s.client.Token())

	err := s.store.Refresh(context.Background())
	s.Require().Error(err)

	s.Equal(StateUnauthenticated, s.store.State())
	s.Nil(s.store.User())
	s.ErrorIs(s.store.Err(), model.ErrNotAuthenticated)

	persisted, loadErr := s.tokens.Load()
	s.Require().NoError(loadErr)
	s.Empty(persisted)
}

func (s *StoreTestSuite) TestUpdateUserMergesFields() {
	s.login()

	balance := 185
	s.store.UpdateUser(model.UserPatch{Balance: &balance})

	user := s.store.User()
	s.Require().NotNil(user)
	s.Equal(185, user.Balance)
	s.Equal("alice", user.Username)
}

func (s *StoreTestSuite) TestUpdateUserIgnoredWhenLoggedOut() {
	balance := 185
	s.store.UpdateUser(model.UserPatch{Balance: &balance})
	s.Nil(s.store.User())
}

func (s *StoreTestSuite) TestRefreshReplacesSnapshot() {
	s.login()

	// Make the local snapshot diverge from the server.
	stale := 1
	s.store.UpdateUser(model.UserPatch{Balance: &stale})

	s.Require().NoError(s.store.Refresh(context.Background()))
	s.Equal(100, s.store.User().Balance)
}

func (s *StoreTestSuite) TestRefreshRequiresSession() {
	s.ErrorIs(s.store.Refresh(context.Background()), model.ErrNotAuthenticated)
}

func (s *StoreTestSuite) TestRegisterLogsTheNewAccountIn() {
	user, err := s.store.Register(context.Background(), Registration{
		Username: "bob",
		Email:    "bob@example.com",
		Phone:    "0600000002",
		Password: "password2",
	})
	s.Require().NoError(err)
	s.Require().NotNil(user)
	s.Equal("bob", user.Username)
	s.Equal(model.RoleClient, user.Role)
	s.Equal(0, user.Balance)

	snap := s.store.Snapshot()
	s.Equal(StateAuthenticated, snap.State)
	s.Require().NotNil(snap.User)
	s.Equal(user.ID, snap.User.ID)

	persisted, loadErr := s.tokens.Load()
	s.Require().NoError(loadErr)
	s.Equal(s.client.Token(), persisted)
}

func (s *StoreTestSuite) TestRegisterDuplicateEmail() {
	_, err := s.store.Register(context.Background(), Registration{
		Username: "alice2",
		Email:    "alice@example.com",
		Phone:    "0600000003",
		Password: "password3",
	})
	s.Require().Error(err)
	s.Equal("Cet email est déjà utilisé", apiclient.ServerMessage(err, "fallback"))
	s.Equal(StateUnauthenticated, s.store.State())
}
