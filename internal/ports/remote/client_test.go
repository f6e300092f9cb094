package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	apihttp "expensetracker/internal/http"
	"expensetracker/internal/ports/memory"
	"expensetracker/internal/services"
	"expensetracker/internal/session"
)

// fakeSession records unauthorized callbacks.
type fakeSession struct {
	mu           sync.Mutex
	token        string
	unauthorized int
}

func (f *fakeSession) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeSession) HandleUnauthorized() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unauthorized++
}

func (f *fakeSession) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unauthorized
}

// RemoteSuite runs the client against the real API handler.
type RemoteSuite struct {
	suite.Suite
	api      *httptest.Server
	apiSrv   *apihttp.Server
	requests map[string]*int64
	client   *Client
	session  *session.Store
}

func (s *RemoteSuite) SetupTest() {
	hash, err := auth.HashPassword("demo123")
	s.Require().NoError(err)
	tokens, err := auth.NewTokenManager("remote-test", time.Hour)
	s.Require().NoError(err)

	store := memory.New(memory.WithDemoPassword(hash))
	s.apiSrv = apihttp.NewServer(":0", apihttp.Deps{
		Expenses:   services.NewExpenseService(store, nil),
		Categories: store,
		Auth:       services.NewAuthService(store, tokens, nil),
	})

	s.requests = map[string]*int64{}
	for _, p := range []string{"/categories", "/expenses"} {
		var n int64
		s.requests[p] = &n
	}
	s.api = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n, ok := s.requests[r.URL.Path]; ok {
			atomic.AddInt64(n, 1)
		}
		s.apiSrv.Handler.ServeHTTP(w, r)
	}))

	s.client, err = New(s.api.URL, WithCategoryTTL(time.Minute))
	s.Require().NoError(err)
	s.session, err = session.New(s.client, session.NewMemoryStorage())
	s.Require().NoError(err)
	s.client.AttachSession(s.session)
}

func (s *RemoteSuite) TearDownTest() {
	s.api.Close()
	_ = s.apiSrv.Shutdown(context.Background())
}

func (s *RemoteSuite) login() core.User {
	u, err := s.session.Login(context.Background(), core.LoginRequest{Username: "demo", Password: "demo123"})
	s.Require().NoError(err)
	return u
}

func (s *RemoteSuite) TestLoginAndList() {
	u := s.login()
	s.Equal(memory.DemoUserID, u.UserID)
	s.True(s.session.IsLoggedIn())

	list, err := s.client.List(context.Background(), u.UserID, core.ExpenseFilter{})
	s.Require().NoError(err)
	s.Len(list, 12)

	list, err = s.client.List(context.Background(), u.UserID, core.ExpenseFilter{
		StartDate: core.NewDate(2026, 2, 1),
		EndDate:   core.NewDate(2026, 2, 4),
	})
	s.Require().NoError(err)
	ids := make([]int64, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.ExpenseID)
	}
	s.ElementsMatch([]int64{1, 2, 3, 4, 7, 12}, ids)
}

func (s *RemoteSuite) TestCategoriesAreCached() {
	s.login()
	for i := 0; i < 3; i++ {
		cats, err := s.client.ListCategories(context.Background())
		s.Require().NoError(err)
		s.Len(cats, 8)
	}
	s.Equal(int64(1), atomic.LoadInt64(s.requests["/categories"]))

	s.client.InvalidateCategories()
	_, err := s.client.ListCategories(context.Background())
	s.Require().NoError(err)
	s.Equal(int64(2), atomic.LoadInt64(s.requests["/categories"]))
}

func (s *RemoteSuite) TestExpenseRoundTrip() {
	u := s.login()
	ctx := context.Background()
	req := core.ExpenseRequest{
		Amount:      core.MustMoney("45.50"),
		ExpenseDate: core.NewDate(2026, 2, 10),
		Description: "Team breakfast",
		ExpenseType: core.Organizational,
		UserID:      u.UserID,
		CategoryID:  1,
	}

	created, err := s.client.Create(ctx, req)
	s.Require().NoError(err)
	s.Equal(int64(13), created.ExpenseID)
	s.Equal("Food & Dining", created.CategoryName)

	got, err := s.client.Get(ctx, created.ExpenseID)
	s.Require().NoError(err)
	s.True(req.Amount.Equal(got.Amount))
	s.True(req.ExpenseDate.Equal(got.ExpenseDate))
	s.Equal(req.Description, got.Description)

	req.Description = "Team brunch"
	req.CategoryID = 99
	updated, err := s.client.Update(ctx, created.ExpenseID, req)
	s.Require().NoError(err)
	s.Equal("Team brunch", updated.Description)
	s.Equal(core.UnknownCategoryName, updated.CategoryName)
	s.True(created.CreatedAt.Equal(updated.CreatedAt))

	s.Require().NoError(s.client.Delete(ctx, created.ExpenseID))
	_, err = s.client.Get(ctx, created.ExpenseID)
	s.ErrorIs(err, core.ErrNotFound)

	err = s.client.Delete(ctx, created.ExpenseID)
	s.ErrorIs(err, core.ErrNotFound)
	s.Equal("Expense not found", err.Error())
}

func (s *RemoteSuite) TestServerMessageSurfaced() {
	u := s.login()
	_, err := s.client.Create(context.Background(), core.ExpenseRequest{
		Amount:      core.MustMoney("10"),
		ExpenseDate: core.Today(time.Now().AddDate(0, 0, 3)),
		Description: "Concert",
		ExpenseType: core.Personal,
		UserID:      u.UserID,
		CategoryID:  4,
	})
	var te *core.TransportError
	s.Require().ErrorAs(err, &te)
	s.Equal(http.StatusBadRequest, te.Status)
	s.Equal("expense date cannot be in the future", err.Error())
}

func (s *RemoteSuite) TestBadCredentialsKeepSession() {
	s.login()
	_, err := s.session.Login(context.Background(), core.LoginRequest{Username: "demo", Password: "wrong-one"})
	s.ErrorIs(err, core.ErrUnauthorized)
	s.Equal("Invalid username or password", err.Error())
	s.True(s.session.IsLoggedIn(), "auth endpoint failures never clear the session")
}

func (s *RemoteSuite) TestUnauthorizedClearsSession() {
	fake := &fakeSession{token: "expired-token"}
	s.client.AttachSession(fake)
	_, err := s.client.List(context.Background(), memory.DemoUserID, core.ExpenseFilter{})
	s.ErrorIs(err, core.ErrUnauthorized)
	s.Equal(1, fake.count())
}

func (s *RemoteSuite) TestStaleStoredTokenLogsOut() {
	storage := session.NewMemoryStorage()
	s.Require().NoError(storage.Set(session.KeyToken, "stale"))
	s.Require().NoError(storage.Set(session.KeyUser, `{"userId":1,"username":"demo","email":"demo@example.com"}`))
	sess, err := session.New(s.client, storage)
	s.Require().NoError(err)
	s.Require().True(sess.IsLoggedIn())
	s.client.AttachSession(sess)

	updates, cancel := sess.Subscribe()
	defer cancel()
	s.NotNil(<-updates)

	_, err = s.client.ListCategories(context.Background())
	s.ErrorIs(err, core.ErrUnauthorized)
	s.False(sess.IsLoggedIn())
	s.Nil(<-updates)
	_, ok, _ := storage.Get(session.KeyToken)
	s.False(ok)
}

func TestRemoteSuite(t *testing.T) {
	suite.Run(t, new(RemoteSuite))
}

func TestBearerHeader(t *testing.T) {
	var gotAuth atomic.Value
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.URL.Path + "|" + r.Header.Get("Authorization"))
		if strings.Contains(r.URL.Path, "/auth/") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid username or password"}`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer api.Close()

	c, err := New(api.URL + "/api/")
	require.NoError(t, err)
	sess := &fakeSession{token: "abc"}
	c.AttachSession(sess)

	_, err = c.List(context.Background(), 1, core.ExpenseFilter{})
	require.NoError(t, err)
	assert.Equal(t, "/api/expenses|Bearer abc", gotAuth.Load())

	_, err = c.Login(context.Background(), core.LoginRequest{Username: "demo", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, "/api/auth/login|", gotAuth.Load())
	assert.Zero(t, sess.count())
}

func TestTransportFailure(t *testing.T) {
	api := httptest.NewServer(http.NotFoundHandler())
	url := api.URL
	api.Close()

	c, err := New(url, WithTimeout(time.Second))
	require.NoError(t, err)
	_, err = c.ListCategories(context.Background())

	var te *core.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.Status)
	assert.False(t, errors.Is(err, core.ErrNotFound))
}

func TestPlainTextErrorBody(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer api.Close()

	c, err := New(api.URL, WithTimeout(time.Second))
	require.NoError(t, err)
	_, err = c.ListCategories(context.Background())

	var te *core.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadGateway, te.Status)
	assert.Equal(t, "upstream unavailable", te.Message)
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("localhost:8081")
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "boom", errorMessage(strings.NewReader(`{"message":"boom"}`)))
	assert.Equal(t, "bad gateway", errorMessage(strings.NewReader("bad gateway\n")))
	assert.Equal(t, "", errorMessage(strings.NewReader("")))
}
