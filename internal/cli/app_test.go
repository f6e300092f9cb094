package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/backend"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/session"
)

type fakeReports struct {
	got []export.Report
}

func (f *fakeReports) WriteReport(_ context.Context, r export.Report) (string, error) {
	f.got = append(f.got, r)
	return "Expenses!A1:F20", nil
}

type harness struct {
	t       *testing.T
	res     *backend.BackendResult
	storage *session.MemoryStorage
	reports *fakeReports
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, backend.Config{
		Type:         backend.MemoryBackend,
		DemoPassword: "demo123",
		JWTSecret:    "cli-test-secret-0123456789",
	})
}

func newHarnessWith(t *testing.T, cfg backend.Config) *harness {
	t.Helper()
	res, err := backend.NewFactory(nil).CreateBackend(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Close() })
	return &harness{t: t, res: res, storage: session.NewMemoryStorage(), reports: &fakeReports{}}
}

// run executes one command and returns stdout.
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	err := Run(context.Background(), args, Env{
		Config:  &config.Config{DataBackend: config.BackendMemory},
		Stdin:   strings.NewReader(stdin),
		Stdout:  &out,
		Stderr:  &errOut,
		Now:     func() time.Time { return time.Date(2026, 2, 7, 10, 30, 0, 0, time.UTC) },
		Backend: h.res,
		Storage: h.storage,
		NewReportWriter: func(context.Context) (ReportWriter, error) {
			return h.reports, nil
		},
	})
	return out.String(), err
}

func (h *harness) login() {
	h.t.Helper()
	_, err := h.run("", "login", "-username", "demo", "-password", "demo123")
	require.NoError(h.t, err)
}

func TestHelpAndUnknownCommand(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("")
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, out, "Usage: expensectl")
	assert.Contains(t, out, "dashboard")

	_, err = h.run("", "frobnicate")
	assert.ErrorIs(t, err, errUsage)
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("", "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)

	out, err := h.run("demo123\n", "login", "-username", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as demo (id 1)")

	out, err = h.run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "demo <demo@example.com>")
	assert.Contains(t, out, "backend memory")

	_, err = h.run("", "logout")
	require.NoError(t, err)
	_, err = h.run("", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestExpiredTokenLogsOut(t *testing.T) {
	h := newHarnessWith(t, backend.Config{
		Type:         backend.MemoryBackend,
		DemoPassword: "demo123",
		JWTSecret:    "cli-test-secret-0123456789",
		TokenTTL:     time.Second,
	})
	h.login()

	_, err := h.run("", "whoami")
	require.NoError(t, err)

	time.Sleep(2100 * time.Millisecond)
	_, err = h.run("", "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
	_, ok, _ := h.storage.Get(session.KeyToken)
	assert.False(t, ok)
	_, ok, _ = h.storage.Get(session.KeyUser)
	assert.False(t, ok)
}

func TestForgedTokenIsCleared(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.storage.Set(session.KeyToken, "not-a-token"))
	require.NoError(t, h.storage.Set(session.KeyUser, `{"userId":1,"username":"demo","email":"demo@example.com"}`))

	_, err := h.run("", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)
	_, ok, _ := h.storage.Get(session.KeyToken)
	assert.False(t, ok)

	h.login()
	_, err = h.run("", "list")
	assert.NoError(t, err)
}

func TestTokenForAnotherUserIsCleared(t *testing.T) {
	h := newHarness(t)
	h.login()
	require.NoError(t, h.storage.Set(session.KeyUser, `{"userId":99,"username":"mallory","email":"m@example.com"}`))

	_, err := h.run("", "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
	_, ok, _ := h.storage.Get(session.KeyUser)
	assert.False(t, ok)
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "login", "-username", "demo", "-password", "nope123")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	assert.NotErrorIs(t, err, errNotLoggedIn)
}

func TestSignup(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("secret1\nsecret2\n", "signup", "-username", "alice", "-email", "alice@example.com")
	assert.ErrorIs(t, err, core.ErrPasswordMismatch)

	out, err := h.run("secret1\nsecret1\n", "signup", "-username", "alice", "-email", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed up and logged in as alice")

	out, err = h.run("", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No expenses found")
}

func TestCategories(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("", "categories")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 9)
	assert.Contains(t, lines[0], "APPLIES TO")

	out, err = h.run("", "categories", "-type", "organizational")
	require.NoError(t, err)
	assert.NotContains(t, out, "Entertainment")

	_, err = h.run("", "categories", "-type", "other")
	assert.Error(t, err)
}

func TestListFilters(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("", "list")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 13)

	out, err = h.run("", "list", "-from", "2026-02-01", "-to", "2026-02-04", "-json")
	require.NoError(t, err)
	var n int
	for _, id := range []string{`"expenseId": 1,`, `"expenseId": 2,`, `"expenseId": 3,`, `"expenseId": 4,`, `"expenseId": 7,`, `"expenseId": 12,`} {
		if strings.Contains(out, id) {
			n++
		}
	}
	assert.Equal(t, 6, n)
	assert.NotContains(t, out, `"expenseId": 11,`)

	_, err = h.run("", "list", "-from", "02/01/2026")
	assert.True(t, core.IsValidationError(err), "%v", err)
}

func TestAddShowEditDelete(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("", "add", "-amount", "42.5", "-description", "Taxi", "-category", "2", "-date", "2026-02-06")
	require.NoError(t, err)
	assert.Contains(t, out, "Created expense 13: Taxi ₹42.50 on 2026-02-06")

	out, err = h.run("", "show", "13")
	require.NoError(t, err)
	assert.Contains(t, out, "PERSONAL")
	assert.Contains(t, out, "₹42.50")

	out, err = h.run("", "edit", "13", "-amount", "50", "-type", "ORGANIZATIONAL")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated expense 13: Taxi ₹50.00 on 2026-02-06")

	out, err = h.run("", "show", "13", "-json")
	require.NoError(t, err)
	assert.Contains(t, out, `"expenseType": "ORGANIZATIONAL"`)
	assert.Contains(t, out, `"description": "Taxi"`)

	_, err = h.run("", "edit", "13")
	assert.ErrorIs(t, err, errUsage)

	_, err = h.run("", "delete", "13")
	require.NoError(t, err)
	_, err = h.run("", "show", "13")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = h.run("", "delete", "13")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	h := newHarness(t)
	h.login()

	_, err := h.run("", "add", "-amount", "0", "-description", "Nothing", "-category", "1")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = h.run("", "add", "-amount", "5", "-category", "1")
	assert.ErrorIs(t, err, core.ErrEmptyDescription)

	_, err = h.run("", "add", "-amount", "5", "-description", "Later", "-category", "1", "-date", "2999-01-01")
	assert.ErrorIs(t, err, core.ErrFutureDate)
}

func TestIDArgument(t *testing.T) {
	h := newHarness(t)
	h.login()

	for _, args := range [][]string{{"show"}, {"show", "12abc"}, {"show", "-json"}, {"delete", "0"}} {
		_, err := h.run("", args...)
		assert.ErrorIs(t, err, errUsage, "%v", args)
	}
}

func TestDashboard(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("", "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Expenses of demo: all expenses")
	assert.Contains(t, out, "₹2526.00")
	assert.Contains(t, out, "₹606.00")
	assert.Contains(t, out, "₹1920.00")
	assert.Contains(t, out, "By category")

	out, err = h.run("", "dashboard", "-type", "PERSONAL", "-json")
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 606`)
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	h.login()

	out, err := h.run("", "export", "-type", "ORGANIZATIONAL")
	require.NoError(t, err)
	assert.Contains(t, out, "to Expenses!A1:F20")
	require.Len(t, h.reports.got, 1)
	r := h.reports.got[0]
	assert.Equal(t, "demo", r.Username)
	assert.Equal(t, core.Organizational, r.Filter.Type)
	assert.Equal(t, "1920.00", r.Totals.Total.StringFixed(2))
	assert.Equal(t, time.Date(2026, 2, 7, 10, 30, 0, 0, time.UTC), r.GeneratedAt)
}

func TestExportWithoutSheetsConfig(t *testing.T) {
	h := newHarness(t)
	h.login()

	var out bytes.Buffer
	err := Run(context.Background(), []string{"export"}, Env{
		Config:  &config.Config{DataBackend: config.BackendMemory},
		Stdin:   strings.NewReader(""),
		Stdout:  &out,
		Stderr:  &out,
		Backend: h.res,
		Storage: h.storage,
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, errNotLoggedIn))
	assert.Empty(t, h.reports.got)
}
