package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"expensetracker/internal/backend"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/session"
)

var (
	errNotLoggedIn = errors.New("not logged in, run: expensectl login -username <name>")
	errUsage       = errors.New("invalid usage")
)

// ReportWriter receives dashboard exports. *export.Client implements it.
type ReportWriter interface {
	WriteReport(ctx context.Context, r export.Report) (string, error)
}

// Env is everything a command run depends on. Zero fields get production
// defaults in Run.
type Env struct {
	Config *config.Config
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *log.Logger
	Now    func() time.Time

	// Backend overrides the one built from Config. Run does not close it.
	Backend *backend.BackendResult
	// Storage persists the session. Defaults to a file under Config.SessionDir.
	Storage session.Storage
	// NewReportWriter opens the export target. Defaults to Google Sheets.
	NewReportWriter func(ctx context.Context) (ReportWriter, error)
}

type app struct {
	env       Env
	in        *bufio.Reader
	backend   *backend.BackendResult
	session   *session.Store
	expenses  *services.ExpenseService
	dashboard *services.DashboardService
}

type command struct {
	name    string
	usage   string
	summary string
	run     func(a *app, ctx context.Context, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"signup", "signup -username NAME -email EMAIL [-password PW]", "create an account and log in", (*app).signup},
		{"login", "login -username NAME [-password PW]", "log in", (*app).login},
		{"logout", "logout", "forget the stored session", (*app).logout},
		{"whoami", "whoami", "show the logged-in user", (*app).whoami},
		{"categories", "categories [-type TYPE]", "list categories, optionally those usable for TYPE", (*app).categories},
		{"list", "list [filters] [-json]", "list your expenses, newest first", (*app).list},
		{"show", "show ID [-json]", "show one expense", (*app).show},
		{"add", "add -amount N -description TEXT -category ID [-type TYPE] [-date YYYY-MM-DD]", "record an expense", (*app).add},
		{"edit", "edit ID [-amount N] [-description TEXT] [-category ID] [-type TYPE] [-date YYYY-MM-DD]", "change an expense", (*app).edit},
		{"delete", "delete ID", "delete an expense", (*app).remove},
		{"dashboard", "dashboard [filters] [-json]", "totals, category breakdown and expenses", (*app).dashboardCmd},
		{"export", "export [filters]", "write the dashboard to Google Sheets", (*app).export},
	}
}

// Usage prints the command overview.
func Usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: expensectl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-11s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Filters: -type PERSONAL|ORGANIZATIONAL -category ID -from YYYY-MM-DD -to YYYY-MM-DD")
	fmt.Fprintln(w, "Backend and session are configured through the environment (see DATA_BACKEND).")
}

// Run executes one expensectl command. It returns flag.ErrHelp when only
// usage was printed.
func Run(ctx context.Context, args []string, env Env) error {
	if env.Stdin == nil {
		env.Stdin = os.Stdin
	}
	if env.Stdout == nil {
		env.Stdout = os.Stdout
	}
	if env.Stderr == nil {
		env.Stderr = os.Stderr
	}
	if env.Logger == nil {
		env.Logger = log.Nop()
	}
	if env.Now == nil {
		env.Now = time.Now
	}
	if env.Config == nil {
		env.Config = config.Load()
	}
	env.Logger = env.Logger.WithComponent(log.ComponentCLI)

	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		Usage(env.Stdout)
		return flag.ErrHelp
	}
	cmd, ok := lookup(args[0])
	if !ok {
		Usage(env.Stderr)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	res := env.Backend
	if res == nil {
		bcfg, err := backend.FromAppConfig(env.Config)
		if err != nil {
			return err
		}
		res, err = backend.NewFactory(env.Logger).CreateBackend(ctx, bcfg)
		if err != nil {
			return err
		}
		defer res.Close()
	}

	storage := env.Storage
	if storage == nil {
		fs, err := session.NewFileStorage(env.Config.SessionDir)
		if err != nil {
			return err
		}
		storage = fs
	}
	store, err := session.New(res.Auth, storage, session.WithLogger(env.Logger))
	if err != nil {
		return err
	}
	if res.Remote != nil {
		res.Remote.AttachSession(store)
	}
	if err := verifySession(ctx, res.AuthService, store); err != nil {
		return err
	}

	a := &app{
		env:       env,
		in:        bufio.NewReader(env.Stdin),
		backend:   res,
		session:   store,
		expenses:  res.Expenses,
		dashboard: services.NewDashboardService(res.Expenses, res.Categories, env.Logger),
	}
	err = cmd.run(a, ctx, args[1:])
	if errors.Is(err, core.ErrUnauthorized) && !store.IsLoggedIn() && cmd.name != "login" && cmd.name != "signup" {
		return fmt.Errorf("%w (%v)", errNotLoggedIn, err)
	}
	return err
}

// verifySession checks a stored token against a local backend before any
// command runs. Remote backends learn about a rejected token from the 401.
func verifySession(ctx context.Context, svc *services.AuthService, store *session.Store) error {
	token := store.Token()
	if svc == nil || token == "" {
		return nil
	}
	u, err := svc.Authenticate(ctx, token)
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		store.HandleUnauthorized()
	case err != nil:
		return err
	default:
		if cur, ok := store.CurrentUser(); !ok || cur.UserID != u.UserID {
			store.HandleUnauthorized()
		}
	}
	return nil
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.env.Stderr)
	fs.Usage = func() {
		if c, ok := lookup(name); ok {
			fmt.Fprintf(a.env.Stderr, "Usage: expensectl %s\n", c.usage)
		}
		fs.PrintDefaults()
	}
	return fs
}

func (a *app) user() (core.User, error) {
	u, ok := a.session.CurrentUser()
	if !ok || !a.session.IsLoggedIn() {
		return core.User{}, errNotLoggedIn
	}
	return u, nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.env.Stdout, format, args...)
}

// prompt reads one line. Passwords are read without echo on a terminal.
func (a *app) prompt(label string, secret bool) (string, error) {
	fmt.Fprint(a.env.Stderr, label)
	if f, ok := a.env.Stdin.(*os.File); ok && secret && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.env.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// filterFlags are the list/dashboard/export filters.
type filterFlags struct {
	typ      string
	category int64
	from     string
	to       string
}

func (f *filterFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.typ, "type", "", "only PERSONAL or ORGANIZATIONAL expenses")
	fs.Int64Var(&f.category, "category", 0, "only this category id")
	fs.StringVar(&f.from, "from", "", "first date, inclusive (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "last date, inclusive (YYYY-MM-DD)")
}

func (f filterFlags) filter() (core.ExpenseFilter, error) {
	var out core.ExpenseFilter
	var errs core.ValidationErrors
	if f.typ != "" {
		t, err := core.ParseExpenseType(f.typ)
		if err != nil {
			errs.Add(err)
		}
		out.Type = t
	}
	out.CategoryID = f.category
	if f.from != "" {
		d, err := core.ParseDate(f.from)
		if err != nil {
			errs.Add(err)
		}
		out.StartDate = d
	}
	if f.to != "" {
		d, err := core.ParseDate(f.to)
		if err != nil {
			errs.Add(err)
		}
		out.EndDate = d
	}
	return out, errs.ErrOrNil()
}

// idArg takes the leading expense id off args.
func idArg(args []string) (int64, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return 0, nil, fmt.Errorf("%w: expense id required", errUsage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, nil, fmt.Errorf("%w: invalid expense id %q", errUsage, args[0])
	}
	return id, args[1:], nil
}

func setFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func sortedCategories(cats []core.Category) []core.Category {
	out := append([]core.Category(nil), cats...)
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}
