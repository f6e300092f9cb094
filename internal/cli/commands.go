package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/services"
)

func (a *app) signup(ctx context.Context, args []string) error {
	fs := a.flags("signup")
	username := fs.String("username", "", "account name, at least 3 characters")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := core.SignupRequest{Username: *username, Email: *email, Password: *password, ConfirmPassword: *password}
	if req.Password == "" {
		var err error
		if req.Password, err = a.prompt("Password: ", true); err != nil {
			return err
		}
		if req.ConfirmPassword, err = a.prompt("Confirm password: ", true); err != nil {
			return err
		}
		if req.Password != "" && req.ConfirmPassword == "" {
			return core.ErrPasswordMismatch
		}
	}

	u, err := a.session.Signup(ctx, req)
	if err != nil {
		return err
	}
	a.printf("Signed up and logged in as %s (id %d)\n", u.Username, u.UserID)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := core.LoginRequest{Username: *username, Password: *password}
	if req.Password == "" && strings.TrimSpace(req.Username) != "" {
		var err error
		if req.Password, err = a.prompt("Password: ", true); err != nil {
			return err
		}
	}
	u, err := a.session.Login(ctx, req)
	if err != nil {
		return err
	}
	a.printf("Logged in as %s (id %d)\n", u.Username, u.UserID)
	return nil
}

func (a *app) logout(_ context.Context, args []string) error {
	if err := a.flags("logout").Parse(args); err != nil {
		return err
	}
	if err := a.session.Logout(); err != nil {
		return err
	}
	a.printf("Logged out\n")
	return nil
}

func (a *app) whoami(_ context.Context, args []string) error {
	if err := a.flags("whoami").Parse(args); err != nil {
		return err
	}
	u, err := a.user()
	if err != nil {
		return err
	}
	a.printf("%s <%s> (id %d, backend %s)\n", u.Username, u.Email, u.UserID, a.backend.Type)
	return nil
}

func (a *app) categories(ctx context.Context, args []string) error {
	fs := a.flags("categories")
	typ := fs.String("type", "", "only categories usable for PERSONAL or ORGANIZATIONAL expenses")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.user(); err != nil {
		return err
	}

	cats, err := a.backend.Categories.ListCategories(ctx)
	if err != nil {
		return err
	}
	if *typ != "" {
		t, err := core.ParseExpenseType(*typ)
		if err != nil {
			return err
		}
		cats = core.CategoriesFor(cats, t)
	} else {
		cats = sortedCategories(cats)
	}

	tw := newTable(a.env.Stdout)
	fmt.Fprintln(tw, "ID\tNAME\tAPPLIES TO")
	for _, c := range cats {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.CategoryID, c.Name, c.ApplicableTo)
	}
	return tw.Flush()
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := a.flags("list")
	var ff filterFlags
	ff.register(fs)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter, err := ff.filter()
	if err != nil {
		return err
	}
	u, err := a.user()
	if err != nil {
		return err
	}

	list, err := a.expenses.List(ctx, u.UserID, filter)
	if err != nil {
		return err
	}
	if *asJSON {
		if list == nil {
			list = []core.Expense{}
		}
		return writeJSON(a.env.Stdout, list)
	}
	if len(list) == 0 {
		a.printf("No expenses found\n")
		return nil
	}
	return writeExpenses(a.env.Stdout, list)
}

func (a *app) show(ctx context.Context, args []string) error {
	id, rest, err := idArg(args)
	if err != nil {
		return err
	}
	fs := a.flags("show")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	u, err := a.user()
	if err != nil {
		return err
	}

	e, err := a.expenses.Get(ctx, u.UserID, id)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(a.env.Stdout, e)
	}
	tw := newTable(a.env.Stdout)
	fmt.Fprintf(tw, "ID\t%d\n", e.ExpenseID)
	fmt.Fprintf(tw, "Date\t%s\n", e.ExpenseDate)
	fmt.Fprintf(tw, "Description\t%s\n", e.Description)
	fmt.Fprintf(tw, "Amount\t%s\n", e.Amount.Format())
	fmt.Fprintf(tw, "Type\t%s\n", e.ExpenseType)
	fmt.Fprintf(tw, "Category\t%s (%d)\n", e.CategoryName, e.CategoryID)
	fmt.Fprintf(tw, "Created\t%s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"))
	return tw.Flush()
}

// expenseFlags are the form fields of add and edit.
type expenseFlags struct {
	amount      string
	date        string
	description string
	typ         string
	category    int64
}

func (f *expenseFlags) register(fs *flag.FlagSet, defaultType string) {
	fs.StringVar(&f.amount, "amount", "", "amount, at least 0.01")
	fs.StringVar(&f.date, "date", "", "expense date (YYYY-MM-DD), defaults to today")
	fs.StringVar(&f.description, "description", "", "what the money was spent on")
	fs.StringVar(&f.typ, "type", defaultType, "PERSONAL or ORGANIZATIONAL")
	fs.Int64Var(&f.category, "category", 0, "category id, see: expensectl categories")
}

// apply copies the flags that were given onto req.
func (f expenseFlags) apply(req *core.ExpenseRequest, set map[string]bool) error {
	var errs core.ValidationErrors
	if set["amount"] {
		m, err := core.ParseMoney(f.amount)
		if err != nil {
			errs.Add(err)
		}
		req.Amount = m
	}
	if set["date"] {
		d, err := core.ParseDate(f.date)
		if err != nil {
			errs.Add(err)
		}
		req.ExpenseDate = d
	}
	if set["description"] {
		req.Description = strings.TrimSpace(f.description)
	}
	if set["type"] {
		t, err := core.ParseExpenseType(f.typ)
		if err != nil {
			errs.Add(err)
		}
		req.ExpenseType = t
	}
	if set["category"] {
		req.CategoryID = f.category
	}
	return errs.ErrOrNil()
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flags("add")
	var ef expenseFlags
	ef.register(fs, string(core.Personal))
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := a.user()
	if err != nil {
		return err
	}

	req := core.ExpenseRequest{
		ExpenseDate: a.expenses.Today(),
		ExpenseType: core.Personal,
		UserID:      u.UserID,
	}
	set := setFlags(fs)
	set["amount"] = true
	if err := ef.apply(&req, set); err != nil {
		return err
	}

	e, err := a.expenses.Create(ctx, req)
	if err != nil {
		return err
	}
	a.printf("Created expense %d: %s %s on %s (%s)\n",
		e.ExpenseID, e.Description, e.Amount.Format(), e.ExpenseDate, e.CategoryName)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	id, rest, err := idArg(args)
	if err != nil {
		return err
	}
	fs := a.flags("edit")
	var ef expenseFlags
	ef.register(fs, "")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	u, err := a.user()
	if err != nil {
		return err
	}
	set := setFlags(fs)
	if len(set) == 0 {
		return fmt.Errorf("%w: nothing to change", errUsage)
	}

	current, err := a.expenses.Get(ctx, u.UserID, id)
	if err != nil {
		return err
	}
	req := core.ExpenseRequest{
		Amount:      current.Amount,
		ExpenseDate: current.ExpenseDate,
		Description: current.Description,
		ExpenseType: current.ExpenseType,
		UserID:      u.UserID,
		CategoryID:  current.CategoryID,
	}
	if err := ef.apply(&req, set); err != nil {
		return err
	}

	e, err := a.expenses.Update(ctx, id, req)
	if err != nil {
		return err
	}
	a.printf("Updated expense %d: %s %s on %s (%s)\n",
		e.ExpenseID, e.Description, e.Amount.Format(), e.ExpenseDate, e.CategoryName)
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	id, rest, err := idArg(args)
	if err != nil {
		return err
	}
	if err := a.flags("delete").Parse(rest); err != nil {
		return err
	}
	u, err := a.user()
	if err != nil {
		return err
	}
	if err := a.expenses.Delete(ctx, u.UserID, id); err != nil {
		return err
	}
	a.printf("Deleted expense %d\n", id)
	return nil
}

func (a *app) loadDashboard(ctx context.Context, name string, args []string) (services.Dashboard, core.User, bool, error) {
	fs := a.flags(name)
	var ff filterFlags
	ff.register(fs)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return services.Dashboard{}, core.User{}, false, err
	}
	filter, err := ff.filter()
	if err != nil {
		return services.Dashboard{}, core.User{}, false, err
	}
	u, err := a.user()
	if err != nil {
		return services.Dashboard{}, core.User{}, false, err
	}
	d, err := a.dashboard.Load(ctx, u.UserID, filter)
	return d, u, *asJSON, err
}

func (a *app) dashboardCmd(ctx context.Context, args []string) error {
	d, u, asJSON, err := a.loadDashboard(ctx, "dashboard", args)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(a.env.Stdout, d)
	}

	a.printf("Expenses of %s: %s\n\n", u.Username, export.DescribeFilter(d.Filter))
	tw := newTable(a.env.Stdout)
	fmt.Fprintf(tw, "Total\t%s\n", d.Totals.Total.Format())
	fmt.Fprintf(tw, "Personal\t%s\n", d.Totals.PersonalTotal.Format())
	fmt.Fprintf(tw, "Organizational\t%s\n", d.Totals.OrganizationalTotal.Format())
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(d.Chart) > 0 {
		a.printf("\nBy category\n")
		tw = newTable(a.env.Stdout)
		for _, s := range d.Chart {
			fmt.Fprintf(tw, "  %s\t%s\n", s.Name, s.Amount.Format())
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	a.printf("\n")
	if len(d.Expenses) == 0 {
		a.printf("No expenses found\n")
		return nil
	}
	return writeExpenses(a.env.Stdout, d.Expenses)
}

func (a *app) export(ctx context.Context, args []string) error {
	d, u, _, err := a.loadDashboard(ctx, "export", args)
	if err != nil {
		return err
	}
	w, err := a.reportWriter(ctx)
	if err != nil {
		return err
	}
	rng, err := w.WriteReport(ctx, export.FromDashboard(d, u.Username, a.env.Now()))
	if err != nil {
		return err
	}
	a.printf("Exported %d expenses to %s\n", len(d.Expenses), rng)
	return nil
}

func (a *app) reportWriter(ctx context.Context) (ReportWriter, error) {
	if a.env.NewReportWriter != nil {
		return a.env.NewReportWriter(ctx)
	}
	cfg := a.env.Config
	if err := cfg.ValidateSheets(); err != nil {
		return nil, err
	}
	return export.New(ctx, export.Options{
		SpreadsheetID:    cfg.GoogleSpreadsheetID,
		SheetName:        cfg.GoogleSheetName,
		JournalSheetName: cfg.GoogleJournalSheetName,
		CredentialsJSON:  cfg.GoogleCredentialsJSON,
		CredentialsFile:  cfg.GoogleCredentialsFile,
	}, a.env.Logger)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeExpenses(w io.Writer, list []core.Expense) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tCATEGORY\tTYPE\tAMOUNT")
	for _, e := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ExpenseID, e.ExpenseDate, e.Description, e.CategoryName, e.ExpenseType, e.Amount.Format())
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
