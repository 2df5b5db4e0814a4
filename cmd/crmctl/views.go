package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/crmdesk/crmctl/internal/api"
	"github.com/crmdesk/crmctl/internal/feed"
	"github.com/crmdesk/crmctl/internal/funnel"
	"github.com/crmdesk/crmctl/internal/model"
)

// ---- auth commands ----

func cmdVersion(_ context.Context, _ *app, _ []string) error {
	fmt.Printf("crmctl %s (%s)\n", version, buildDate)
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	_ = fs.Parse(args)
	if *u == "" || *p == "" {
		return errors.New("need -u and -p")
	}

	user, msg, err := a.client.Register(ctx, *u, *p)
	if err != nil {
		return err
	}
	if msg != "" {
		fmt.Println(msg)
	}
	printJSON(user)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	_ = fs.Parse(args)
	if *u == "" || *p == "" {
		return errors.New("need -u and -p")
	}

	if !a.store.Login(ctx, *u, *p) {
		return errors.New("login failed")
	}
	fmt.Println("ok")
	return nil
}

func cmdLogout(_ context.Context, a *app, _ []string) error {
	a.store.Logout()
	fmt.Println("ok")
	return nil
}

func cmdWhoami(_ context.Context, a *app, _ []string) error {
	snap := a.store.Snapshot()
	printJSON(snap.User)
	if c := snap.Claims; c != nil {
		if c.IssuedAt != nil {
			fmt.Printf("issued:  %s\n", c.IssuedAt.UTC().Format(time.RFC3339))
		}
		if c.ExpiresAt != nil {
			fmt.Printf("expires: %s\n", c.ExpiresAt.UTC().Format(time.RFC3339))
		}
	} else if snap.Token == "" {
		fmt.Fprintln(os.Stderr, "note: session has no token; API calls will be rejected")
	}
	return nil
}

// ---- dashboard / conversion ----

func cmdDashboard(ctx context.Context, a *app, _ []string) error {
	user := *a.store.Snapshot().User
	leads, err := a.client.Leads(ctx)
	if err != nil {
		return err
	}

	stats := funnel.ComputeStats(leads, user)
	fmt.Printf("Welcome back, %s!\n\n", user.Username)
	mineLabel := "My leads"
	if user.Role.IsAdmin() {
		mineLabel = "Total leads"
	}
	fmt.Printf("%-16s %d\n", mineLabel, stats.Mine)
	fmt.Printf("%-16s %d\n", "New leads", stats.New)
	fmt.Printf("%-16s %d\n", "Qualified", stats.Qualified)
	fmt.Printf("%-16s %d%%\n", "Conversion", funnel.Rate(stats.Qualified, stats.Total))

	entries, failures := feed.Fetch(ctx, a.client, leads, feed.Options{Limit: 3, CreatedBy: user.Username}, a.log)
	fmt.Println("\nRecent activity:")
	printFeed(entries)
	noteFailures(failures)
	return nil
}

func cmdConversion(ctx context.Context, a *app, _ []string) error {
	leads, err := a.client.Leads(ctx)
	if err != nil {
		return err
	}

	m := funnel.Compute(leads)
	fmt.Printf("%-18s %d\n", "Total leads", m.Total)
	fmt.Printf("%-18s %d\n", "Contacted", m.Contacted)
	fmt.Printf("%-18s %d\n", "Qualified", m.Qualified)
	fmt.Printf("%-18s %d\n", "Closed", m.Closed)
	fmt.Println()
	fmt.Printf("%-18s %d%%   (contacted / total)\n", "Contacted rate", m.ContactedRate)
	fmt.Printf("%-18s %d%%   (qualified / contacted)\n", "Qualification", m.QualificationRate)
	fmt.Printf("%-18s %d%%   (closed / qualified)\n", "Win rate", m.WinRate)
	fmt.Printf("%-18s %d%%   (closed / total)\n", "Overall", m.OverallRate)

	fmt.Println("\nLeads by stage:")
	for _, sc := range funnel.Stages(leads) {
		fmt.Printf("  %-10s %d\n", sc.Stage, sc.Count)
	}

	entries, failures := feed.Fetch(ctx, a.client, leads, feed.Options{Limit: 7}, a.log)
	fmt.Println("\nRecent activity:")
	printFeed(entries)
	noteFailures(failures)
	return nil
}

// ---- leads ----

func cmdLeads(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("leads", flag.ExitOnError)
	filter := fs.String("filter", "", "my|new|qualified")
	_ = fs.Parse(args)
	return renderLeadTable(ctx, a, *filter)
}

func renderLeadTable(ctx context.Context, a *app, filter string) error {
	leads, err := a.client.Leads(ctx)
	if err != nil {
		return err
	}
	viewer := *a.store.Snapshot().User
	filtered, err := filterLeads(leads, filter, viewer)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOMPANY\tEMAIL\tSTATUS\tASSIGNED")
	for _, l := range filtered {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", l.ID, l.FullName(), l.Company, l.Email, l.Status, l.AssignedTo)
	}
	return w.Flush()
}

func filterLeads(leads []model.Lead, filter string, viewer model.User) ([]model.Lead, error) {
	keep := func(model.Lead) bool { return true }
	switch filter {
	case "":
	case "my":
		keep = func(l model.Lead) bool { return l.AssignedTo == viewer.Username }
	case "new":
		keep = func(l model.Lead) bool { return l.Status == model.StatusNew }
	case "qualified":
		keep = func(l model.Lead) bool { return l.Status == model.StatusQualified }
	default:
		return nil, fmt.Errorf("unknown filter %q (want my|new|qualified)", filter)
	}
	out := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

func cmdLead(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("lead", flag.ExitOnError)
	id := fs.String("id", "", "lead id")
	_ = fs.Parse(args)
	if *id == "" {
		return errors.New("need -id")
	}

	lead, err := a.client.Lead(ctx, *id)
	if err != nil {
		if api.IsForbidden(err) {
			return denyAndRedirect(ctx, a)
		}
		return err
	}
	acts, err := a.client.Activities(ctx, *id)
	if err != nil {
		if api.IsForbidden(err) {
			return denyAndRedirect(ctx, a)
		}
		return err
	}

	printJSON(lead)
	fmt.Println("Activities:")
	if len(acts) == 0 {
		fmt.Println("  (none)")
	}
	for _, act := range acts {
		line := fmt.Sprintf("  %s  %-8s %s", act.Timestamp.Local().Format("2006-01-02 15:04"), act.ActivityType, act.Notes)
		if act.CreatedBy != "" {
			line += "  (by " + act.CreatedBy + ")"
		}
		fmt.Println(line)
	}
	return nil
}

// denyAndRedirect reproduces the web client's handling of a Forbidden detail
// view: a visible denial, then the safe list view instead of a broken page.
func denyAndRedirect(ctx context.Context, a *app) error {
	fmt.Fprintln(os.Stderr, "access denied: you don't have permission to view this lead")
	return renderLeadTable(ctx, a, "")
}

func cmdLeadAdd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("lead-add", flag.ExitOnError)
	in := api.LeadInput{Status: model.StatusNew}
	fs.StringVar(&in.FirstName, "first", "", "first name")
	fs.StringVar(&in.LastName, "last", "", "last name")
	fs.StringVar(&in.Company, "company", "", "company")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar((*string)(&in.Status), "status", string(model.StatusNew), "New|Contacted|Qualified|Closed")
	fs.StringVar(&in.Source, "source", "", "lead source")
	fs.StringVar(&in.AssignedTo, "assigned", "", "assigned username")
	_ = fs.Parse(args)

	lead, err := a.client.CreateLead(ctx, in)
	if err != nil {
		return err
	}
	printJSON(lead)
	return nil
}

func cmdLeadEdit(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("lead-edit", flag.ExitOnError)
	id := fs.String("id", "", "lead id")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	company := fs.String("company", "", "company")
	email := fs.String("email", "", "email")
	status := fs.String("status", "", "New|Contacted|Qualified|Closed")
	source := fs.String("source", "", "lead source")
	assigned := fs.String("assigned", "", "assigned username")
	_ = fs.Parse(args)
	if *id == "" {
		return errors.New("need -id")
	}

	lead, err := a.client.Lead(ctx, *id)
	if err != nil {
		if api.IsForbidden(err) {
			return denyAndRedirect(ctx, a)
		}
		return err
	}

	in := api.LeadInput{
		FirstName:  lead.FirstName,
		LastName:   lead.LastName,
		Company:    lead.Company,
		Email:      lead.Email,
		Status:     lead.Status,
		Source:     lead.Source,
		AssignedTo: lead.AssignedTo,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "first":
			in.FirstName = *first
		case "last":
			in.LastName = *last
		case "company":
			in.Company = *company
		case "email":
			in.Email = *email
		case "status":
			in.Status = model.LeadStatus(*status)
		case "source":
			in.Source = *source
		case "assigned":
			in.AssignedTo = *assigned
		}
	})

	updated, err := a.client.UpdateLead(ctx, *id, in)
	if err != nil {
		if api.IsForbidden(err) {
			return denyAndRedirect(ctx, a)
		}
		return err
	}
	printJSON(updated)
	return nil
}

func cmdLeadRm(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("lead-rm", flag.ExitOnError)
	id := fs.String("id", "", "lead id")
	_ = fs.Parse(args)
	if *id == "" {
		return errors.New("need -id")
	}
	if err := a.client.DeleteLead(ctx, *id); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

// ---- activities ----

func cmdActivityAdd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("activity-add", flag.ExitOnError)
	leadID := fs.String("lead", "", "lead id")
	typ := fs.String("type", string(model.ActivityCall), "Call|Email|Meeting")
	notes := fs.String("notes", "", "notes")
	_ = fs.Parse(args)
	if *leadID == "" {
		return errors.New("need -lead")
	}

	act, err := a.client.CreateActivity(ctx, *leadID, api.ActivityInput{
		ActivityType: model.ActivityType(*typ),
		Notes:        *notes,
	})
	if err != nil {
		return err
	}
	printJSON(act)
	return nil
}

// ---- users (admin) ----

func cmdUsers(ctx context.Context, a *app, _ []string) error {
	users, err := a.client.Users(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tROLE")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Username, u.Role)
	}
	return w.Flush()
}

func cmdUserAdd(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("user-add", flag.ExitOnError)
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	role := fs.String("role", string(model.RoleSalesRep), "admin|sales_rep")
	_ = fs.Parse(args)
	if *u == "" || *p == "" {
		return errors.New("need -u and -p")
	}

	user, err := a.client.CreateUser(ctx, api.UserInput{Username: *u, Password: *p, Role: model.Role(*role)})
	if err != nil {
		return err
	}
	printJSON(user)
	return nil
}

func cmdUserEdit(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("user-edit", flag.ExitOnError)
	id := fs.String("id", "", "user id")
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	role := fs.String("role", "", "admin|sales_rep")
	_ = fs.Parse(args)
	if *id == "" {
		return errors.New("need -id")
	}

	// prefill from the current record; flags override
	users, err := a.client.Users(ctx)
	if err != nil {
		return err
	}
	var current *model.User
	for i := range users {
		if users[i].ID == *id {
			current = &users[i]
			break
		}
	}
	if current == nil {
		return fmt.Errorf("no user with id %q", *id)
	}

	in := api.UserInput{Username: current.Username, Role: current.Role}
	if *u != "" {
		in.Username = *u
	}
	if *p != "" {
		in.Password = *p
	}
	if *role != "" {
		in.Role = model.Role(*role)
	}

	updated, err := a.client.UpdateUser(ctx, *id, in)
	if err != nil {
		return err
	}
	printJSON(updated)
	return nil
}

func cmdUserRm(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("user-rm", flag.ExitOnError)
	id := fs.String("id", "", "user id")
	_ = fs.Parse(args)
	if *id == "" {
		return errors.New("need -id")
	}
	if err := a.client.DeleteUser(ctx, *id); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

// ---- feed printing ----

func printFeed(entries []feed.Entry) {
	if len(entries) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, e := range entries {
		line := fmt.Sprintf("  %s  %s: %s", e.Timestamp.Local().Format("2006-01-02 15:04"), e.LeadName, e.ActivityType)
		if e.Notes != "" {
			line += " - " + e.Notes
		}
		if e.CreatedBy != "" {
			line += "  (by " + e.CreatedBy + ")"
		}
		fmt.Println(line)
	}
}

func noteFailures(failures []feed.Failure) {
	if len(failures) > 0 {
		fmt.Fprintf(os.Stderr, "note: activities unavailable for %d lead(s)\n", len(failures))
	}
}
