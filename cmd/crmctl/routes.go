package main

import (
	"context"

	"github.com/crmdesk/crmctl/internal/gate"
)

// route mirrors one protected route of the web UI: a command plus its
// declared access requirement. The gate consults the requirement before the
// command runs; the backend enforces the real authorization on every call.
type route struct {
	req gate.Requirement
	run func(ctx context.Context, a *app, args []string) error
}

func routeTable() map[string]route {
	authOnly := gate.Requirement{RequiresAuth: true}
	adminOnly := gate.Requirement{RequiresAuth: true, AdminOnly: true}

	return map[string]route{
		"version":  {run: cmdVersion},
		"register": {run: cmdRegister},
		"login":    {run: cmdLogin},
		"logout":   {run: cmdLogout},

		"whoami":     {req: authOnly, run: cmdWhoami},
		"dashboard":  {req: authOnly, run: cmdDashboard},
		"conversion": {req: authOnly, run: cmdConversion},

		"leads":     {req: authOnly, run: cmdLeads},
		"lead":      {req: authOnly, run: cmdLead},
		"lead-edit": {req: authOnly, run: cmdLeadEdit},
		"lead-add":  {req: adminOnly, run: cmdLeadAdd},
		"lead-rm":   {req: adminOnly, run: cmdLeadRm},

		"activity-add": {req: authOnly, run: cmdActivityAdd},

		"users":     {req: adminOnly, run: cmdUsers},
		"user-add":  {req: adminOnly, run: cmdUserAdd},
		"user-edit": {req: adminOnly, run: cmdUserEdit},
		"user-rm":   {req: adminOnly, run: cmdUserRm},
	}
}
