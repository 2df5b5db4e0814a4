package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crmdesk/crmctl/internal/model"
	"github.com/crmdesk/crmctl/internal/session"
)

func user(role model.Role) *model.User {
	return &model.User{ID: "1", Username: "u", Role: role}
}

func TestDecide(t *testing.T) {
	t.Parallel()

	authOnly := Requirement{RequiresAuth: true}
	adminOnly := Requirement{RequiresAuth: true, AdminOnly: true}
	public := Requirement{}

	tests := []struct {
		name string
		snap session.Snapshot
		req  Requirement
		want Decision
	}{
		{"public view always renders", session.Snapshot{}, public, Decision{Action: Render}},
		{"loading waits, never redirects", session.Snapshot{Loading: true}, authOnly, Decision{Action: Wait}},
		{"loading waits on admin views too", session.Snapshot{Loading: true}, adminOnly, Decision{Action: Wait}},
		{"anonymous goes to login", session.Snapshot{}, authOnly, Decision{Action: Redirect, Target: RouteLogin}},
		{"sales rep renders auth view", session.Snapshot{User: user(model.RoleSalesRep)}, authOnly, Decision{Action: Render}},
		{"sales rep bounced off admin view", session.Snapshot{User: user(model.RoleSalesRep)}, adminOnly, Decision{Action: Redirect, Target: RouteDashboard}},
		{"admin renders admin view", session.Snapshot{User: user(model.RoleAdmin)}, adminOnly, Decision{Action: Render}},
		{"unknown role is non-admin", session.Snapshot{User: user(model.Role("root"))}, adminOnly, Decision{Action: Redirect, Target: RouteDashboard}},
		{"unknown role still authenticated", session.Snapshot{User: user(model.Role("root"))}, authOnly, Decision{Action: Render}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Decide(tt.snap, tt.req))
		})
	}
}
