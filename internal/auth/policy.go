package auth

import (
	"fmt"

	"github.com/casbin/casbin"

	"github.com/bnb-reservations/backend/internal/storage/models"
)

// rbacModel matches (role, path, method). Roles inherit: host > guest > anonymous.
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

type rule struct {
	role, path, methods string
}

var rules = []rule{
	{RoleAnonymous, "/api/health", "^GET$"},
	{RoleAnonymous, "/api/ws", "^GET$"},
	{RoleAnonymous, "/api/auth/:action", "^POST$"},
	{RoleAnonymous, "/api/availability", "^GET$"},
	{RoleAnonymous, "/api/availability/ranges", "^GET$"},
	{RoleAnonymous, "/api/room", "^GET$"},
	{RoleAnonymous, "/api/unavailable", "^GET$"},
	{RoleAnonymous, "/api/guestbook", "^GET$"},
	{RoleAnonymous, "/api/calendar.ics", "^GET$"},

	{models.RoleGuest, "/api/me", "^(GET|PUT)$"},
	{models.RoleGuest, "/api/bookings", "^(GET|POST)$"},
	{models.RoleGuest, "/api/bookings/:id", "^(GET|PUT|DELETE)$"},
	{models.RoleGuest, "/api/guestbook", "^POST$"},
	{models.RoleGuest, "/api/guestbook/:id", "^(PUT|DELETE)$"},

	{models.RoleHost, "/api/room", "^PUT$"},
	{models.RoleHost, "/api/unavailable", "^POST$"},
	{models.RoleHost, "/api/unavailable/:id", "^DELETE$"},
	{models.RoleHost, "/api/dashboard", "^GET$"},
	{models.RoleHost, "/api/calendars", "^(GET|POST)$"},
	{models.RoleHost, "/api/calendars/:id", "^(GET|PUT|DELETE)$"},
	{models.RoleHost, "/api/calendars/:id/sync", "^POST$"},
	{models.RoleHost, "/api/settings", "^(GET|PUT)$"},
}

// Policy decides whether a role may call a route.
type Policy struct {
	enforcer *casbin.Enforcer
}

// NewPolicy builds the role-based access policy.
func NewPolicy() (*Policy, error) {
	e, err := casbin.NewEnforcerSafe(casbin.NewModel(rbacModel))
	if err != nil {
		return nil, fmt.Errorf("creating enforcer: %w", err)
	}
	e.EnableLog(false)

	for _, r := range rules {
		e.AddPolicy(r.role, r.path, r.methods)
	}
	e.AddGroupingPolicy(models.RoleGuest, RoleAnonymous)
	e.AddGroupingPolicy(models.RoleHost, models.RoleGuest)
	e.BuildRoleLinks()

	return &Policy{enforcer: e}, nil
}

// Allowed reports whether role may perform method on path.
func (p *Policy) Allowed(role, path, method string) (bool, error) {
	if role == "" {
		role = RoleAnonymous
	}
	ok, err := p.enforcer.EnforceSafe(role, path, method)
	if err != nil {
		return false, fmt.Errorf("enforcing policy: %w", err)
	}
	return ok, nil
}
