package claims

import (
	"context"

	"github.com/cear54/api-t-cuida/common/store"
)

type Role string

const (
	RoleAdmin    Role = "administrador"
	RoleStaff    Role = "academico"
	RoleGuardian Role = "familia"
)

// Claims is the identity carried by a session token. It is never persisted.
type Claims struct {
	UserId    string
	Username  string
	DaycareId string
	Actor     Actor
	IssuedAt  int64
	ExpiresAt int64
}

// Actor is the role-specific part of the claims.
type Actor interface {
	Role() Role
}

type Admin struct {
	StaffId string
}

type Staff struct {
	StaffId string
}

type Guardian struct {
	ChildId string
}

// Unknown keeps a role name that this service does not recognize.
type Unknown struct {
	Name string
}

func (Admin) Role() Role {
	return RoleAdmin
}

func (Staff) Role() Role {
	return RoleStaff
}

func (Guardian) Role() Role {
	return RoleGuardian
}

func (u Unknown) Role() Role {
	return Role(u.Name)
}

func NewActor(role string, staffId, childId string) Actor {
	switch Role(role) {
	case RoleAdmin:
		return Admin{StaffId: staffId}
	case RoleStaff:
		return Staff{StaffId: staffId}
	case RoleGuardian:
		return Guardian{ChildId: childId}
	default:
		return Unknown{Name: role}
	}
}

// StaffId returns the staff identifier carried by the actor, if any.
func StaffId(actor Actor) string {
	switch a := actor.(type) {
	case Admin:
		return a.StaffId
	case Staff:
		return a.StaffId
	}
	return ""
}

// ChildId returns the child identifier carried by a guardian actor.
func ChildId(actor Actor) string {
	if g, ok := actor.(Guardian); ok {
		return g.ChildId
	}
	return ""
}

// AuthorizedContext is what downstream code trusts once the guard accepted a request.
type AuthorizedContext struct {
	DaycareId string
	UserId    string
	Role      Role
	StaffId   string
	ChildId   string
}

func (a AuthorizedContext) IsGuardian() bool {
	return a.Role == RoleGuardian
}

// CanSeeChild rejects guardians asking about a child that is not theirs.
func (a AuthorizedContext) CanSeeChild(childId string) error {
	if a.IsGuardian() && a.ChildId != childId {
		return ErrForbidden
	}
	return nil
}

func (a AuthorizedContext) SearchOptions() store.SearchOptions {
	options := store.SearchOptions{
		DaycareId:  a.DaycareId,
		ActiveOnly: true,
	}
	if a.IsGuardian() {
		options.ChildrenId = []string{a.ChildId}
	}
	return options
}

type contextKey int

const (
	claimsKey contextKey = iota
	authorizedKey
	trackerKey
)

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok
}

type tracker struct {
	authorized *AuthorizedContext
}

// Track returns a context that also sees the authorized context resolved further down the handler chain.
func Track(ctx context.Context) context.Context {
	return context.WithValue(ctx, trackerKey, &tracker{})
}

func NewContext(ctx context.Context, a AuthorizedContext) context.Context {
	if t, ok := ctx.Value(trackerKey).(*tracker); ok {
		t.authorized = &a
	}
	return context.WithValue(ctx, authorizedKey, a)
}

func FromContext(ctx context.Context) (AuthorizedContext, bool) {
	if a, ok := ctx.Value(authorizedKey).(AuthorizedContext); ok {
		return a, true
	}
	if t, ok := ctx.Value(trackerKey).(*tracker); ok && t.authorized != nil {
		return *t.authorized, true
	}
	return AuthorizedContext{}, false
}
