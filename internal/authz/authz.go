// Package authz decides whether an actor may perform an owner-only action on
// a resource. Decisions come from a casbin ABAC model: the policy lists which
// (kind, action) pairs are owner-restricted and the matcher requires the
// actor to be the resource owner.
package authz

import (
	"fmt"
	"strconv"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Action string

const (
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionMarkRead Action = "mark_read"
)

type Kind string

const (
	KindPost         Kind = "post"
	KindComment      Kind = "comment"
	KindNotification Kind = "notification"
)

// Resource is the object of an authorization request. Owner is the author of
// a post or comment, or the recipient of a notification.
type Resource struct {
	Kind    Kind
	ID      int64
	OwnerID int64
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  string
}

// Authorizer is the explicit authorization hook called at the start of every
// owner-restricted operation.
type Authorizer interface {
	Authorize(actorID int64, action Action, res Resource) (Decision, error)
}

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = kind, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.obj.Kind == p.kind && r.act == p.act && r.sub == r.obj.Owner
`

// ownerPolicies lists every action restricted to the resource owner.
var ownerPolicies = [][]string{
	{string(KindPost), string(ActionUpdate)},
	{string(KindPost), string(ActionDelete)},
	{string(KindComment), string(ActionUpdate)},
	{string(KindComment), string(ActionDelete)},
	{string(KindNotification), string(ActionMarkRead)},
}

// casbinObject is the attribute bag the matcher reads. Identifiers are
// strings so the matcher compares them without numeric coercion.
type casbinObject struct {
	Kind  string
	Owner string
}

type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	for _, p := range ownerPolicies {
		if _, err := e.AddPolicy(p[0], p[1]); err != nil {
			return nil, fmt.Errorf("failed to add policy %v: %w", p, err)
		}
	}

	return &Enforcer{enforcer: e}, nil
}

func (e *Enforcer) Authorize(actorID int64, action Action, res Resource) (Decision, error) {
	if actorID <= 0 {
		return Decision{Reason: "unauthenticated"}, nil
	}

	obj := casbinObject{
		Kind:  string(res.Kind),
		Owner: strconv.FormatInt(res.OwnerID, 10),
	}
	allowed, err := e.enforcer.Enforce(strconv.FormatInt(actorID, 10), obj, string(action))
	if err != nil {
		return Decision{}, fmt.Errorf("enforce %s on %s %d: %w", action, res.Kind, res.ID, err)
	}
	if !allowed {
		return Decision{Reason: fmt.Sprintf("user %d may not %s %s %d", actorID, action, res.Kind, res.ID)}, nil
	}
	return Decision{Allowed: true}, nil
}
