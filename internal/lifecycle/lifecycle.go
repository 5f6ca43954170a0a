// Package lifecycle implements the product approval workflow: the status
// state machine, the role-scoped visibility predicate applied to every read,
// and the mutation rules that decide who may change which product.  The
// functions here are pure decisions; handlers translate the outcomes into
// HTTP responses and repositories translate scopes into SQL.
package lifecycle

import (
    "errors"

    "github.com/quimitrack/chem-registry/internal/auth"
    "github.com/quimitrack/chem-registry/internal/model"
)

// ErrInvalidStatus is returned when a payload carries a status value outside
// the fixed set {pendente, aprovado, rejeitado}.  Handlers map it to 400.
var ErrInvalidStatus = errors.New("invalid status")

// Mutation denials.  Handlers map each of these to 403.
var (
    ErrNotOwner         = errors.New("analysts may only edit their own products")
    ErrApprovedLocked   = errors.New("approved products cannot be edited by analysts")
    ErrStatusRestricted = errors.New("analysts cannot change product status")
    ErrReadOnlyRole     = errors.New("role has no mutation rights")
)

// ValidStatus reports whether s belongs to the status set.  Unknown values
// are rejected by callers, never silently coerced.
func ValidStatus(s string) bool {
    switch s {
    case model.StatusPending, model.StatusApproved, model.StatusRejected:
        return true
    }
    return false
}

// InitialStatus decides the status of a newly created product.  An ADMIN may
// set any valid status explicitly (defaulting to pending when omitted); a
// requested value outside the set is an error.  Any other creating role is
// forced to pending regardless of the payload — a policy decision, not a
// validation failure, so no error is returned for them.
func InitialStatus(role, requested string) (string, error) {
    if role != auth.RoleAdmin {
        return model.StatusPending, nil
    }
    if requested == "" {
        return model.StatusPending, nil
    }
    if !ValidStatus(requested) {
        return "", ErrInvalidStatus
    }
    return requested, nil
}

// CanMutate decides whether subject (with the given role) may update the
// non-status fields of p, and whether it may touch the status field at all.
// ADMIN is unrestricted here; status values an ADMIN submits are validated
// separately with ValidStatus.  The check is all-or-nothing: a denial means
// no field of the request is applied.
func CanMutate(role string, subjectID uint64, p *model.Product, touchesStatus bool) error {
    switch role {
    case auth.RoleAdmin:
        return nil
    case auth.RoleAnalyst:
        if p.CreatedBy == nil || *p.CreatedBy != subjectID {
            return ErrNotOwner
        }
        if p.Status == model.StatusApproved {
            return ErrApprovedLocked
        }
        if touchesStatus {
            return ErrStatusRestricted
        }
        return nil
    default:
        return ErrReadOnlyRole
    }
}

// Scope is the role-dependent base filter conjoined with every list and
// search query before any user-supplied predicate.
type Scope struct {
    All       bool   // ADMIN: unfiltered
    OwnerID   uint64 // ANALYST: approved OR created by this subject
    OwnerSet  bool
}

// ScopeFor returns the visibility scope for a role.  Unknown roles collapse
// to the most restrictive scope (approved only).
func ScopeFor(role string, subjectID uint64) Scope {
    switch role {
    case auth.RoleAdmin:
        return Scope{All: true}
    case auth.RoleAnalyst:
        return Scope{OwnerID: subjectID, OwnerSet: true}
    default:
        return Scope{}
    }
}

// Visible re-applies the visibility predicate against a single fetched
// record.  Single-record reads use this instead of the list filter so that
// an existing but non-visible product yields Forbidden rather than NotFound.
func Visible(role string, subjectID uint64, p *model.Product) bool {
    switch role {
    case auth.RoleAdmin:
        return true
    case auth.RoleAnalyst:
        if p.Status == model.StatusApproved {
            return true
        }
        return p.CreatedBy != nil && *p.CreatedBy == subjectID
    default:
        return p.Status == model.StatusApproved
    }
}

// searchColumns is the fixed set of field selectors accepted by the search
// endpoint, mapped to their database columns.  An unrecognized selector is a
// validation error, never an empty result.
var searchColumns = map[string]string{
    "nome_do_produto": "nome_do_produto",
    "codigo":          "codigo",
    "id":              "id",
    "substancia1":     "substancia1",
    "substancia2":     "substancia2",
    "substancia3":     "substancia3",
    "categoria":       "categoria",
    "fornecedor":      "fornecedor",
}

// SearchColumn resolves a search field selector to a column name.
func SearchColumn(by string) (string, bool) {
    col, ok := searchColumns[by]
    return col, ok
}
