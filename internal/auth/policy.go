// Package auth defines the application roles and the static authorization
// table consulted by every protected operation.  Roles are enumerated
// explicitly rather than ordered: ANALYST and VIEWER have incomparable
// capabilities on some paths, so no privilege hierarchy is implied.
package auth

import "strings"

// Application roles.  Exactly one role per account.
const (
    RoleAdmin   = "ADMIN"   // full control over users, products and documents
    RoleAnalyst = "ANALYST" // creates products, edits own non-approved ones
    RoleViewer  = "VIEWER"  // read-only access to approved products
)

// ValidRole reports whether s names one of the application roles.
func ValidRole(s string) bool {
    switch s {
    case RoleAdmin, RoleAnalyst, RoleViewer:
        return true
    }
    return false
}

// NormalizeRole upper-cases and trims a role value from a request payload.
func NormalizeRole(s string) string {
    return strings.ToUpper(strings.TrimSpace(s))
}

// Operation identifies one protected operation of the API.  The guard
// middleware resolves the acting subject first (an unverifiable credential
// is 401, never 403) and then consults the table below.
type Operation string

const (
    OpUserList       Operation = "users.list"
    OpUserGet        Operation = "users.get"
    OpUserUpdate     Operation = "users.update"
    OpUserDelete     Operation = "users.delete"
    OpProductCreate  Operation = "products.create"
    OpProductList    Operation = "products.list"
    OpProductSearch  Operation = "products.search"
    OpProductGet     Operation = "products.get"
    OpProductUpdate  Operation = "products.update"
    OpProductDelete  Operation = "products.delete"
    OpDocumentUpload Operation = "documents.upload"
    OpDocumentList   Operation = "documents.list"
    OpDocumentDelete Operation = "documents.delete"
)

// table maps each operation to the set of roles admitted to it.  Failure to
// find the subject's role here yields Forbidden, never a silent allow.
// Ownership and workflow-status restrictions (an ANALYST editing only their
// own pending products) are enforced afterwards by the lifecycle rules; this
// table is the coarse role gate.
var table = map[Operation]map[string]bool{
    OpUserList:       {RoleAdmin: true},
    OpUserGet:        {RoleAdmin: true},
    OpUserUpdate:     {RoleAdmin: true},
    OpUserDelete:     {RoleAdmin: true},
    OpProductCreate:  {RoleAdmin: true, RoleAnalyst: true},
    OpProductList:    {RoleAdmin: true, RoleAnalyst: true, RoleViewer: true},
    OpProductSearch:  {RoleAdmin: true, RoleAnalyst: true, RoleViewer: true},
    OpProductGet:     {RoleAdmin: true, RoleAnalyst: true, RoleViewer: true},
    OpProductUpdate:  {RoleAdmin: true, RoleAnalyst: true},
    OpProductDelete:  {RoleAdmin: true},
    OpDocumentUpload: {RoleAdmin: true},
    OpDocumentList:   {RoleAdmin: true, RoleAnalyst: true, RoleViewer: true},
    OpDocumentDelete: {RoleAdmin: true},
}

// Allowed reports whether role may perform op.
func Allowed(role string, op Operation) bool {
    roles, ok := table[op]
    if !ok {
        return false
    }
    return roles[role]
}

// Operations returns every operation known to the policy table.  Used by
// tests to enumerate the full (role, operation) matrix.
func Operations() []Operation {
    ops := make([]Operation, 0, len(table))
    for op := range table {
        ops = append(ops, op)
    }
    return ops
}
