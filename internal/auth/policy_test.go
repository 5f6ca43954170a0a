package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPolicyTable enumerates every (role, operation) pair and checks it
// against the documented authorization matrix.
func TestPolicyTable(t *testing.T) {
	want := map[Operation]map[string]bool{
		OpUserList:       {RoleAdmin: true, RoleAnalyst: false, RoleViewer: false},
		OpUserGet:        {RoleAdmin: true, RoleAnalyst: false, RoleViewer: false},
		OpUserUpdate:     {RoleAdmin: true, RoleAnalyst: false, RoleViewer: false},
		OpUserDelete:     {RoleAdmin: true, RoleAnalyst: false, RoleViewer: false},
		OpProductCreate:  {RoleAdmin: true, RoleAnalyst: true, RoleViewer: false},
		OpProductList:    {RoleAdmin: true, RoleAnalyst: true, RoleViewer: true},
		OpProductSearch:  {RoleAdmin: true, RoleAnalyst: true, RoleViewer: true},
		OpProductGet:     {RoleAdmin: true, RoleAnalyst: true, RoleViewer: true},
		OpProductUpdate:  {RoleAdmin: true, RoleAnalyst: true, RoleViewer: false},
		OpProductDelete:  {RoleAdmin: true, RoleAnalyst: false, RoleViewer: false},
		OpDocumentUpload: {RoleAdmin: true, RoleAnalyst: false, RoleViewer: false},
		OpDocumentList:   {RoleAdmin: true, RoleAnalyst: true, RoleViewer: true},
		OpDocumentDelete: {RoleAdmin: true, RoleAnalyst: false, RoleViewer: false},
	}

	assert.Len(t, Operations(), len(want), "policy table and expectation matrix must cover the same operations")

	for op, perRole := range want {
		for _, role := range []string{RoleAdmin, RoleAnalyst, RoleViewer} {
			assert.Equalf(t, perRole[role], Allowed(role, op), "op=%s role=%s", op, role)
		}
	}
}

func TestUnknownRoleNeverAllowed(t *testing.T) {
	for _, op := range Operations() {
		assert.False(t, Allowed("SUPERUSER", op))
		assert.False(t, Allowed("", op))
	}
}

func TestUnknownOperationDenied(t *testing.T) {
	assert.False(t, Allowed(RoleAdmin, Operation("products.publish")))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleAdmin))
	assert.True(t, ValidRole(RoleAnalyst))
	assert.True(t, ValidRole(RoleViewer))
	assert.False(t, ValidRole("admin"))
	assert.False(t, ValidRole("OWNER"))
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, "ANALYST", NormalizeRole("  analyst "))
}
