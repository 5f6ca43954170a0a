package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quimitrack/chem-registry/internal/auth"
	"github.com/quimitrack/chem-registry/internal/model"
)

func ptr(v uint64) *uint64 { return &v }

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(model.StatusPending))
	assert.True(t, ValidStatus(model.StatusApproved))
	assert.True(t, ValidStatus(model.StatusRejected))
	assert.False(t, ValidStatus("APPROVED"))
	assert.False(t, ValidStatus("em_analise"))
	assert.False(t, ValidStatus(""))
}

func TestInitialStatus(t *testing.T) {
	tests := []struct {
		name      string
		role      string
		requested string
		want      string
		wantErr   error
	}{
		{"admin default", auth.RoleAdmin, "", model.StatusPending, nil},
		{"admin explicit approved", auth.RoleAdmin, model.StatusApproved, model.StatusApproved, nil},
		{"admin explicit rejected", auth.RoleAdmin, model.StatusRejected, model.StatusRejected, nil},
		{"admin invalid value", auth.RoleAdmin, "publicado", "", ErrInvalidStatus},
		{"analyst forced pending despite payload", auth.RoleAnalyst, model.StatusApproved, model.StatusPending, nil},
		{"analyst garbage ignored", auth.RoleAnalyst, "whatever", model.StatusPending, nil},
		{"viewer forced pending", auth.RoleViewer, model.StatusApproved, model.StatusPending, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InitialStatus(tt.role, tt.requested)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanMutate(t *testing.T) {
	own := &model.Product{CreatedBy: ptr(7), Status: model.StatusPending}
	ownApproved := &model.Product{CreatedBy: ptr(7), Status: model.StatusApproved}
	foreign := &model.Product{CreatedBy: ptr(9), Status: model.StatusPending}
	orphan := &model.Product{Status: model.StatusPending}

	assert.NoError(t, CanMutate(auth.RoleAdmin, 1, foreign, true))
	assert.NoError(t, CanMutate(auth.RoleAdmin, 1, ownApproved, false))

	assert.NoError(t, CanMutate(auth.RoleAnalyst, 7, own, false))
	assert.ErrorIs(t, CanMutate(auth.RoleAnalyst, 7, foreign, false), ErrNotOwner)
	assert.ErrorIs(t, CanMutate(auth.RoleAnalyst, 7, ownApproved, false), ErrApprovedLocked)
	// Touching status is forbidden for analysts even on their own pending product.
	assert.ErrorIs(t, CanMutate(auth.RoleAnalyst, 7, own, true), ErrStatusRestricted)
	// A dangling creator is not the analyst's own product.
	assert.ErrorIs(t, CanMutate(auth.RoleAnalyst, 7, orphan, false), ErrNotOwner)

	assert.ErrorIs(t, CanMutate(auth.RoleViewer, 7, own, false), ErrReadOnlyRole)
	assert.ErrorIs(t, CanMutate("", 7, own, false), ErrReadOnlyRole)
}

func TestScopeFor(t *testing.T) {
	assert.True(t, ScopeFor(auth.RoleAdmin, 1).All)

	s := ScopeFor(auth.RoleAnalyst, 42)
	assert.False(t, s.All)
	assert.True(t, s.OwnerSet)
	assert.Equal(t, uint64(42), s.OwnerID)

	v := ScopeFor(auth.RoleViewer, 42)
	assert.False(t, v.All)
	assert.False(t, v.OwnerSet)

	// Unknown roles collapse to the viewer scope.
	u := ScopeFor("OWNER", 42)
	assert.False(t, u.All)
	assert.False(t, u.OwnerSet)
}

func TestVisibleSingleRecord(t *testing.T) {
	pending := &model.Product{CreatedBy: ptr(7), Status: model.StatusPending}
	approved := &model.Product{CreatedBy: ptr(9), Status: model.StatusApproved}

	assert.True(t, Visible(auth.RoleAdmin, 1, pending))

	assert.True(t, Visible(auth.RoleAnalyst, 7, pending))  // own pending
	assert.False(t, Visible(auth.RoleAnalyst, 8, pending)) // foreign pending
	assert.True(t, Visible(auth.RoleAnalyst, 8, approved))

	assert.False(t, Visible(auth.RoleViewer, 7, pending))
	assert.True(t, Visible(auth.RoleViewer, 7, approved))
}

func TestSearchColumnAllowList(t *testing.T) {
	for _, by := range []string{"nome_do_produto", "codigo", "id", "substancia1", "substancia2", "substancia3", "categoria", "fornecedor"} {
		col, ok := SearchColumn(by)
		assert.True(t, ok, by)
		assert.NotEmpty(t, col)
	}
	for _, by := range []string{"foo", "status", "created_by", "", "nome_do_produto; DROP TABLE products"} {
		_, ok := SearchColumn(by)
		assert.False(t, ok, by)
	}
}
