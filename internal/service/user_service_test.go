package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sales-pos/internal/model"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestRegister_Defaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, RegisterInput{Name: " Ana ", Email: " ANA@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.Name)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, model.RoleCustomer, u.Role)
	assert.False(t, u.IsAdmin)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	v, err := f.users.Register(ctx, RegisterInput{Name: "Vic", Email: "vic@example.com", Password: "secret1", Role: "vendor"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleVendor, v.Role)
}

func TestRegister_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Register(ctx, RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "secret1", Role: "admin"})
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)

	_, err = f.users.Register(ctx, RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "12345"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "password", vErr.Field)

	_, err = f.users.Register(ctx, RegisterInput{Name: "Eve", Email: "VERA@pos.test", Password: "secret1"})
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)

	_, err = f.users.Register(ctx, RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "secret1", Role: "boss"})
	assert.ErrorAs(t, err, &vErr)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Authenticate(ctx, "Vera@POS.test", "vendorpass")
	require.NoError(t, err)
	assert.Equal(t, f.vendor.ID, u.ID)

	_, err = f.users.Authenticate(ctx, "vera@pos.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.users.Authenticate(ctx, "nobody@pos.test", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	f := newFixture(t)

	again, err := f.users.EnsureAdmin(context.Background(), "Root", "ROOT@pos.test", "different")
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, again.ID)
	assert.True(t, again.IsAdmin)
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	all, err := f.users.List(ctx, f.admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	vendors, err := f.users.List(ctx, f.admin, "vendor")
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	assert.Equal(t, f.vendor.ID, vendors[0].ID)

	_, err = f.users.List(ctx, f.vendor, "")
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}

func TestUpdate_SelfProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Update(ctx, f.customer, f.customer.ID, UserPatch{
		Name:     strPtr("Cameron"),
		Location: &model.Location{Lat: 4.6, Lng: -74.08},
		Password: strPtr("newpass1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cameron", u.Name)
	require.NotNil(t, u.Location)

	_, err = f.users.Authenticate(ctx, "cam@pos.test", "newpass1")
	assert.NoError(t, err)

	_, err = f.users.Update(ctx, f.customer, f.vendor.ID, UserPatch{Name: strPtr("Hijack")})
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}

func TestUpdate_RoleChangesAreAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Update(ctx, f.customer, f.customer.ID, UserPatch{Role: strPtr("admin")})
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)

	promoted, err := f.users.Update(ctx, f.admin, f.customer.ID, UserPatch{Role: strPtr("admin")})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, promoted.Role)
	assert.True(t, promoted.IsAdmin)

	demoted, err := f.users.Update(ctx, f.admin, f.customer.ID, UserPatch{Role: strPtr("vendor")})
	require.NoError(t, err)
	assert.Equal(t, model.RoleVendor, demoted.Role)
	assert.False(t, demoted.IsAdmin)

	_, err = f.users.Update(ctx, f.admin, f.vendor.ID, UserPatch{IsAdmin: boolPtr(false), Role: strPtr("admin")})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestUpdate_LastAdminCannotBeDemoted(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Update(context.Background(), f.admin, f.admin.ID, UserPatch{Role: strPtr("vendor")})
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestDelete_Policy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var (
		conflict *ConflictError
		authErr  *AuthorizationError
	)

	// Nobody deletes themselves.
	require.ErrorAs(t, f.users.Delete(ctx, f.admin, f.admin.ID), &conflict)

	// Only admins delete.
	require.ErrorAs(t, f.users.Delete(ctx, f.vendor, f.customer.ID), &authErr)

	// A second admin may delete the first; the survivor is then protected.
	second, err := f.users.Update(ctx, f.admin, f.customer.ID, UserPatch{Role: strPtr("admin")})
	require.NoError(t, err)
	require.NoError(t, f.users.Delete(ctx, actorOf(second), f.admin.ID))
	require.ErrorAs(t, f.users.Delete(ctx, actorOf(second), second.ID), &conflict)

	_, err = f.users.Profile(ctx, f.admin.ID)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDelete_LastAdminWithStaleToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The caller still holds an admin token but its account was demoted.
	stale := model.Actor{ID: f.customer.ID, Role: model.RoleAdmin}
	var conflict *ConflictError
	assert.ErrorAs(t, f.users.Delete(ctx, stale, f.admin.ID), &conflict)
}

func TestDelete_VendorWithProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, f.vendor, "Owned", "1.00", 3)
	_, err := f.sales.CreateSale(ctx, f.vendor, []BasketLine{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	var conflict *ConflictError
	require.ErrorAs(t, f.users.Delete(ctx, f.admin, f.vendor.ID), &conflict)

	require.NoError(t, f.products.Delete(ctx, f.vendor, p.ID))
	require.NoError(t, f.users.Delete(ctx, f.admin, f.vendor.ID))

	// Sales of the removed vendor stay in the ledger.
	assert.Equal(t, int64(1), f.ledgerSize(t))
}
