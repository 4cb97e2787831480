package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRole(t *testing.T) {
	yes, no := true, false

	cases := []struct {
		name      string
		role      Role
		flag      *bool
		wantAdmin bool
		wantErr   error
	}{
		{"admin forces flag", RoleAdmin, nil, true, nil},
		{"admin with explicit true", RoleAdmin, &yes, true, nil},
		{"admin with explicit false", RoleAdmin, &no, false, ErrAdminFlagMismatch},
		{"vendor defaults to false", RoleVendor, nil, false, nil},
		{"customer explicit false", RoleCustomer, &no, false, nil},
		{"vendor cannot carry flag", RoleVendor, &yes, false, ErrAdminFlagMismatch},
		{"unknown role", Role("owner"), nil, false, ErrUnknownRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := User{Role: RoleCustomer}
			err := u.ApplyRole(tc.role, tc.flag)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, RoleCustomer, u.Role, "failed call must not mutate")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.role, u.Role)
			assert.Equal(t, tc.wantAdmin, u.IsAdmin)
		})
	}
}

func TestApplyRole_DemotionClearsFlag(t *testing.T) {
	u := User{}
	require.NoError(t, u.ApplyRole(RoleAdmin, nil))
	require.True(t, u.IsAdmin)

	require.NoError(t, u.ApplyRole(RoleVendor, nil))
	assert.False(t, u.IsAdmin)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("  Vendor ")
	require.NoError(t, err)
	assert.Equal(t, RoleVendor, r)

	_, err = ParseRole("vendedor")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestSaleItemSnapshot(t *testing.T) {
	p := Product{ID: 3, Name: "Tea", Price: decimal.RequireFromString("2.35")}
	item := NewSaleItem(p, 3)

	p.Name, p.Price = "Green Tea", decimal.NewFromInt(9)
	assert.Equal(t, "Tea", item.ProductName)
	assert.True(t, item.UnitPriceAtSale.Equal(decimal.RequireFromString("2.35")))
	assert.True(t, item.Subtotal().Equal(decimal.RequireFromString("7.05")))
}

func TestSumItems(t *testing.T) {
	items := []SaleItem{
		{Quantity: 3, UnitPriceAtSale: decimal.RequireFromString("0.10")},
		{Quantity: 1, UnitPriceAtSale: decimal.RequireFromString("0.20")},
	}
	assert.Equal(t, "0.5", SumItems(items).String())
	assert.True(t, SumItems(nil).IsZero())
}

func TestUserJSONHidesPassword(t *testing.T) {
	b, err := json.Marshal(User{ID: 1, Email: "a@b.c", PasswordHash: "secret-hash"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret-hash")
}

func TestMoneyEncodesAsNumber(t *testing.T) {
	b, err := json.Marshal(Sale{Total: decimal.RequireFromString("12.50")})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"total":12.5`)
}
