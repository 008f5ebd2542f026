package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret"
	testAudience = "cleanbook-api"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(9, "sam@example.com", RoleEmployee, []string{PermBookingsRead}, testSecret, testAudience, time.Minute)
	require.NoError(t, err)

	claims, err := Parse(tok, testSecret, testAudience)
	require.NoError(t, err)
	assert.Equal(t, int64(9), claims.Sub)
	assert.Equal(t, RoleEmployee, claims.Role)
	assert.Equal(t, []string{PermBookingsRead}, claims.Permissions)
}

func TestParseRejects(t *testing.T) {
	good, err := NewAccessToken(1, "a@b.co", RoleAdmin, nil, testSecret, testAudience, time.Minute)
	require.NoError(t, err)
	expired, err := NewAccessToken(1, "a@b.co", RoleAdmin, nil, testSecret, testAudience, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		secret   string
		audience string
	}{
		{"wrong secret", good, "other", testAudience},
		{"wrong audience", good, testSecret, "someone-else"},
		{"expired", expired, testSecret, testAudience},
		{"garbage", "not-a-jwt", testSecret, testAudience},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.token, tt.secret, tt.audience)
			assert.Error(t, err)
		})
	}
}

func TestClaimsCan(t *testing.T) {
	admin := &Claims{Role: RoleAdmin}
	emp := &Claims{Role: RoleEmployee, Permissions: []string{PermBookingsRead}}
	cust := &Claims{Role: RoleCustomer, Permissions: []string{PermBookingsRead}}

	assert.True(t, admin.Can(PermEmployeesWrite))
	assert.True(t, emp.Can(PermBookingsRead))
	assert.False(t, emp.Can(PermBookingsWrite))
	assert.False(t, cust.Can(PermBookingsRead))
}
