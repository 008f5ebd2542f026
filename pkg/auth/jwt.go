package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleCustomer = "customer"
)

// Permissions carried by employee tokens. Admins implicitly hold all of them.
const (
	PermBookingsRead   = "bookings:read"
	PermBookingsWrite  = "bookings:write"
	PermCustomersRead  = "customers:read"
	PermCustomersWrite = "customers:write"
	PermPromosWrite    = "promos:write"
	PermAreasWrite     = "areas:write"
	PermRecurringWrite = "recurring:write"
	PermContentWrite   = "content:write"
	PermEmployeesWrite = "employees:write"
	PermInvoicesWrite  = "invoices:write"
	PermAnalyticsRead  = "analytics:read"
)

var AllPermissions = []string{
	PermBookingsRead, PermBookingsWrite,
	PermCustomersRead, PermCustomersWrite,
	PermPromosWrite, PermAreasWrite, PermRecurringWrite,
	PermContentWrite, PermEmployeesWrite, PermInvoicesWrite,
	PermAnalyticsRead,
}

func IsPermission(p string) bool {
	return slices.Contains(AllPermissions, p)
}

type Claims struct {
	Sub         int64    `json:"sub"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Can reports whether the token grants perm.
func (c *Claims) Can(perm string) bool {
	if c.Role == RoleAdmin {
		return true
	}
	return c.Role == RoleEmployee && slices.Contains(c.Permissions, perm)
}

func NewAccessToken(sub int64, email, role string, permissions []string, secret, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Sub:         sub,
		Email:       email,
		Role:        role,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func Parse(tokenString, secret, audience string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
