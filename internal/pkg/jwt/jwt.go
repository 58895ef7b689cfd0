package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Tokens are issued by the HRIS identity service; this service verifies them with the shared secret.

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleOwner    Role = "owner"
)

// CanManage reports whether the role may edit records and trigger reconciliation.
func (r Role) CanManage() bool {
	return r == RoleManager || r == RoleOwner
}

var ErrMissingClaims = errors.New("token claims are missing or invalid")

type Claims struct {
	UserID     string
	EmployeeID string
	Role       Role
}

type Service interface {
	GenerateAccessToken(userID string, employeeID *string, role Role) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime time.Duration
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime time.Duration) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(userID string, employeeID *string, role Role) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(j.accessTokenExpirationTime).Unix()

	claims := map[string]interface{}{
		"user_id":     userID,
		"employee_id": returnValueOrNil(employeeID),
		"role":        string(role),
		"type":        "access",
		"exp":         expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// ClaimsFromContext reads the claims verified by jwtauth.Verifier.
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	_, raw, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Claims{}, err
	}

	if t, _ := raw["type"].(string); t != "access" {
		return Claims{}, ErrMissingClaims
	}

	userID, _ := raw["user_id"].(string)
	if userID == "" {
		return Claims{}, ErrMissingClaims
	}
	employeeID, _ := raw["employee_id"].(string)
	role, _ := raw["role"].(string)

	return Claims{
		UserID:     userID,
		EmployeeID: employeeID,
		Role:       Role(role),
	}, nil
}

func returnValueOrNil(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
