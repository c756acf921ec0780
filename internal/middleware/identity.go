package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"

	"event-ticketing-core/internal/config"
	"event-ticketing-core/internal/models"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

// Claims are the bearer token claims minted by the auth service
type Claims struct {
	Email string          `json:"email"`
	Name  string          `json:"name"`
	Role  models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Identity resolves the caller from a bearer token or a session cookie.
// Credentials are issued elsewhere; this only verifies them.
type Identity struct {
	secret     []byte
	issuer     string
	store      sessions.Store
	cookieName string
}

// NewIdentity creates the identity middleware. store may be nil to accept
// bearer tokens only.
func NewIdentity(jwtCfg config.JWTConfig, store sessions.Store, cookieName string) *Identity {
	if cookieName == "" {
		cookieName = "session"
	}
	return &Identity{
		secret:     []byte(jwtCfg.Secret),
		issuer:     jwtCfg.Issuer,
		store:      store,
		cookieName: cookieName,
	}
}

// LoadUser puts the caller into the request context when one can be
// identified. Anonymous requests pass through.
func (m *Identity) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var user *models.User

		if token, ok := bearerToken(r); ok {
			parsed, err := m.ParseToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, models.KindUnauthenticated, "invalid bearer token")
				return
			}
			user = parsed
		} else if m.store != nil {
			user = m.fromSession(r)
		}

		if user != nil {
			r = r.WithContext(SetUserContext(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// IssueToken signs a bearer token for user. Used by tooling and tests; the
// auth service mints production tokens with the same secret.
func (m *Identity) IssueToken(user *models.User, ttl time.Duration) (string, error) {
	if len(m.secret) == 0 {
		return "", errors.New("JWT secret is not configured")
	}

	now := time.Now()
	claims := &Claims{
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken verifies an HS256 bearer token and returns the user it names
func (m *Identity) ParseToken(tokenStr string) (*models.User, error) {
	if len(m.secret) == 0 {
		return nil, errors.New("JWT secret is not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid subject %q", claims.Subject)
	}

	role := claims.Role
	if !models.IsValidRole(role) {
		role = models.UserRoleBuyer
	}

	return &models.User{
		ID:    id,
		Email: claims.Email,
		Name:  claims.Name,
		Role:  role,
	}, nil
}

// SignIn stores user in the session cookie
func (m *Identity) SignIn(w http.ResponseWriter, r *http.Request, user *models.User) error {
	if m.store == nil {
		return errors.New("session store is not configured")
	}

	session, err := m.store.Get(r, m.cookieName)
	if err != nil && session == nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	session.Values["user_id"] = user.ID
	session.Values["email"] = user.Email
	session.Values["name"] = user.Name
	session.Values["role"] = string(user.Role)
	return session.Save(r, w)
}

func (m *Identity) fromSession(r *http.Request) *models.User {
	session, err := m.store.Get(r, m.cookieName)
	if err != nil {
		return nil
	}

	// Session storage may not preserve the int type
	var userID int
	switch v := session.Values["user_id"].(type) {
	case int:
		userID = v
	case int64:
		userID = int(v)
	case float64:
		userID = int(v)
	case string:
		userID, _ = strconv.Atoi(v)
	}
	if userID <= 0 {
		return nil
	}

	email, _ := session.Values["email"].(string)
	name, _ := session.Values["name"].(string)
	roleValue, _ := session.Values["role"].(string)

	role := models.UserRole(roleValue)
	if !models.IsValidRole(role) {
		role = models.UserRoleBuyer
	}

	return &models.User{ID: userID, Email: email, Name: name, Role: role}
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, models.KindUnauthenticated, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext retrieves the user from request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// SetUserContext sets the user in the context
func SetUserContext(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
