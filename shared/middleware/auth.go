package middleware

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge/shared/models"
	"github.com/talentbridge/talentbridge/shared/rbac"
	"github.com/talentbridge/talentbridge/shared/utils"
)

const authContextKey = "auth_context"

// AuthMiddleware validates bearer tokens and resolves the caller's tenant
// memberships into an AuthContext
type AuthMiddleware struct {
	db            *gorm.DB
	jwksValidator *utils.JWKSValidator
	sessionTTL    time.Duration
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(db *gorm.DB, region, userPoolID string) *AuthMiddleware {
	return &AuthMiddleware{
		db:            db,
		jwksValidator: utils.NewJWKSValidator(region, userPoolID),
		sessionTTL:    time.Hour,
	}
}

// RequireAuth validates the bearer token and sets the AuthContext on the
// request. Requests without a valid identity never reach the handler.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			utils.DeniedResponse(c, 401, string(rbac.ReasonUnauthenticated), "Authorization token required")
			c.Abort()
			return
		}

		// Session cache first: one Redis hit instead of JWKS + DB
		if session, err := utils.GetTokenSession(tokenString); err == nil {
			auth := &models.AuthContext{
				UserID:      session.UserProfile.UserID,
				Email:       session.UserProfile.Email,
				Memberships: session.UserProfile.Memberships,
			}
			c.Set(authContextKey, auth)
			if err := utils.TouchTokenSession(tokenString); err != nil {
				logrus.WithError(err).Debug("Failed to touch token session")
			}
			c.Next()
			return
		}

		sub, email, err := am.verifyToken(tokenString)
		if err != nil {
			utils.DeniedResponse(c, 401, string(rbac.ReasonUnauthenticated), "Invalid token")
			c.Abort()
			return
		}

		memberships, err := am.loadMemberships(sub)
		if err != nil {
			logrus.WithError(err).Error("Failed to load tenant memberships")
			utils.InternalServerErrorResponse(c, "Failed to resolve user memberships")
			c.Abort()
			return
		}

		auth := &models.AuthContext{
			UserID:      sub,
			Email:       email,
			Memberships: memberships,
		}
		c.Set(authContextKey, auth)

		profile := models.UserProfile{
			UserID:      sub,
			Email:       email,
			Memberships: memberships,
		}
		if _, err := utils.CreateTokenSession(tokenString, profile, am.sessionTTL); err != nil {
			logrus.WithError(err).Warn("Failed to cache token session")
		}

		c.Next()
	}
}

// verifyToken validates the token signature via JWKS and extracts identity
// claims
func (am *AuthMiddleware) verifyToken(tokenString string) (sub, email string, err error) {
	token, err := am.jwksValidator.ValidateToken(tokenString)
	if err != nil {
		return "", "", fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid token claims format")
	}

	sub = getClaimString(claims, "sub")
	if sub == "" {
		return "", "", fmt.Errorf("token missing sub claim")
	}
	email = getClaimString(claims, "email")

	tokenUse := getClaimString(claims, "token_use")
	if tokenUse != "" && tokenUse != "access" && tokenUse != "id" {
		return "", "", fmt.Errorf("unexpected token use %q", tokenUse)
	}

	return sub, email, nil
}

// loadMemberships fetches the caller's active tenant memberships
func (am *AuthMiddleware) loadMemberships(userID string) ([]models.TenantUser, error) {
	var memberships []models.TenantUser
	if err := am.db.Where("user_id = ? AND is_active = ?", userID, true).Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return authHeader
}

// getClaimString safely extracts a string claim from JWT claims
func getClaimString(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetAuthContext returns the AuthContext set by RequireAuth, or nil when the
// request skipped authentication
func GetAuthContext(c *gin.Context) *models.AuthContext {
	if val, exists := c.Get(authContextKey); exists {
		if auth, ok := val.(*models.AuthContext); ok {
			return auth
		}
	}
	return nil
}

// PermissionSource lazily loads and caches the role-permission matrix and the
// tenant tree used by the guard. While a load is failing the cached matrix
// stays nil and the guard denies, never allows.
type PermissionSource struct {
	db  *gorm.DB
	ttl time.Duration

	mu       sync.RWMutex
	matrix   *rbac.Matrix
	tree     *rbac.Tree
	loadedAt time.Time
}

// NewPermissionSource creates a permission source refreshing at the given
// interval
func NewPermissionSource(db *gorm.DB, ttl time.Duration) *PermissionSource {
	return &PermissionSource{db: db, ttl: ttl}
}

// Snapshot returns the current matrix and tree, refreshing from the database
// when the cache is stale
func (ps *PermissionSource) Snapshot() (*rbac.Matrix, *rbac.Tree) {
	ps.mu.RLock()
	if ps.matrix != nil && time.Since(ps.loadedAt) < ps.ttl {
		matrix, tree := ps.matrix, ps.tree
		ps.mu.RUnlock()
		return matrix, tree
	}
	ps.mu.RUnlock()

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.matrix != nil && time.Since(ps.loadedAt) < ps.ttl {
		return ps.matrix, ps.tree
	}

	var rows []models.RoleFeaturePermission
	if err := ps.db.Find(&rows).Error; err != nil {
		logrus.WithError(err).Error("Failed to load role permission matrix")
		return ps.matrix, ps.tree
	}

	var tenants []models.Tenant
	if err := ps.db.Find(&tenants).Error; err != nil {
		logrus.WithError(err).Error("Failed to load tenant hierarchy")
		return ps.matrix, ps.tree
	}

	ps.matrix = rbac.BuildMatrix(rows)
	ps.tree = rbac.NewTree(tenants)
	ps.loadedAt = time.Now()
	return ps.matrix, ps.tree
}

// Invalidate drops the cached snapshot so the next check reloads it. Called
// after role permissions or the tenant tree change.
func (ps *PermissionSource) Invalidate() {
	ps.mu.Lock()
	ps.loadedAt = time.Time{}
	ps.mu.Unlock()
}

// GuardFor builds a permission guard for the request's AuthContext
func (ps *PermissionSource) GuardFor(c *gin.Context) *rbac.Guard {
	matrix, tree := ps.Snapshot()
	return rbac.NewGuard(GetAuthContext(c), matrix, tree)
}

// RequirePermission enforces a feature-level permission check
func RequirePermission(ps *PermissionSource, feature rbac.Feature, permission rbac.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := ps.GuardFor(c).Check(feature, permission)
		if !decision.Allowed {
			utils.DeniedResponse(c, decision.StatusCode(), string(decision.Reason), decision.Message)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireTenantPermission enforces a permission check against the tenant
// named by the given route parameter
func RequireTenantPermission(ps *PermissionSource, feature rbac.Feature, permission rbac.Permission, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.Param(param))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid tenant ID")
			c.Abort()
			return
		}

		decision := ps.GuardFor(c).CheckTenant(feature, permission, tenantID)
		if !decision.Allowed {
			utils.DeniedResponse(c, decision.StatusCode(), string(decision.Reason), decision.Message)
			c.Abort()
			return
		}
		c.Next()
	}
}
