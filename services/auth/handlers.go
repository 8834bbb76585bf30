package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge/shared/identity"
	"github.com/talentbridge/talentbridge/shared/middleware"
	"github.com/talentbridge/talentbridge/shared/models"
	"github.com/talentbridge/talentbridge/shared/provisioning"
	"github.com/talentbridge/talentbridge/shared/utils"
)

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleLogin authenticates against the identity provider and opens a
// Redis-backed session keyed by the access token
func handleLogin(db *gorm.DB, cognito *identity.CognitoProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		result, err := cognito.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, utils.ErrCircuitOpen) {
				utils.ServiceUnavailableResponse(c, "Authentication service temporarily unavailable")
			} else {
				utils.UnauthorizedResponse(c, "Invalid credentials")
			}
			return
		}

		sub, err := extractSubFromToken(result.IDToken)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to extract user ID from token")
			return
		}

		var memberships []models.TenantUser
		if err := db.Where("user_id = ? AND is_active = ?", sub, true).Find(&memberships).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to load tenant memberships")
			return
		}

		profile := models.UserProfile{
			UserID:      sub,
			Email:       strings.ToLower(req.Email),
			Memberships: memberships,
		}

		sessionTTL := time.Duration(result.ExpiresIn) * time.Second
		session, err := utils.CreateTokenSession(result.AccessToken, profile, sessionTTL)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create session")
			return
		}

		utils.OKResponse(c, "Login successful", map[string]interface{}{
			"access_token":  result.AccessToken,
			"id_token":      result.IDToken,
			"refresh_token": result.RefreshToken,
			"expires_in":    result.ExpiresIn,
			"token_type":    "Bearer",
			"session_id":    session.SessionID,
			"user_info":     profile,
		})
	}
}

// handleRefresh exchanges a refresh token for fresh access tokens
func handleRefresh(cognito *identity.CognitoProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		result, err := cognito.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			if errors.Is(err, utils.ErrCircuitOpen) {
				utils.ServiceUnavailableResponse(c, "Authentication service temporarily unavailable")
			} else {
				utils.UnauthorizedResponse(c, "Invalid refresh token")
			}
			return
		}

		utils.OKResponse(c, "Token refreshed successfully", map[string]interface{}{
			"access_token": result.AccessToken,
			"id_token":     result.IDToken,
			"expires_in":   result.ExpiresIn,
			"token_type":   "Bearer",
		})
	}
}

// handleLogout revokes the caller's current session
func handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			utils.UnauthorizedResponse(c, "No active session found")
			return
		}

		if err := utils.RevokeTokenSession(token); err != nil {
			utils.InternalServerErrorResponse(c, "Failed to revoke session")
			return
		}

		utils.OKResponse(c, "Logout successful", nil)
	}
}

// handleMe returns the caller's resolved identity and memberships
func handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := middleware.GetAuthContext(c)
		if auth == nil {
			utils.UnauthorizedResponse(c, "Not authenticated")
			return
		}
		utils.OKResponse(c, "Identity resolved", auth)
	}
}

// handleGetSession returns the caller's current session metadata
func handleGetSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		session, err := utils.GetTokenSession(token)
		if err != nil {
			utils.NotFoundResponse(c, "Session not found")
			return
		}

		utils.OKResponse(c, "Session retrieved", map[string]interface{}{
			"session_id":   session.SessionID,
			"created_at":   session.CreatedAt,
			"last_used_at": session.LastUsedAt,
			"expires_at":   session.ExpiresAt,
			"is_current":   true,
		})
	}
}

// handleRevokeAllSessions revokes every session belonging to the caller
func handleRevokeAllSessions() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := middleware.GetAuthContext(c)
		if auth == nil {
			utils.UnauthorizedResponse(c, "Not authenticated")
			return
		}

		if err := utils.RevokeAllUserSessions(auth.UserID); err != nil {
			utils.InternalServerErrorResponse(c, "Failed to revoke sessions")
			return
		}

		utils.OKResponse(c, "All sessions revoked", nil)
	}
}

// handleInvitationStatus reports whether a pending invitation exists for an
// email address. Used by the login page before the user has a session, so it
// deliberately exposes nothing beyond existence and expiry.
func handleInvitationStatus(invitations provisioning.InvitationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.ToLower(strings.TrimSpace(c.Query("email")))
		if email == "" {
			utils.BadRequestResponse(c, "Email is required")
			return
		}

		inv, err := invitations.LatestPendingByEmail(c.Request.Context(), email)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to check invitation status")
			return
		}
		if inv == nil {
			utils.OKResponse(c, "No pending invitation", map[string]interface{}{
				"has_pending": false,
			})
			return
		}

		utils.OKResponse(c, "Pending invitation found", map[string]interface{}{
			"has_pending": true,
			"status":      inv.Status,
			"expires_at":  inv.ExpiresAt,
		})
	}
}

// handleAcceptInvitation provisions the caller from their most recent
// pending invitation. The cached session is revoked afterwards so the next
// request picks up the new membership.
func handleAcceptInvitation(provisioner *provisioning.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := middleware.GetAuthContext(c)
		if auth == nil {
			utils.UnauthorizedResponse(c, "Not authenticated")
			return
		}

		result, err := provisioner.Accept(c.Request.Context(), auth.UserID, auth.Email)
		if err != nil {
			if errors.Is(err, provisioning.ErrNoPendingInvitation) {
				utils.NotFoundResponse(c, "No pending invitation for this account")
				return
			}
			logrus.WithError(err).WithField("user_id", auth.UserID).Error("Invitation acceptance failed")
			utils.InternalServerErrorResponse(c, "Failed to accept invitation")
			return
		}

		if token := bearerToken(c); token != "" {
			if err := utils.RevokeTokenSession(token); err != nil {
				logrus.WithError(err).Debug("Failed to refresh session after acceptance")
			}
		}

		utils.OKResponse(c, "Invitation accepted", result)
	}
}

// bearerToken extracts the raw bearer token from the Authorization header
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}

// extractSubFromToken pulls the sub claim out of an already-verified token
func extractSubFromToken(tokenString string) (string, error) {
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims format")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("sub claim not found")
	}

	return sub, nil
}
