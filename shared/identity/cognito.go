// Package identity wraps the hosted identity provider (AWS Cognito). The
// core never hashes passwords, signs tokens, or stores sessions itself;
// everything here delegates to the provider behind a circuit breaker.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cognitoidentityprovider"

	"github.com/talentbridge/talentbridge/shared/models"
	"github.com/talentbridge/talentbridge/shared/utils"
)

// CognitoProvider implements the provisioning identity-provider contract
// plus the admin operations the auth service needs
type CognitoProvider struct {
	client     *cognitoidentityprovider.CognitoIdentityProvider
	userPoolID string
	clientID   string
	breaker    *utils.CircuitBreaker
}

// NewCognitoProvider builds a provider for one user pool
func NewCognitoProvider(region, userPoolID, clientID string) (*CognitoProvider, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &CognitoProvider{
		client:     cognitoidentityprovider.New(sess),
		userPoolID: userPoolID,
		clientID:   clientID,
		breaker:    utils.NewCircuitBreaker(5, 30*time.Second),
	}, nil
}

// UserExistsByEmail reports whether the pool already has an account for the
// email
func (p *CognitoProvider) UserExistsByEmail(_ context.Context, email string) (bool, error) {
	var out *cognitoidentityprovider.ListUsersOutput
	err := p.breaker.Call(func() error {
		var listErr error
		out, listErr = p.client.ListUsers(&cognitoidentityprovider.ListUsersInput{
			UserPoolId: aws.String(p.userPoolID),
			Filter:     aws.String(fmt.Sprintf("email = %q", email)),
			Limit:      aws.Int64(1),
		})
		return listErr
	})
	if err != nil {
		return false, fmt.Errorf("failed to list users by email: %w", err)
	}
	return len(out.Users) > 0, nil
}

// SendInvitationEmail delivers the provider's invitation email. The
// invitation id and role metadata travel as custom attributes so acceptance
// can recover context even if the local invitation row goes missing.
func (p *CognitoProvider) SendInvitationEmail(_ context.Context, inv *models.UserInvitation) error {
	input := &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(inv.Email),
		UserAttributes: []*cognitoidentityprovider.AttributeType{
			{Name: aws.String("email"), Value: aws.String(inv.Email)},
			{Name: aws.String("email_verified"), Value: aws.String("true")},
			{Name: aws.String("custom:invitation_id"), Value: aws.String(inv.ID.String())},
			{Name: aws.String("custom:role"), Value: aws.String(inv.Role)},
			{Name: aws.String("custom:role_level"), Value: aws.String(inv.RoleLevel)},
			{Name: aws.String("custom:tenant_id"), Value: aws.String(inv.TenantID.String())},
		},
		DesiredDeliveryMediums: []*string{aws.String("EMAIL")},
	}

	err := p.breaker.Call(func() error {
		_, createErr := p.client.AdminCreateUser(input)
		return createErr
	})
	if err == nil {
		return nil
	}

	// An existing pool account means this is a re-delivery
	if awsErr, ok := err.(awserr.Error); ok && awsErr.Code() == cognitoidentityprovider.ErrCodeUsernameExistsException {
		input.MessageAction = aws.String(cognitoidentityprovider.MessageActionTypeResend)
		return p.breaker.Call(func() error {
			_, resendErr := p.client.AdminCreateUser(input)
			return resendErr
		})
	}
	return fmt.Errorf("failed to send invitation email: %w", err)
}

// SendPasswordResetEmail triggers the provider's password-reset flow
func (p *CognitoProvider) SendPasswordResetEmail(_ context.Context, email string) error {
	err := p.breaker.Call(func() error {
		_, resetErr := p.client.AdminResetUserPassword(&cognitoidentityprovider.AdminResetUserPasswordInput{
			UserPoolId: aws.String(p.userPoolID),
			Username:   aws.String(email),
		})
		return resetErr
	})
	if err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

// DeleteUser removes the account from the pool
func (p *CognitoProvider) DeleteUser(_ context.Context, username string) error {
	err := p.breaker.Call(func() error {
		_, deleteErr := p.client.AdminDeleteUser(&cognitoidentityprovider.AdminDeleteUserInput{
			UserPoolId: aws.String(p.userPoolID),
			Username:   aws.String(username),
		})
		return deleteErr
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// AuthResult carries the provider-issued tokens
type AuthResult struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresIn    int64
}

// Authenticate performs the username/password flow against the pool
func (p *CognitoProvider) Authenticate(_ context.Context, username, password string) (*AuthResult, error) {
	var out *cognitoidentityprovider.InitiateAuthOutput
	err := p.breaker.Call(func() error {
		var authErr error
		out, authErr = p.client.InitiateAuth(&cognitoidentityprovider.InitiateAuthInput{
			AuthFlow: aws.String("USER_PASSWORD_AUTH"),
			ClientId: aws.String(p.clientID),
			AuthParameters: map[string]*string{
				"USERNAME": aws.String(username),
				"PASSWORD": aws.String(password),
			},
		})
		return authErr
	})
	if err != nil {
		return nil, err
	}

	result := &AuthResult{
		AccessToken: aws.StringValue(out.AuthenticationResult.AccessToken),
		IDToken:     aws.StringValue(out.AuthenticationResult.IdToken),
		ExpiresIn:   aws.Int64Value(out.AuthenticationResult.ExpiresIn),
	}
	if out.AuthenticationResult.RefreshToken != nil {
		result.RefreshToken = *out.AuthenticationResult.RefreshToken
	}
	return result, nil
}

// Refresh exchanges a refresh token for fresh access tokens
func (p *CognitoProvider) Refresh(_ context.Context, refreshToken string) (*AuthResult, error) {
	var out *cognitoidentityprovider.InitiateAuthOutput
	err := p.breaker.Call(func() error {
		var authErr error
		out, authErr = p.client.InitiateAuth(&cognitoidentityprovider.InitiateAuthInput{
			AuthFlow: aws.String("REFRESH_TOKEN_AUTH"),
			ClientId: aws.String(p.clientID),
			AuthParameters: map[string]*string{
				"REFRESH_TOKEN": aws.String(refreshToken),
			},
		})
		return authErr
	})
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken: aws.StringValue(out.AuthenticationResult.AccessToken),
		IDToken:     aws.StringValue(out.AuthenticationResult.IdToken),
		ExpiresIn:   aws.Int64Value(out.AuthenticationResult.ExpiresIn),
	}, nil
}

// BreakerStatus snapshots the provider circuit for health reporting
func (p *CognitoProvider) BreakerStatus() utils.BreakerStatus {
	return p.breaker.Status()
}
