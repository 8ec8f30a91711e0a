package auth

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/api/idtoken"
)

// GoogleIdentity is the subset of a verified Google ID token we use.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// IDTokenVerifier checks a Google ID token for the configured audience.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, credential string) (GoogleIdentity, error)
}

// GoogleVerifier validates tokens against Google's published keys.
type GoogleVerifier struct {
	audience  string
	validator *idtoken.Validator
}

// NewGoogleVerifier builds a verifier for clientID.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, errors.New("google client id is empty")
	}
	v, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleVerifier{audience: clientID, validator: v}, nil
}

func (g *GoogleVerifier) VerifyIDToken(ctx context.Context, credential string) (GoogleIdentity, error) {
	payload, err := g.validator.Validate(ctx, credential, g.audience)
	if err != nil {
		return GoogleIdentity{}, err
	}
	id := GoogleIdentity{Subject: payload.Subject}
	if v, ok := payload.Claims["email"].(string); ok {
		id.Email = v
	}
	if v, ok := payload.Claims["email_verified"].(bool); ok {
		id.EmailVerified = v
	}
	if v, ok := payload.Claims["name"].(string); ok {
		id.Name = v
	}
	return id, nil
}
