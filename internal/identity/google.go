// Package identity verifies identity tokens issued by third-party providers.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/prperemyshlev/user-service/internal/domain"
)

// DefaultGoogleTokenInfoURL is Google's token introspection endpoint
const DefaultGoogleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// tokenInfo is the tokeninfo response; Google encodes every value as a string
type tokenInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Aud           string `json:"aud"`
	Exp           string `json:"exp"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// GoogleClient verifies Google ID tokens with the tokeninfo endpoint
type GoogleClient struct {
	httpClient   *http.Client
	tokenInfoURL string
	clientID     string
	logger       *zap.Logger
	now          func() time.Time
}

// NewGoogleClient creates a client. An empty clientID disables the audience check;
// timeout bounds every verification call.
func NewGoogleClient(tokenInfoURL, clientID string, timeout time.Duration, logger *zap.Logger) *GoogleClient {
	if tokenInfoURL == "" {
		tokenInfoURL = DefaultGoogleTokenInfoURL
	}
	return &GoogleClient{
		httpClient:   &http.Client{Timeout: timeout},
		tokenInfoURL: tokenInfoURL,
		clientID:     clientID,
		logger:       logger.Named("google_identity"),
		now:          time.Now,
	}
}

// Verify checks the token with Google and returns the verified profile
func (c *GoogleClient) Verify(ctx context.Context, identityToken string) (*domain.IdentityProfile, error) {
	if identityToken == "" {
		return nil, fmt.Errorf("%w: empty identity token", domain.ErrIdentityVerificationFailed)
	}

	endpoint := c.tokenInfoURL + "?id_token=" + url.QueryEscape(identityToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIdentityVerificationFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("tokeninfo request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrIdentityVerificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: tokeninfo returned status %d", domain.ErrIdentityVerificationFailed, resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: invalid tokeninfo response: %v", domain.ErrIdentityVerificationFailed, err)
	}

	if c.clientID != "" && info.Aud != c.clientID {
		return nil, fmt.Errorf("%w: audience mismatch", domain.ErrIdentityVerificationFailed)
	}

	exp, err := strconv.ParseInt(info.Exp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid expiry", domain.ErrIdentityVerificationFailed)
	}
	expiry := time.Unix(exp, 0)
	if expiry.Before(c.now()) {
		return nil, fmt.Errorf("%w: identity token expired", domain.ErrIdentityVerificationFailed)
	}

	if info.EmailVerified != "true" {
		return nil, fmt.Errorf("%w: email not verified", domain.ErrIdentityVerificationFailed)
	}

	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("%w: missing subject or email", domain.ErrIdentityVerificationFailed)
	}

	return &domain.IdentityProfile{
		SubjectID:     info.Sub,
		Email:         info.Email,
		EmailVerified: true,
		Audience:      info.Aud,
		Expiry:        expiry,
		DisplayName:   info.Name,
		GivenName:     info.GivenName,
		FamilyName:    info.FamilyName,
		Picture:       info.Picture,
	}, nil
}
