package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Grant types understood by the token endpoint.
const (
	GrantClientCredentials = "client_credentials"
	GrantPassword          = "password"
	GrantMFAOTP            = "mfa_otp"
)

// ClientCredentialsGrant requests an access token using the OAuth2 client_credentials grant.
// This is how an API key authenticates as itself.
func (c *SDKClient) ClientCredentialsGrant(
	ctx context.Context,
	clientID, clientSecret string,
	scopes []string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {GrantClientCredentials},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	return c.requestToken(ctx, data)
}

// PasswordGrant requests an access token on behalf of a trading user. When
// the user has MFA enrolled the endpoint answers 409 and this returns a
// *MFARequiredError to be completed with MFAOTPGrant.
func (c *SDKClient) PasswordGrant(
	ctx context.Context,
	clientID, clientSecret, username, password string,
	scopes []string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type": {GrantPassword},
		"client_id":  {clientID},
		"username":   {username},
		"password":   {password},
	}
	if clientSecret != "" {
		data.Set("client_secret", clientSecret)
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}

	return c.requestToken(ctx, data)
}

// MFAOTPGrant completes MFA authentication using a TOTP code or backup code.
func (c *SDKClient) MFAOTPGrant(
	ctx context.Context,
	mfaError MFARequiredError,
	method, otpCode string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type": {GrantMFAOTP},
		"mfa_token":  {mfaError.MFAToken},
		"method":     {method},
		"otp_code":   {otpCode},
	}

	return c.requestToken(ctx, data)
}

func (c *SDKClient) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, c.TokenURL, strings.NewReader(data.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
		"Accept":       "application/json",
	})
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}

	if tokenResp.AccessToken == "" {
		return nil, NewOAuth2Error(http.StatusOK, ErrorCodeServerError, "token response carried no access_token")
	}

	return &tokenResp, nil
}
