/*
Package authsdk is a small client for a trading venue's OAuth2 surface: the
token endpoint and the key discovery (JWKS) endpoint.

# Grants

	client := authsdk.NewSDKClient(tokenURL, jwksURL)

	// API key authenticating as itself
	tok, err := client.ClientCredentialsGrant(ctx, clientID, clientSecret, []string{"trade"})

	// Trading user, possibly with MFA
	tok, err := client.PasswordGrant(ctx, clientID, "", username, password, nil)
	var mfaErr *authsdk.MFARequiredError
	if errors.As(err, &mfaErr) {
		tok, err = client.MFAOTPGrant(ctx, *mfaErr, "totp", otpCode)
	}

# Keys

	jwks, err := client.GetJWKS(ctx)

# Errors

Non-200 responses are returned as *OAuth2Error, except a 409 mfa_required
challenge which is returned as *MFARequiredError. The same types can write
themselves to an http.ResponseWriter, which the local venue simulator uses.
*/
package authsdk
