package tokengenerator

import (
	"net/http"
	"time"
)

// Token type constants
const (
	ACCESS_TOKEN_NAME = "access_token"
	TEMP_TOKEN_NAME   = "temp_token"
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry = 1 * time.Hour
	DefaultTempTokenExpiry   = 5 * time.Minute
)

// JwtService provides token generation and cookie management for the access
// and temporary token kinds.
type JwtService struct {
	TokenGenerators       map[string]TokenGenerator
	DefaultTokenGenerator TokenGenerator
	CookieSetters         map[string]CookieSetter
	DefaultCookieSetter   CookieSetter

	AccessTokenExpiry time.Duration
	TempTokenExpiry   time.Duration
}

// JwtServiceOption is a function that configures a JwtService
type JwtServiceOption func(*JwtService)

// WithTokenGenerator sets the token generator for a specific token name
func WithTokenGenerator(tokenName string, tokenGenerator TokenGenerator) JwtServiceOption {
	return func(js *JwtService) {
		if js.TokenGenerators == nil {
			js.TokenGenerators = make(map[string]TokenGenerator)
		}
		js.TokenGenerators[tokenName] = tokenGenerator
	}
}

// WithDefaultTokenGenerator sets the default token generator
func WithDefaultTokenGenerator(tokenGenerator TokenGenerator) JwtServiceOption {
	return func(js *JwtService) {
		js.DefaultTokenGenerator = tokenGenerator
	}
}

// WithCookieSetter sets the cookie setter for a specific cookie name
func WithCookieSetter(cookieName string, cookieSetter CookieSetter) JwtServiceOption {
	return func(js *JwtService) {
		if js.CookieSetters == nil {
			js.CookieSetters = make(map[string]CookieSetter)
		}
		js.CookieSetters[cookieName] = cookieSetter
	}
}

// WithAccessTokenExpiry sets the access token expiry duration
func WithAccessTokenExpiry(expiry time.Duration) JwtServiceOption {
	return func(js *JwtService) {
		js.AccessTokenExpiry = expiry
	}
}

// WithTempTokenExpiry sets the temporary token expiry duration
func WithTempTokenExpiry(expiry time.Duration) JwtServiceOption {
	return func(js *JwtService) {
		js.TempTokenExpiry = expiry
	}
}

// NewJwtService creates a new JwtService
func NewJwtService(options ...JwtServiceOption) *JwtService {
	js := &JwtService{
		TokenGenerators:     make(map[string]TokenGenerator),
		CookieSetters:       make(map[string]CookieSetter),
		DefaultCookieSetter: NewCookieSetter(true, true),
		AccessTokenExpiry:   DefaultAccessTokenExpiry,
		TempTokenExpiry:     DefaultTempTokenExpiry,
	}

	for _, option := range options {
		option(js)
	}

	return js
}

// GenerateAccessToken issues a full-access token carrying the account's role
// and no scope restriction.
func (js *JwtService) GenerateAccessToken(subject string, role string) (string, time.Time, error) {
	return js.generator(ACCESS_TOKEN_NAME).GenerateToken(subject, js.AccessTokenExpiry, role, "")
}

// GenerateTempToken issues a short-lived token scoped to the 2FA completion
// step. It grants no other access.
func (js *JwtService) GenerateTempToken(subject string, role string) (string, time.Time, error) {
	return js.generator(TEMP_TOKEN_NAME).GenerateToken(subject, js.TempTokenExpiry, role, ScopeTwoFA)
}

// ParseToken parses and validates a token of the given kind
func (js *JwtService) ParseToken(tokenName, tokenStr string) (*Claims, error) {
	return js.generator(tokenName).ParseToken(tokenStr)
}

func (js *JwtService) generator(tokenName string) TokenGenerator {
	tokenGenerator, ok := js.TokenGenerators[tokenName]
	if !ok {
		return js.DefaultTokenGenerator
	}
	return tokenGenerator
}

// SetAccessTokenCookie sets the access token as a cookie
func (js *JwtService) SetAccessTokenCookie(w http.ResponseWriter, tokenValue string, expire time.Time) error {
	return js.setCookie(w, ACCESS_TOKEN_NAME, tokenValue, expire)
}

// SetTempTokenCookie sets the temporary token as a cookie
func (js *JwtService) SetTempTokenCookie(w http.ResponseWriter, tokenValue string, expire time.Time) error {
	return js.setCookie(w, TEMP_TOKEN_NAME, tokenValue, expire)
}

// ClearTokenCookies clears both token cookies on logout
func (js *JwtService) ClearTokenCookies(w http.ResponseWriter) {
	js.cookieSetter(ACCESS_TOKEN_NAME).ClearCookie(w, ACCESS_TOKEN_NAME)
	js.cookieSetter(TEMP_TOKEN_NAME).ClearCookie(w, TEMP_TOKEN_NAME)
}

func (js *JwtService) setCookie(w http.ResponseWriter, cookieName string, tokenValue string, expire time.Time) error {
	return js.cookieSetter(cookieName).SetCookie(w, cookieName, tokenValue, expire)
}

func (js *JwtService) cookieSetter(cookieName string) CookieSetter {
	cookieSetter, ok := js.CookieSetters[cookieName]
	if !ok {
		return js.DefaultCookieSetter
	}
	return cookieSetter
}
