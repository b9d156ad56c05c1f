// Package jwt mints and verifies the access/refresh token pairs carried by cookie and
// header clients. Tokens are typed: a refresh token never verifies as an access
// token and vice versa. Verification is a pure function of token, key, and clock.
package jwt
