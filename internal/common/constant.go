package common

// AccessTokenHeaderName is the HTTP header carrying the base64-encoded
// access token.
const AccessTokenHeaderName = "X-AUTH-TOKEN"

// BaseRole is granted to every user regardless of the stored role set.
const BaseRole = "ROLE_USER"
