// Package auth provides the two stateless credential primitives of TaskHub:
// bcrypt password hashing (PasswordHasher) and signed bearer token issuance
// and verification (TokenIssuer).
//
// Tokens are compact HS256 JWTs carrying only a subject (the account email)
// and an expiry. Validity is solely signature plus expiry; nothing is stored
// server-side and tokens cannot be revoked individually.
package auth
