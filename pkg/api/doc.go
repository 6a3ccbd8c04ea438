// Package api exposes the TaskHub HTTP surface under /api/v1: registration
// and login, the current-user endpoint, owner-scoped item CRUD, and the
// admin-only user management routes.
//
// # Error mapping
//
// Storage sentinel errors and validation outcomes map onto HTTP statuses:
//
//	validation problem        422 with per-field details
//	duplicate email           400
//	bad credentials           401 (uniform, no account enumeration)
//	inactive account          403
//	missing/invalid token     401
//	foreign item              403 (after a 404 existence check)
//	absent record             404
//	anything else             500, logged server-side, detail withheld
package api
