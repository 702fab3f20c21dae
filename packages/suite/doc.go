// Package suite defines the blog API workflow: registration, listing,
// pagination, id filtering, authorization on the protected prefix, and the
// post create/read/update/delete round trips.
//
// Scenarios that need a bearer token depend on registration and read the
// token from the fixture store it saved to.
package suite
