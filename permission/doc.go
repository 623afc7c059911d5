// Package permission defines the closed set of marketplace roles and the
// membership checks used by marketgate authorization.
//
// # Roles
//
// Exactly three roles exist: [Admin], [Seller] and [Buyer]. Any other value
// is rejected at the boundary by [Parse], so code holding a [Role] never has
// to handle an unrecognized one.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import marketgate, jwt, or middleware.
package permission
