// Package middleware exposes net/http adapters for the authgate request pipeline.
//
// # Handlers
//
//   - [Protect]: runs the full pipeline ([authgate.Engine.Evaluate]) for one route.
//   - [Authenticate], [CSRF], [RateLimit], [RolesGate], [Maintenance]: the
//     individual stages, for custom chains. Later stages read the identity
//     stored in the request context by [Authenticate].
//   - [RequirePluginKey]: the plugin-only key gate.
//
// Credentials are read from the cookies and headers named in
// [authgate.TransportConfig]. Tokens minted by the refresh flow are written
// back as response headers and, for cookie clients, as cookies. Rejections are
// rendered as JSON {"message": "<reason>"} with the status of the error kind.
//
// # What this package must NOT do
//
//   - Make authentication or authorization decisions (all delegated to Engine).
//   - Access Redis or the record store directly.
package middleware
