// Package sessioncookie owns the session cookie wire contract shared by
// every runtime bridge: the fixed cookie names, the clearing headers emitted
// on sign-out, the Set-Cookie forwarding convention, and the HMAC signing of
// the session-metadata cookie payload.
package sessioncookie
