// Package auth contains the identity engine and the narrow port the
// application layer consumes.
//
// The engine owns credentials, sessions, verification tokens, and OAuth
// sign-in, persisting through its own storage interface and issuing
// session state as two prefixed cookies. It never applies cookies to an
// ambient response object: every operation that can emit cookies returns
// its response headers explicitly, and the caller decides where to attach
// them.
//
// The Port interface is what services program against; Adapter implements
// it by wrapping an Engine. Bridges and the web layer additionally mount
// the engine's raw HTTP handler for provider-native endpoints such as
// OAuth callbacks and email verification links.
package auth
