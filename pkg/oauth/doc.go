// Package oauth provides provider-agnostic OAuth 2.0 sign-in for the
// identity engine. Each supported provider (GitHub, Google, Kakao)
// implements the Provider interface and hides its own quirks: endpoint
// URLs, userinfo shapes, and email verification rules.
//
// Providers are constructed from client credentials supplied through the
// application configuration; a provider whose credentials are absent is
// simply not registered.
package oauth
