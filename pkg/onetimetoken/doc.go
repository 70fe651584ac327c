// Package onetimetoken issues and consumes single-use hashed tokens such as
// email verification and password reset links.
//
// A Manager is bound to one tokenstore.TokenKind. Issue replaces every earlier
// token of that kind for the user, so at most one is live at a time. Consume
// deletes the token and applies the state change it authorizes inside one
// store transaction: concurrent presentations of the same secret produce
// exactly one winner.
//
// Token states:
//
//	LIVE     row present and unexpired
//	EXPIRED  row present and past its expiry; deleted when discovered
//	ABSENT   row never existed, was consumed, or was superseded
package onetimetoken
