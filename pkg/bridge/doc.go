/*
Package bridge implements the host side of Villa's cross-origin
authentication flow: a third-party application delegates sign-in to the
trusted Villa origin, embedded in a frame, and receives the validated result
without ever touching credentials.

# Overview

A Bridge composes four pieces:

  - the origin allowlist validator (pkg/bridge/origin): exact-match trust
    decisions per network
  - the protocol codec (pkg/bridge/protocol): schema validation of the six
    VILLA_* message types
  - the frame controller (pkg/bridge/frame): ownership of the presentation
    surface and the inbound message conduit
  - the event emitter: multi-listener delivery of ready/success/error/cancel

The bridge is purely reactive. Nothing polls; the session advances only when
the embedded page posts a message, the user dismisses the surface, the
timeout elapses, or the host calls Close.

# Usage

	b := bridge.New(bridge.Config{
		AppID:        "app_demo",
		Network:      bridge.NetworkBase,
		CallerOrigin: "https://shop.example.com",
		Scopes:       []string{"profile"},
	})

	b.On(bridge.EventSuccess, func(p bridge.Payload) {
		fmt.Println("signed in as", p.Identity.Nickname)
	})
	b.On(bridge.EventError, func(p bridge.Payload) {
		fmt.Println("sign-in failed:", p.Err.Code)
	})

	if err := b.SignIn(ctx); err != nil {
		// Config problems surface here, before any frame is opened.
	}

Or promise-style:

	identity, err := b.SignInAndWait(ctx)

# Sessions and trust

Exactly one session is active per Bridge at a time. A message is acted on
only when its sender origin is in the network's fixed allowlist AND the
state machine treats its type as meaningful in the current state; everything
else is dropped with no observable effect. Terminal events (success, error,
cancel) fire at most once per session -- the first terminal trigger wins,
including races between user dismissal and a just-in-time success.

State machine:

	idle -> opening -> ready -> authenticating -> closing -> closed

Entering closed always releases the frame, the message conduit and the
timeout timer. Listener registrations survive, so the same Bridge can run a
subsequent SignIn.
*/
package bridge
