// Package wizard provides a finite-state conversational flow engine for
// Telegram bots. A scene is a named, ordered list of step handlers; a session
// tracks, per user, which scene and step is active plus a bag of collected
// answers. Step handlers return a transition directive (continue, stay, jump,
// back, enter another scene, leave) and the engine applies it atomically
// against a durable session store. It is intentionally domain-agnostic so it
// can be reused across bots.
package wizard
