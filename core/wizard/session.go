package wizard

import "encoding/json"

// PayloadKey is the reserved bag key holding the payload forwarded by an
// EnterScene directive. Scenes read it through Flow.Payload rather than
// touching the bag directly.
const PayloadKey = "_forwarded"

// Session is the durable per-user record of the active scene, step cursor,
// and accumulated answers. Invariant while active: 0 <= Step < len(steps).
// The bag is reset on every scene entry and cleared on leave.
type Session struct {
	UserID int64          `json:"user_id" db:"user_id"`
	Scene  SceneID        `json:"scene" db:"scene"`
	Step   int            `json:"step" db:"step"`
	Bag    map[string]any `json:"bag"`
}

func newSession(userID int64, scene SceneID, payload map[string]any) *Session {
	bag := make(map[string]any)
	if len(payload) > 0 {
		bag[PayloadKey] = payload
	}
	return &Session{UserID: userID, Scene: scene, Bag: bag}
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Bag = make(map[string]any, len(s.Bag))
	for k, v := range s.Bag {
		cp.Bag[k] = v
	}
	return &cp
}

// Flow is the view of the active session handed to step handlers. It wraps
// the mutable state bag with typed accessors so handlers survive the
// JSON round-trip durable stores apply to bag values.
type Flow struct {
	sess *Session
}

// UserID returns the owning user's identifier.
func (f *Flow) UserID() int64 { return f.sess.UserID }

// SceneID returns the active scene identifier.
func (f *Flow) SceneID() SceneID { return f.sess.Scene }

// Set stores a value in the state bag.
func (f *Flow) Set(key string, value any) {
	f.sess.Bag[key] = value
}

// Delete removes a key from the state bag.
func (f *Flow) Delete(key string) {
	delete(f.sess.Bag, key)
}

// Value retrieves a raw bag value.
func (f *Flow) Value(key string) (any, bool) {
	v, ok := f.sess.Bag[key]
	return v, ok
}

// StringValue retrieves a bag value as string.
func (f *Flow) StringValue(key string) (string, bool) {
	v, ok := f.sess.Bag[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int64Value retrieves a bag value as int64, tolerating the numeric types
// JSON decoding produces.
func (f *Flow) Int64Value(key string) (int64, bool) {
	v, ok := f.sess.Bag[key]
	if !ok {
		return 0, false
	}
	return asInt64(v)
}

// BoolValue retrieves a bag value as bool.
func (f *Flow) BoolValue(key string) (bool, bool) {
	v, ok := f.sess.Bag[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Payload returns the payload forwarded by the EnterScene directive that
// started this scene, or nil if the scene was entered without one.
func (f *Flow) Payload() map[string]any {
	v, ok := f.sess.Bag[PayloadKey]
	if !ok {
		return nil
	}
	switch p := v.(type) {
	case map[string]any:
		return p
	}
	return nil
}

// PayloadString reads a string field from the forwarded payload.
func (f *Flow) PayloadString(key string) (string, bool) {
	p := f.Payload()
	if p == nil {
		return "", false
	}
	s, ok := p[key].(string)
	return s, ok
}

// PayloadInt64 reads an integer field from the forwarded payload.
func (f *Flow) PayloadInt64(key string) (int64, bool) {
	p := f.Payload()
	if p == nil {
		return 0, false
	}
	return asInt64(p[key])
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
