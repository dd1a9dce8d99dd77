package wizard

type directiveKind int

const (
	dirContinue directiveKind = iota
	dirStay
	dirJump
	dirBack
	dirEnter
	dirLeave
)

// Directive is a step handler's instruction for how the session moves next.
// Values are built through the constructor functions below.
type Directive struct {
	kind    directiveKind
	target  StepID
	scene   SceneID
	payload map[string]any
}

// Continue advances the session to the next step in the scene.
func Continue() Directive {
	return Directive{kind: dirContinue}
}

// Stay keeps the session on the current step so the same handler is invoked
// again on the next event. Used for validation failures; it must be safe to
// return any number of times.
func Stay() Directive {
	return Directive{kind: dirStay}
}

// JumpTo moves the session to the named step within the current scene.
func JumpTo(step StepID) Directive {
	return Directive{kind: dirJump, target: step}
}

// Back moves the session to the previous step.
func Back() Directive {
	return Directive{kind: dirBack}
}

// EnterScene leaves the current scene and starts another one at step 0.
// The prior state bag is discarded; payload, if non-nil, seeds the new
// scene's bag under the reserved forwarded-payload key.
func EnterScene(scene SceneID, payload map[string]any) Directive {
	return Directive{kind: dirEnter, scene: scene, payload: payload}
}

// Leave terminates the flow and clears the session.
func Leave() Directive {
	return Directive{kind: dirLeave}
}

func (d Directive) String() string {
	switch d.kind {
	case dirContinue:
		return "continue"
	case dirStay:
		return "stay"
	case dirJump:
		return "jump:" + string(d.target)
	case dirBack:
		return "back"
	case dirEnter:
		return "enter:" + string(d.scene)
	case dirLeave:
		return "leave"
	}
	return "unknown"
}
