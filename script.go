package linden

import (
	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
)

// ErrInvalidScript is the cause of every input script validation failure.
var ErrInvalidScript = errors.New("invalid input script")

// scriptStep is one action of an input script.
type scriptStep struct {
	Action string  `toml:"action"`
	X      float64 `toml:"x"`
	Y      float64 `toml:"y"`
	FromX  float64 `toml:"from-x"`
	FromY  float64 `toml:"from-y"`
	ToX    float64 `toml:"to-x"`
	ToY    float64 `toml:"to-y"`
	Frames int     `toml:"frames"`
}

type scriptFile struct {
	Steps []scriptStep `toml:"step"`
}

// InputScript sequences injected pointer input across frames, for
// automated testing and demos. A script is a TOML document of [[step]]
// tables:
//
//	[[step]]
//	action = "click"
//	x = 120
//	y = 80
//
//	[[step]]
//	action = "wait"
//	frames = 10
//
// Actions are click, press, move, release (x, y), drag (from-x, from-y,
// to-x, to-y, frames) and wait (frames).
type InputScript struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// DecodeInputScript parses a TOML input script.
func DecodeInputScript(data string) (*InputScript, error) {
	var f scriptFile
	md, err := toml.Decode(data, &f)
	if err != nil {
		return nil, errors.Annotate(err, "decode input script")
	}
	return newInputScript(f, md)
}

// LoadInputScript reads a TOML input script from path.
func LoadInputScript(path string) (*InputScript, error) {
	var f scriptFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, errors.Annotatef(err, "load input script %s", path)
	}
	return newInputScript(f, md)
}

func newInputScript(f scriptFile, md toml.MetaData) (*InputScript, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Annotatef(ErrInvalidScript, "unknown keys %v", undecoded)
	}
	if len(f.Steps) == 0 {
		return nil, errors.Annotate(ErrInvalidScript, "no steps")
	}
	for i, st := range f.Steps {
		switch st.Action {
		case "click", "press", "move", "release", "drag", "wait":
		default:
			return nil, errors.Annotatef(ErrInvalidScript, "step %d: unknown action %q", i, st.Action)
		}
		if st.Frames < 0 {
			return nil, errors.Annotatef(ErrInvalidScript, "step %d: negative frames %d", i, st.Frames)
		}
	}
	return &InputScript{steps: f.Steps}, nil
}

// Done reports whether every step has run and its input was consumed.
func (r *InputScript) Done() bool {
	return r.done
}

// step advances the script by one frame. Called from Scene.Update before
// input processing.
func (r *InputScript) step(s *Scene) {
	if r.done {
		return
	}
	if len(s.injectQueue) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "click":
		s.InjectClick(st.X, st.Y)
	case "press":
		s.InjectPress(st.X, st.Y)
	case "move":
		s.InjectMove(st.X, st.Y)
	case "release":
		s.InjectRelease(st.X, st.Y)
	case "drag":
		s.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1
		}
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(s.injectQueue) == 0 {
		r.done = true
	}
}
