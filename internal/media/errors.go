package media

import "fmt"

// UnreadableAudioError means a narration artifact could not be probed for
// its duration. Every downstream stage times itself from that duration, so
// the run cannot continue.
type UnreadableAudioError struct {
	Path string
	Err  error
}

func (e *UnreadableAudioError) Error() string {
	return fmt.Sprintf("unreadable audio %s: %v", e.Path, e.Err)
}

func (e *UnreadableAudioError) Unwrap() error { return e.Err }

// DurationMismatchError reports assembled output drifting from its expected
// length beyond one frame period. It is raised before the final mux is
// published, never after.
type DurationMismatchError struct {
	Stage     string
	Want      float64
	Got       float64
	Tolerance float64
}

func (e *DurationMismatchError) Error() string {
	return fmt.Sprintf("%s duration %.3fs, expected %.3fs (tolerance %.4fs)",
		e.Stage, e.Got, e.Want, e.Tolerance)
}
