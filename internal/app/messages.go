package app

import "time"

// TickMsg triggers a redraw at the target frame rate.
type TickMsg time.Time

// FrameMsg signals that the scheduler published a new reading or frame.
type FrameMsg struct{}

// SourceErrorMsg reports a sample source failure.
type SourceErrorMsg struct {
	Err error
}

// ParamsReloadedMsg carries parameters re-read from the params file.
type ParamsReloadedMsg struct{}
