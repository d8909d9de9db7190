package models

// PoseLandmarkCount is the size of a pose frame (MediaPipe pose topology).
const PoseLandmarkCount = 33

// Landmark is one keypoint of a pose frame. Coordinates are fractions of
// the source frame; Visibility is nil when the estimator does not report it.
type Landmark struct {
	X          float64  `json:"x" msgpack:"x"`
	Y          float64  `json:"y" msgpack:"y"`
	Z          float64  `json:"z" msgpack:"z"`
	Visibility *float64 `json:"visibility,omitempty" msgpack:"visibility,omitempty"`
}

// LandmarkFrame is one frame of landmarks, overwritten on every callback.
type LandmarkFrame []Landmark

// FrameResults is what the capture loop delivers per frame.
// Width and Height are the intrinsic pixel dimensions of the source frame.
type FrameResults struct {
	Landmarks LandmarkFrame `json:"landmarks,omitempty" msgpack:"landmarks,omitempty"`
	Width     int           `json:"width" msgpack:"width"`
	Height    int           `json:"height" msgpack:"height"`
	Timestamp int64         `json:"timestamp,omitempty" msgpack:"timestamp,omitempty"` // Unix ms
}
