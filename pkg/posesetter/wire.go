package posesetter

// Message shapes of geometry_msgs as rosbridge encodes them.

type stamp struct {
	Secs  uint32 `json:"secs"`
	Nsecs uint32 `json:"nsecs"`
}

type header struct {
	Seq     uint32 `json:"seq"`
	Stamp   stamp  `json:"stamp"`
	FrameID string `json:"frame_id"`
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

type pose struct {
	Position    point      `json:"position"`
	Orientation quaternion `json:"orientation"`
}

type poseStamped struct {
	Header header `json:"header"`
	Pose   pose   `json:"pose"`
}

type poseWithCovariance struct {
	Pose       pose        `json:"pose"`
	Covariance [36]float64 `json:"covariance"`
}

type poseWithCovarianceStamped struct {
	Header header             `json:"header"`
	Pose   poseWithCovariance `json:"pose"`
}

// defaultCovariance is the uncertainty rviz attaches to a hand placed
// initial pose: 0.5m in x and y, about 15 degrees in yaw.
var defaultCovariance = [36]float64{
	0:  0.25,
	7:  0.25,
	35: 0.06853891945200942,
}
