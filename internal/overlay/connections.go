package overlay

// Connection joins two landmark indices with a bone.
type Connection [2]int

// PoseConnections is the skeleton topology of the 33-point pose model.
var PoseConnections = []Connection{
	{0, 1}, {1, 2}, {2, 3}, {3, 7}, {0, 4}, {4, 5}, {5, 6}, {6, 8},
	{9, 10},
	{11, 12}, {11, 13}, {13, 15}, {15, 17}, {15, 19}, {15, 21}, {17, 19},
	{12, 14}, {14, 16}, {16, 18}, {16, 20}, {16, 22}, {18, 20},
	{11, 23}, {12, 24}, {23, 24},
	{23, 25}, {24, 26}, {25, 27}, {26, 28},
	{27, 29}, {28, 30}, {29, 31}, {30, 32}, {27, 31}, {28, 32},
}

// Landmark indices used for the default knee metric.
const (
	LeftHip    = 23
	RightHip   = 24
	LeftKnee   = 25
	RightKnee  = 26
	LeftAnkle  = 27
	RightAnkle = 28
)
