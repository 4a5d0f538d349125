package simulation

const (
	DefaultGravity        = 980
	DefaultGroundFriction = 8
	DefaultAirFriction    = 0.5
	DefaultFloorHeight    = 0
	DefaultCeilingHeight  = 100000

	DefaultBodyWidth  = 68
	DefaultBodyHeight = 176

	// GroundEpsilon is the distance above the floor a body is still considered on ground.
	GroundEpsilon = 0.01
)
