// Status telemetry structs for robot datagrams
package telemetry

import (
	"os"
	"time"
)

// RobotStatus is one decoded status datagram from a robot. It is immutable
// once decoded; the state table keeps only the most recent value per robot.
type RobotStatus struct {
	RobotID   int     `json:"robot_id"`
	RobotName string  `json:"robot_name"`
	TeamID    int     `json:"team_id"`
	Timestamp float64 `json:"timestamp"` // robot wall clock, informational only

	Game          GameInfo      `json:"game"`
	Pose          Pose          `json:"pose"`
	Ball          BallInfo      `json:"ball"`
	Collaboration Collaboration `json:"collaboration"`
	Behavior      Behavior      `json:"behavior"`
	Performance   Performance   `json:"performance"`
	Head          HeadInfo      `json:"head"`
	Recovery      Recovery      `json:"recovery"`
	TeamCount     int           `json:"team_count"`
}

// GameInfo holds referee/game phase data.
type GameInfo struct {
	State       string `json:"state"`
	KickoffSide bool   `json:"kickoff_side"`
	Score       int    `json:"score"`
}

// Pose is the robot's estimated field position.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// BallInfo holds the robot's ball perception.
type BallInfo struct {
	Detected bool    `json:"detected"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Range    float64 `json:"range"`
}

// Collaboration holds team-play role assignment.
type Collaboration struct {
	Role             string  `json:"role"`
	DynamicRole      int     `json:"dynamic_role"`
	HasPossession    bool    `json:"has_possession"`
	PossessionPlayer int     `json:"possession_player"`
	BallCost         float64 `json:"ball_cost"`
}

// Behavior holds the robot's current decision.
type Behavior struct {
	Decision          string `json:"decision"`
	BallLocationKnown bool   `json:"ball_location_known"`
}

// Performance holds control loop timing counters.
type Performance struct {
	AvgLoopTime float64 `json:"avg_loop_time"`
	MaxLoopTime float64 `json:"max_loop_time"`
}

// HeadInfo holds head joint orientation.
type HeadInfo struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Recovery holds fall-recovery state.
type Recovery struct {
	State     int  `json:"state"`
	Available bool `json:"available"`
}

// Game phase values as reported by robots.
const (
	GameStateUnknown = "UNKNOWN"
	GameStateInitial = "INITIAL"
	GameStateReady   = "READY"
	GameStateSet     = "SET"
	GameStatePlay    = "PLAY"
	GameStateEnd     = "END"
)

// Defaults for optional payload fields.
const (
	DefaultRole     = "unknown"
	DefaultDecision = "unknown"
)

// StatusRow is a flattened per-datagram record for history sinks (GreptimeDB,
// JSONL files, stdout).
type StatusRow struct {
	RobotID      int       `json:"robot_id"`   // TAG
	TeamID       int       `json:"team_id"`    // TAG
	RobotName    string    `json:"robot_name"` // FIELD
	GameState    string    `json:"game_state"` // FIELD
	PoseX        float64   `json:"pose_x"`     // FIELD
	PoseY        float64   `json:"pose_y"`     // FIELD
	PoseTheta    float64   `json:"pose_theta"` // FIELD
	BallDetected bool      `json:"ball_detected"`
	Role         string    `json:"role"`
	Decision     string    `json:"decision"`
	AvgLoopTime  float64   `json:"avg_loop_time"`
	Source       string    `json:"source"` // sender endpoint
	Timestamp    time.Time `json:"ts"`     // TIME INDEX (local receipt clock)
}

// StatusTableName holds the table name used when writing to GreptimeDB.
// It defaults to "robot_status" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var StatusTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "robot_status"
}()

func (StatusRow) TableName() string {
	return StatusTableName
}

// Row flattens a decoded status into a sink row. source is the sender's
// network endpoint, receivedAt the local receipt clock.
func (s RobotStatus) Row(source string, receivedAt time.Time) StatusRow {
	return StatusRow{
		RobotID:      s.RobotID,
		TeamID:       s.TeamID,
		RobotName:    s.RobotName,
		GameState:    s.Game.State,
		PoseX:        s.Pose.X,
		PoseY:        s.Pose.Y,
		PoseTheta:    s.Pose.Theta,
		BallDetected: s.Ball.Detected,
		Role:         s.Collaboration.Role,
		Decision:     s.Behavior.Decision,
		AvgLoopTime:  s.Performance.AvgLoopTime,
		Source:       source,
		Timestamp:    receivedAt,
	}
}
