// Codec for the UDP wire format spoken by robots
package telemetry

import (
	"encoding/json"
	"fmt"
)

// DecodeError reports a datagram that could not be turned into a RobotStatus.
// The receive loop drops the datagram and keeps running.
type DecodeError struct {
	Cause   string
	Payload string // leading bytes of the offending datagram
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: %s (payload %q)", e.Cause, e.Payload)
}

const payloadPreviewLen = 120

func newDecodeError(cause string, data []byte) *DecodeError {
	p := string(data)
	if len(p) > payloadPreviewLen {
		p = p[:payloadPreviewLen]
	}
	return &DecodeError{Cause: cause, Payload: p}
}

// wireStatus mirrors the JSON layout on the wire. Pose and ball sit under a
// nested "robot" object there; RobotStatus flattens them. Pointer fields mark
// optional strings whose default is not the zero value.
type wireStatus struct {
	RobotID   *int    `json:"robot_id"`
	RobotName string  `json:"robot_name"`
	TeamID    *int    `json:"team_id"`
	Timestamp float64 `json:"timestamp"`

	Game *struct {
		State       *string `json:"state"`
		KickoffSide bool    `json:"kickoff_side"`
		Score       int     `json:"score"`
	} `json:"game"`

	Robot *struct {
		Pose *Pose     `json:"pose"`
		Ball *BallInfo `json:"ball"`
	} `json:"robot"`

	Collaboration *struct {
		Role             *string `json:"role"`
		DynamicRole      *int    `json:"dynamic_role"`
		HasPossession    bool    `json:"has_possession"`
		PossessionPlayer *int    `json:"possession_player"`
		BallCost         float64 `json:"ball_cost"`
	} `json:"collaboration"`

	Behavior *struct {
		Decision          *string `json:"decision"`
		BallLocationKnown bool    `json:"ball_location_known"`
	} `json:"behavior"`

	Performance *Performance `json:"performance"`
	Head        *HeadInfo    `json:"head"`
	Recovery    *Recovery    `json:"recovery"`
	TeamCount   int          `json:"team_count"`
}

// Decode parses one datagram payload into a RobotStatus. The identifier is
// the only required field; every nested bundle defaults independently, so a
// partial or older-format payload still decodes. Unknown keys are ignored.
func Decode(data []byte) (RobotStatus, error) {
	var w wireStatus
	if err := json.Unmarshal(data, &w); err != nil {
		return RobotStatus{}, newDecodeError(err.Error(), data)
	}
	if w.RobotID == nil {
		return RobotStatus{}, newDecodeError("missing robot_id", data)
	}

	s := RobotStatus{
		RobotID:   *w.RobotID,
		RobotName: w.RobotName,
		TeamID:    -1,
		Timestamp: w.Timestamp,
		Game:      GameInfo{State: GameStateUnknown},
		Collaboration: Collaboration{
			Role:             DefaultRole,
			DynamicRole:      -1,
			PossessionPlayer: -1,
		},
		Behavior:  Behavior{Decision: DefaultDecision},
		TeamCount: w.TeamCount,
	}
	if s.RobotName == "" {
		s.RobotName = fmt.Sprintf("robot%d", s.RobotID)
	}
	if w.TeamID != nil {
		s.TeamID = *w.TeamID
	}
	if g := w.Game; g != nil {
		if g.State != nil {
			s.Game.State = *g.State
		}
		s.Game.KickoffSide = g.KickoffSide
		s.Game.Score = g.Score
	}
	if r := w.Robot; r != nil {
		if r.Pose != nil {
			s.Pose = *r.Pose
		}
		if r.Ball != nil {
			s.Ball = *r.Ball
		}
	}
	if c := w.Collaboration; c != nil {
		if c.Role != nil {
			s.Collaboration.Role = *c.Role
		}
		if c.DynamicRole != nil {
			s.Collaboration.DynamicRole = *c.DynamicRole
		}
		s.Collaboration.HasPossession = c.HasPossession
		if c.PossessionPlayer != nil {
			s.Collaboration.PossessionPlayer = *c.PossessionPlayer
		}
		s.Collaboration.BallCost = c.BallCost
	}
	if b := w.Behavior; b != nil {
		if b.Decision != nil {
			s.Behavior.Decision = *b.Decision
		}
		s.Behavior.BallLocationKnown = b.BallLocationKnown
	}
	if w.Performance != nil {
		s.Performance = *w.Performance
	}
	if w.Head != nil {
		s.Head = *w.Head
	}
	if w.Recovery != nil {
		s.Recovery = *w.Recovery
	}
	return s, nil
}

// Encode renders a RobotStatus back into the wire layout. Used by the robot
// simulator; the dashboard itself only decodes.
func Encode(s RobotStatus) ([]byte, error) {
	type wirePose struct {
		Pose Pose     `json:"pose"`
		Ball BallInfo `json:"ball"`
	}
	return json.Marshal(struct {
		RobotID       int           `json:"robot_id"`
		RobotName     string        `json:"robot_name"`
		TeamID        int           `json:"team_id"`
		Timestamp     float64       `json:"timestamp"`
		Game          GameInfo      `json:"game"`
		Robot         wirePose      `json:"robot"`
		Collaboration Collaboration `json:"collaboration"`
		Behavior      Behavior      `json:"behavior"`
		Performance   Performance   `json:"performance"`
		Head          HeadInfo      `json:"head"`
		Recovery      Recovery      `json:"recovery"`
		TeamCount     int           `json:"team_count"`
	}{
		RobotID:       s.RobotID,
		RobotName:     s.RobotName,
		TeamID:        s.TeamID,
		Timestamp:     s.Timestamp,
		Game:          s.Game,
		Robot:         wirePose{Pose: s.Pose, Ball: s.Ball},
		Collaboration: s.Collaboration,
		Behavior:      s.Behavior,
		Performance:   s.Performance,
		Head:          s.Head,
		Recovery:      s.Recovery,
		TeamCount:     s.TeamCount,
	})
}
