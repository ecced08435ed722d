// Simulated robot behavior model
package sim

import (
	"math"
	"math/rand"
	"time"

	"robodash/internal/telemetry"
)

// Field bounds in meters, matching the play field the dashboard renders.
const (
	fieldHalfLength = 4.5
	fieldHalfWidth  = 3.0
)

var (
	gameStates = []string{
		telemetry.GameStateInitial,
		telemetry.GameStateReady,
		telemetry.GameStateSet,
		telemetry.GameStatePlay,
		telemetry.GameStateEnd,
	}
	roles     = []string{"master", "slave", "striker", "goalkeeper", "follower"}
	decisions = []string{"search_ball", "approach_ball", "kick_ball", "defend_goal", "position"}
)

// Robot holds the runtime state of one simulated robot.
type Robot struct {
	ID     int
	Name   string
	TeamID int

	poseX, poseY, poseTheta float64
	targetX, targetY        float64
	speed                   float64 // m/s

	gameStateIdx int
	score        int

	ballDetected            bool
	ballX, ballY, ballRange float64

	role          string
	dynamicRole   int
	hasPossession bool
	ballCost      float64

	decision string

	avgLoopTime, maxLoopTime float64
	headPitch, headYaw       float64

	lastTargetChange    time.Duration
	nextTargetChange    time.Duration
	lastGameStateChange time.Duration
	nextGameStateChange time.Duration
	elapsed             time.Duration
}

// newRobot seeds a robot with a random pose and role.
func newRobot(id, teamID int) *Robot {
	r := &Robot{
		ID:     id,
		Name:   newRobotName(id),
		TeamID: teamID,

		poseX:     rand.Float64()*6 - 3,
		poseY:     rand.Float64()*4 - 2,
		poseTheta: rand.Float64() * 2 * math.Pi,
		speed:     0.5,

		role:        roles[rand.Intn(2)], // start as master or slave
		dynamicRole: id,
		ballCost:    0.5 + rand.Float64()*4.5,
		decision:    decisions[rand.Intn(len(decisions))],

		avgLoopTime: 0.008 + rand.Float64()*0.017,
		headPitch:   rand.Float64() - 0.5,
		headYaw:     rand.Float64()*2 - 1,

		nextTargetChange:    randDuration(3, 8),
		nextGameStateChange: randDuration(10, 30),
	}
	r.targetX, r.targetY = r.poseX, r.poseY
	return r
}

func randDuration(minSec, maxSec float64) time.Duration {
	sec := minSec + rand.Float64()*(maxSec-minSec)
	return time.Duration(sec * float64(time.Second))
}

// step advances the robot by dt toward its wander target and updates its
// perception of the shared ball.
func (r *Robot) step(dt time.Duration, ballX, ballY float64) {
	r.elapsed += dt
	dtSec := dt.Seconds()

	dx := r.targetX - r.poseX
	dy := r.targetY - r.poseY
	dist := math.Hypot(dx, dy)
	if dist > 0.1 {
		move := math.Min(r.speed*dtSec, dist)
		r.poseX += dx / dist * move
		r.poseY += dy / dist * move
		r.poseTheta = math.Atan2(dy, dx) + rand.Float64()*0.2 - 0.1
	}
	if r.elapsed-r.lastTargetChange > r.nextTargetChange {
		r.targetX = rand.Float64()*8 - 4
		r.targetY = rand.Float64()*5 - 2.5
		r.lastTargetChange = r.elapsed
		r.nextTargetChange = randDuration(3, 8)
	}

	ballDist := math.Hypot(ballX-r.poseX, ballY-r.poseY)
	detectionRange := 3.0 + rand.Float64() - 0.5
	r.ballDetected = ballDist < detectionRange
	if r.ballDetected {
		r.ballX = ballX + rand.Float64()*0.4 - 0.2
		r.ballY = ballY + rand.Float64()*0.4 - 0.2
		r.ballRange = ballDist + rand.Float64()*0.2 - 0.1
		r.hasPossession = ballDist < 0.5 && rand.Float64() < 0.3
		r.ballCost = ballDist + 0.1 + rand.Float64()*0.4
		angleToBall := math.Atan2(ballY-r.poseY, ballX-r.poseX)
		r.headYaw = angleToBall - r.poseTheta + rand.Float64()*0.2 - 0.1
		r.headPitch = rand.Float64()*0.4 - 0.2
	} else {
		r.hasPossession = false
		r.headYaw = rand.Float64()*2 - 1
		r.headPitch = rand.Float64()*0.6 - 0.3
	}

	if r.elapsed-r.lastGameStateChange > r.nextGameStateChange {
		r.gameStateIdx = (r.gameStateIdx + 1) % len(gameStates)
		r.lastGameStateChange = r.elapsed
		r.nextGameStateChange = randDuration(10, 30)
		if rand.Float64() < 0.1 {
			r.score++
		}
	}

	if rand.Float64() < 0.1 {
		r.decision = decisions[rand.Intn(len(decisions))]
	}

	r.avgLoopTime = 0.015 + rand.Float64()*0.015 - 0.005
	r.maxLoopTime = r.avgLoopTime * (1.2 + rand.Float64()*1.3)

	r.poseX = clamp(r.poseX, -fieldHalfLength, fieldHalfLength)
	r.poseY = clamp(r.poseY, -fieldHalfWidth, fieldHalfWidth)
}

// Status renders the robot's current state as a wire status.
func (r *Robot) Status(now time.Time) telemetry.RobotStatus {
	possession := -1
	if r.hasPossession {
		possession = r.ID
	}
	ballX, ballY, ballRange := 0.0, 0.0, 0.0
	if r.ballDetected {
		ballX, ballY, ballRange = r.ballX, r.ballY, r.ballRange
	}
	return telemetry.RobotStatus{
		RobotID:   r.ID,
		RobotName: r.Name,
		TeamID:    r.TeamID,
		Timestamp: float64(now.UnixNano()) / 1e9,
		Game: telemetry.GameInfo{
			State:       gameStates[r.gameStateIdx],
			KickoffSide: r.ID == 0, // robot 0 gets kickoff
			Score:       r.score,
		},
		Pose: telemetry.Pose{X: r.poseX, Y: r.poseY, Theta: r.poseTheta},
		Ball: telemetry.BallInfo{Detected: r.ballDetected, X: ballX, Y: ballY, Range: ballRange},
		Collaboration: telemetry.Collaboration{
			Role:             r.role,
			DynamicRole:      r.dynamicRole,
			HasPossession:    r.hasPossession,
			PossessionPlayer: possession,
			BallCost:         r.ballCost,
		},
		Behavior: telemetry.Behavior{
			Decision:          r.decision,
			BallLocationKnown: r.ballDetected,
		},
		Performance: telemetry.Performance{AvgLoopTime: r.avgLoopTime, MaxLoopTime: r.maxLoopTime},
		Head:        telemetry.HeadInfo{Pitch: r.headPitch, Yaw: r.headYaw},
		Recovery:    telemetry.Recovery{State: 0, Available: true},
		TeamCount:   2,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
