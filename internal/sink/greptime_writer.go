package sink

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	ingesterContext "github.com/GreptimeTeam/greptimedb-ingester-go/context"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"robodash/internal/telemetry"
)

// GreptimeWriter writes status rows to GreptimeDB via the ingester client
type GreptimeWriter struct {
	client *greptime.Client
	db     string
	table  string
	log    *slog.Logger
}

// NewGreptimeWriter creates a GreptimeDB writer. The table is auto-created on
// first write (with ttl='30d' via a write hint).
func NewGreptimeWriter(endpoint, database string, log *slog.Logger) (*GreptimeWriter, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg := greptime.NewConfig(endpoint).WithDatabase(database)
	if host, port, err := net.SplitHostPort(endpoint); err == nil {
		if p, err := strconv.Atoi(port); err == nil {
			cfg = greptime.NewConfig(host).WithPort(p).WithDatabase(database)
		}
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &GreptimeWriter{
		client: client,
		db:     database,
		table:  telemetry.StatusTableName,
		log:    log,
	}, nil
}

// Write inserts a single status row.
func (w *GreptimeWriter) Write(row telemetry.StatusRow) error {
	return w.WriteBatch([]telemetry.StatusRow{row})
}

// WriteBatch inserts multiple status rows.
func (w *GreptimeWriter) WriteBatch(rows []telemetry.StatusRow) error {
	if len(rows) == 0 {
		return nil
	}

	ctx := ingesterContext.New(context.Background(), ingesterContext.WithHints("ttl=30d"))

	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("robot_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTagColumn("team_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("robot_name", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("game_state", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("pose_x", types.FLOAT64); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("pose_y", types.FLOAT64); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("pose_theta", types.FLOAT64); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("ball_detected", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("role", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("decision", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("avg_loop_time", types.FLOAT64); err != nil {
		return err
	}
	if err := tbl.AddFieldColumn("source", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}

	for _, r := range rows {
		if err := tbl.AddRow(
			strconv.Itoa(r.RobotID),
			strconv.Itoa(r.TeamID),
			r.RobotName,
			r.GameState,
			r.PoseX,
			r.PoseY,
			r.PoseTheta,
			strconv.FormatBool(r.BallDetected),
			r.Role,
			r.Decision,
			r.AvgLoopTime,
			r.Source,
			r.Timestamp,
		); err != nil {
			return err
		}
	}

	if _, err := w.client.Write(ctx, tbl); err != nil {
		w.log.Warn("greptime write failed", "rows", len(rows), "err", err)
		return err
	}
	return nil
}
