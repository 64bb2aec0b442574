package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
)

// Reader runs queries against an index written by SQLiteIndex.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

type AuditQuery struct {
	Action    string
	AnchorID  string
	SinceTick uint64
	Limit     int
}

type AuditRow struct {
	Tick        uint64
	Seq         int
	RegionID    string
	Action      string
	AnchorID    string
	StructureID string
	Pos         [3]int
	Satellites  int
}

// Audits returns matching audit rows, newest first.
func (r *Reader) Audits(ctx context.Context, q AuditQuery) ([]AuditRow, error) {
	var (
		where []string
		args  []any
	)
	if q.Action != "" {
		where = append(where, "action = ?")
		args = append(args, q.Action)
	}
	if q.AnchorID != "" {
		where = append(where, "anchor_id = ?")
		args = append(args, q.AnchorID)
	}
	if q.SinceTick > 0 {
		where = append(where, "tick >= ?")
		args = append(args, int64(q.SinceTick))
	}
	query := `SELECT tick,seq,region_id,action,anchor_id,structure_id,x,y,z,satellites FROM audits`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY tick DESC, seq DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var (
			a    AuditRow
			tick int64
		)
		if err := rows.Scan(&tick, &a.Seq, &a.RegionID, &a.Action, &a.AnchorID, &a.StructureID, &a.Pos[0], &a.Pos[1], &a.Pos[2], &a.Satellites); err != nil {
			return nil, err
		}
		a.Tick = uint64(tick)
		out = append(out, a)
	}
	return out, rows.Err()
}

type ResourceRow struct {
	Tick        uint64
	Item        string
	Base        int
	Probability int
}

// LatestResources returns the most recently built resource table.
func (r *Reader) LatestResources(ctx context.Context) ([]ResourceRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT rr.tick, rr.item, rr.base, rr.probability
		FROM resource_rows rr
		JOIN (SELECT tick, seq FROM resource_rows ORDER BY tick DESC, seq DESC LIMIT 1) last
		  ON rr.tick = last.tick AND rr.seq = last.seq
		ORDER BY rr.rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResourceRow
	for rows.Next() {
		var (
			rr   ResourceRow
			tick int64
		)
		if err := rows.Scan(&tick, &rr.Item, &rr.Base, &rr.Probability); err != nil {
			return nil, err
		}
		rr.Tick = uint64(tick)
		out = append(out, rr)
	}
	return out, rows.Err()
}

type SnapshotRow struct {
	Tick       uint64
	RegionID   string
	Path       string
	Structures int
	AnchorID   string
	RockTypes  []string
}

// Snapshots lists recorded snapshots, newest first.
func (r *Reader) Snapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT tick,region_id,path,structures,anchor_id,rock_types FROM snapshots ORDER BY tick DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var (
			s     SnapshotRow
			tick  int64
			rocks string
		)
		if err := rows.Scan(&tick, &s.RegionID, &s.Path, &s.Structures, &s.AnchorID, &rocks); err != nil {
			return nil, err
		}
		s.Tick = uint64(tick)
		if rocks != "" {
			s.RockTypes = strings.Split(rocks, ",")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
