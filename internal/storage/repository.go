package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/labstack/gommon/log"
	"github.com/marcboeker/go-duckdb"

	"github.com/biomech-visualizer/backend/internal/models"
)

// Repository is the persistence collaborator. Saves replace the whole
// snapshot of an owner.
type Repository interface {
	SavePoints(ctx context.Context, patientID string, points []models.PainPoint) error
	LoadPoints(ctx context.Context, patientID string) ([]models.PainPoint, error)
	SaveAnnotations(ctx context.Context, imageID string, annotations []models.Annotation) error
	LoadAnnotations(ctx context.Context, imageID string) ([]models.Annotation, error)
	Close() error
}

var _ Repository = (*DuckRepository)(nil)

// DuckRepository stores snapshots in a DuckDB file.
type DuckRepository struct {
	db     *sql.DB
	dbPath string
}

var schema = []string{`
CREATE TABLE IF NOT EXISTS pain_points (
	patient_id   VARCHAR NOT NULL,
	position     INTEGER NOT NULL,
	id           VARCHAR NOT NULL,
	x            DOUBLE NOT NULL,
	y            DOUBLE NOT NULL,
	angle        DOUBLE NOT NULL,
	intensity    INTEGER NOT NULL,
	pain_type    VARCHAR NOT NULL,
	muscle_group VARCHAR,
	notes        VARCHAR,
	agravantes   VARCHAR,
	aliviantes   VARCHAR
)`, `
CREATE TABLE IF NOT EXISTS annotations (
	image_id VARCHAR NOT NULL,
	position INTEGER NOT NULL,
	id       VARCHAR NOT NULL,
	kind     VARCHAR NOT NULL,
	points   VARCHAR NOT NULL,
	color    VARCHAR,
	value    DOUBLE
)`,
}

// NewDuckRepository opens (or creates) the database at dbPath. An empty
// path opens an in-memory database.
func NewDuckRepository(dbPath string) (*DuckRepository, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	log.Infof("[Repository] Opening database at: %q", dbPath)

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				log.Warnf("[Repository] Pragma warning: %v", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return &DuckRepository{db: db, dbPath: dbPath}, nil
}

// SavePoints replaces every stored point of patientID.
func (r *DuckRepository) SavePoints(ctx context.Context, patientID string, points []models.PainPoint) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pain_points WHERE patient_id = ?`, patientID); err != nil {
		return fmt.Errorf("clearing points: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pain_points
			(patient_id, position, id, x, y, angle, intensity, pain_type, muscle_group, notes, agravantes, aliviantes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range points {
		agravantes, err := encodeList(p.Agravantes)
		if err != nil {
			return err
		}
		aliviantes, err := encodeList(p.Aliviantes)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, patientID, i, p.ID, p.X, p.Y, p.Angle, p.Intensity,
			string(p.Type), p.MuscleGroup, p.Notes, agravantes, aliviantes); err != nil {
			return fmt.Errorf("inserting point %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// LoadPoints returns the stored points of patientID in their saved order.
// A patient without points yields an empty slice.
func (r *DuckRepository) LoadPoints(ctx context.Context, patientID string) ([]models.PainPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, x, y, angle, intensity, pain_type, muscle_group, notes, agravantes, aliviantes
		FROM pain_points WHERE patient_id = ? ORDER BY position`, patientID)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}
	defer rows.Close()

	points := []models.PainPoint{}
	for rows.Next() {
		var (
			p                      models.PainPoint
			painType               string
			muscle, notes          sql.NullString
			agravantes, aliviantes sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.X, &p.Y, &p.Angle, &p.Intensity, &painType,
			&muscle, &notes, &agravantes, &aliviantes); err != nil {
			return nil, fmt.Errorf("scanning point: %w", err)
		}
		p.Type = models.PainType(painType)
		p.MuscleGroup = muscle.String
		p.Notes = notes.String
		if p.Agravantes, err = decodeList(agravantes); err != nil {
			return nil, err
		}
		if p.Aliviantes, err = decodeList(aliviantes); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// SaveAnnotations replaces every stored annotation of imageID.
func (r *DuckRepository) SaveAnnotations(ctx context.Context, imageID string, annotations []models.Annotation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM annotations WHERE image_id = ?`, imageID); err != nil {
		return fmt.Errorf("clearing annotations: %w", err)
	}

	for i, a := range annotations {
		pts, err := json.Marshal(a.Points)
		if err != nil {
			return fmt.Errorf("encoding points: %w", err)
		}
		var value sql.NullFloat64
		if a.Value != nil {
			value = sql.NullFloat64{Float64: *a.Value, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO annotations (image_id, position, id, kind, points, color, value)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			imageID, i, a.ID, string(a.Type), string(pts), a.Color, value); err != nil {
			return fmt.Errorf("inserting annotation %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// LoadAnnotations returns the stored annotations of imageID.
func (r *DuckRepository) LoadAnnotations(ctx context.Context, imageID string) ([]models.Annotation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, points, color, value
		FROM annotations WHERE image_id = ? ORDER BY position`, imageID)
	if err != nil {
		return nil, fmt.Errorf("querying annotations: %w", err)
	}
	defer rows.Close()

	list := []models.Annotation{}
	for rows.Next() {
		var (
			a     models.Annotation
			kind  string
			pts   string
			color sql.NullString
			value sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &kind, &pts, &color, &value); err != nil {
			return nil, fmt.Errorf("scanning annotation: %w", err)
		}
		a.Type = models.AnnotationType(kind)
		a.Color = color.String
		if err := json.Unmarshal([]byte(pts), &a.Points); err != nil {
			return nil, fmt.Errorf("decoding points of %s: %w", a.ID, err)
		}
		if value.Valid {
			v := value.Float64
			a.Value = &v
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Close releases the database.
func (r *DuckRepository) Close() error {
	log.Infof("[Repository] Closing database at: %q", r.dbPath)
	return r.db.Close()
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encoding list: %w", err)
	}
	return string(data), nil
}

func decodeList(s sql.NullString) ([]string, error) {
	out := []string{}
	if !s.Valid || s.String == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, fmt.Errorf("decoding list: %w", err)
	}
	return out, nil
}
