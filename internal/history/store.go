// Package history keeps the successive descriptors of named artifacts in a
// SQLite database. Each recorded value is assigned to the latest descriptor,
// so an artifact's schema can only evolve in compatible steps.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/funvibe/dtypes/internal/typesystem"
)

const driverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS versions (
	id         TEXT PRIMARY KEY,
	artifact   TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	descriptor TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE(artifact, seq)
)`

// ErrNotFound is returned when an artifact has no recorded version.
var ErrNotFound = errors.New("no versions recorded")

// IncompatibleError is returned by Record when the incoming descriptor
// cannot be assigned to the latest recorded one.
type IncompatibleError struct {
	Artifact string
	Latest   typesystem.Type
	Incoming typesystem.Type
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("artifact %q: %s is not assignable to %s", e.Artifact, e.Incoming, e.Latest)
}

// ArtifactRef is the artifact context descriptors are encoded and decoded with.
type ArtifactRef struct {
	Name string
	Seq  int
}

// Version is one recorded descriptor of an artifact.
type Version struct {
	ID        uuid.UUID
	Artifact  string
	Seq       int
	Type      typesystem.Type
	CreatedAt time.Time
}

// Store is a history database. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger log.Logger
	now    func() time.Time

	// serializes read-modify-write in Record
	recordMtx sync.Mutex
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string, logger log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	db, err := sql.Open(driverName, path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrapf(err, "opening history database %s", path)
	}
	// a single connection keeps every statement on the same SQLite handle
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "creating history schema in %s", path)
	}
	level.Debug(logger).Log("msg", "opened history database", "path", path)
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record assigns t to the latest descriptor of artifact and stores the
// result as a new version. The first version stores t as is. When the result
// equals the latest descriptor nothing is written and the latest version is
// returned.
func (s *Store) Record(ctx context.Context, artifact string, t typesystem.Type) (Version, error) {
	s.recordMtx.Lock()
	defer s.recordMtx.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Version{}, errors.Wrap(err, "starting transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	merged, seq := t, 1
	latest, err := latestVersion(ctx, tx, artifact)
	switch {
	case err == nil:
		merged = latest.Type.AssignType(t)
		if typesystem.IsNever(merged) {
			level.Warn(s.logger).Log("msg", "rejected incompatible descriptor", "artifact", artifact, "latest", latest.Seq, "incoming", t)
			return Version{}, &IncompatibleError{Artifact: artifact, Latest: latest.Type, Incoming: t}
		}
		if typesystem.Equal(merged, latest.Type) {
			level.Debug(s.logger).Log("msg", "descriptor unchanged", "artifact", artifact, "seq", latest.Seq)
			return latest, nil
		}
		seq = latest.Seq + 1
	case errors.Is(err, ErrNotFound):
	default:
		return Version{}, err
	}

	v := Version{
		ID:        uuid.New(),
		Artifact:  artifact,
		Seq:       seq,
		Type:      merged,
		CreatedAt: s.now().UTC(),
	}
	data, err := typesystem.Marshal(merged, &ArtifactRef{Name: artifact, Seq: seq})
	if err != nil {
		return Version{}, errors.Wrapf(err, "encoding descriptor of %s", artifact)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO versions (id, artifact, seq, descriptor, created_at) VALUES (?, ?, ?, ?, ?)`,
		v.ID.String(), artifact, seq, string(data), v.CreatedAt.UnixNano())
	if err != nil {
		return Version{}, errors.Wrapf(err, "inserting version %d of %s", seq, artifact)
	}
	if err := tx.Commit(); err != nil {
		return Version{}, errors.Wrap(err, "committing version")
	}

	level.Info(s.logger).Log("msg", "recorded descriptor version", "artifact", artifact, "seq", seq, "id", v.ID)
	return v, nil
}

// Latest returns the most recent version of artifact, or ErrNotFound.
func (s *Store) Latest(ctx context.Context, artifact string) (Version, error) {
	return latestVersion(ctx, s.db, artifact)
}

// History returns every version of artifact ordered by sequence number,
// or ErrNotFound.
func (s *Store) History(ctx context.Context, artifact string) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seq, descriptor, created_at FROM versions WHERE artifact = ? ORDER BY seq`, artifact)
	if err != nil {
		return nil, errors.Wrapf(err, "querying history of %s", artifact)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		v, err := scanVersion(rows, artifact)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading history of %s", artifact)
	}
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	return versions, nil
}

// Artifacts lists the names of every artifact with at least one version.
func (s *Store) Artifacts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT artifact FROM versions ORDER BY artifact`)
	if err != nil {
		return nil, errors.Wrap(err, "listing artifacts")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "listing artifacts")
		}
		names = append(names, name)
	}
	return names, errors.Wrap(rows.Err(), "listing artifacts")
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func latestVersion(ctx context.Context, q queryer, artifact string) (Version, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, seq, descriptor, created_at FROM versions WHERE artifact = ? ORDER BY seq DESC LIMIT 1`, artifact)
	v, err := scanVersion(row, artifact)
	if errors.Is(err, sql.ErrNoRows) {
		return Version{}, ErrNotFound
	}
	return v, err
}

func scanVersion(row scanner, artifact string) (Version, error) {
	var (
		id         string
		descriptor string
		createdAt  int64
		v          = Version{Artifact: artifact}
	)
	if err := row.Scan(&id, &v.Seq, &descriptor, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Version{}, err
		}
		return Version{}, errors.Wrapf(err, "reading version of %s", artifact)
	}

	var err error
	if v.ID, err = uuid.Parse(id); err != nil {
		return Version{}, errors.Wrapf(err, "version %d of %s", v.Seq, artifact)
	}
	v.Type, err = typesystem.Unmarshal([]byte(descriptor), &ArtifactRef{Name: artifact, Seq: v.Seq})
	if err != nil {
		return Version{}, errors.Wrapf(err, "decoding version %d of %s", v.Seq, artifact)
	}
	v.CreatedAt = time.Unix(0, createdAt).UTC()
	return v, nil
}
