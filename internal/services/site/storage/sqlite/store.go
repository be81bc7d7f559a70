package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/sitenav/internal/navigation/topic"
	sqlitemigrate "github.com/louisbranch/sitenav/internal/platform/storage/sqlitemigrate"
	sitestorage "github.com/louisbranch/sitenav/internal/services/site/storage"
	"github.com/louisbranch/sitenav/internal/services/site/storage/sqlite/migrations"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"
)

const tracerName = "github.com/louisbranch/sitenav/internal/services/site/storage/sqlite"

var _ sitestorage.Store = (*Store)(nil)

// Store provides SQLite-backed persistence for site data.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates a site SQLite store.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	applied, err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ".")
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	for _, name := range applied {
		log.Printf("site store migration applied name=%s", name)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready() error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

const topicColumns = `id, parent_id, level, name, description, full_path, rank`

func scanTopic(scanner interface{ Scan(...any) error }) (topic.Topic, error) {
	var node topic.Topic
	err := scanner.Scan(&node.ID, &node.ParentID, &node.Level, &node.Name, &node.Description, &node.FullPath, &node.Rank)
	return node, err
}

// Topic loads one topic by id.
func (s *Store) Topic(ctx context.Context, id int) (topic.Topic, error) {
	if err := s.ready(); err != nil {
		return topic.Topic{}, err
	}
	ctx, span := startSpan(ctx, "store.topic", attribute.Int("topic.id", id))
	defer span.End()

	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = ?`, id)
	node, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return topic.Topic{}, fmt.Errorf("topic %d: %w", id, topic.ErrNotFound)
	}
	if err != nil {
		return topic.Topic{}, fmt.Errorf("get topic %d: %w", id, err)
	}
	return node, nil
}

// TreeView loads the root topic and all of its descendants.
func (s *Store) TreeView(ctx context.Context, rootID int) ([]topic.Topic, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, "store.tree_view", attribute.Int("topic.root_id", rootID))
	defer span.End()

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+topicColumns+` FROM topics
		 WHERE id = ? OR full_path LIKE ?
		 ORDER BY level, rank, id`,
		rootID, "%/"+strconv.Itoa(rootID)+"/%",
	)
	if err != nil {
		return nil, fmt.Errorf("tree view %d: %w", rootID, err)
	}
	defer rows.Close()

	var out []topic.Topic
	for rows.Next() {
		node, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		out = append(out, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("tree view %d: %w", rootID, topic.ErrNotFound)
	}
	return out, nil
}

// PutTopic upserts a topic.
func (s *Store) PutTopic(ctx context.Context, node topic.Topic) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(node.Name) == "" {
		return fmt.Errorf("topic %d name is required", node.ID)
	}
	if strings.TrimSpace(node.FullPath) == "" {
		return fmt.Errorf("topic %d full path is required", node.ID)
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO topics (`+topicColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    parent_id = excluded.parent_id,
		    level = excluded.level,
		    name = excluded.name,
		    description = excluded.description,
		    full_path = excluded.full_path,
		    rank = excluded.rank`,
		node.ID, node.ParentID, node.Level, node.Name, node.Description, node.FullPath, node.Rank,
	)
	if err != nil {
		return fmt.Errorf("put topic %d: %w", node.ID, err)
	}
	return nil
}

// PublicationsByTopic lists the publications attached to a topic.
func (s *Store) PublicationsByTopic(ctx context.Context, topicID int) ([]topic.Publication, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, "store.publications_by_topic", attribute.Int("topic.id", topicID))
	defer span.End()

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, topic_id, component_id, title FROM publications WHERE topic_id = ? ORDER BY id`,
		topicID,
	)
	if err != nil {
		return nil, fmt.Errorf("list publications of topic %d: %w", topicID, err)
	}
	defer rows.Close()

	var out []topic.Publication
	for rows.Next() {
		var publication topic.Publication
		if err := rows.Scan(&publication.ID, &publication.TopicID, &publication.ComponentID, &publication.Title); err != nil {
			return nil, fmt.Errorf("scan publication: %w", err)
		}
		out = append(out, publication)
	}
	return out, rows.Err()
}

// PutPublication upserts a publication.
func (s *Store) PutPublication(ctx context.Context, publication topic.Publication) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(publication.ComponentID) == "" {
		return fmt.Errorf("publication %d component id is required", publication.ID)
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO publications (id, topic_id, component_id, title) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		    topic_id = excluded.topic_id,
		    component_id = excluded.component_id,
		    title = excluded.title`,
		publication.ID, publication.TopicID, publication.ComponentID, publication.Title,
	)
	if err != nil {
		return fmt.Errorf("put publication %d: %w", publication.ID, err)
	}
	return nil
}

// ValuesOnAxis lists the classification values of a publication on one axis.
func (s *Store) ValuesOnAxis(ctx context.Context, publication topic.Publication, axisID string) ([]topic.AxisValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, "store.values_on_axis",
		attribute.Int("publication.id", publication.ID),
		attribute.String("axis.id", axisID),
	)
	defer span.End()

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT axis_id, value_name FROM classification_values
		 WHERE publication_id = ? AND component_id = ? AND axis_id = ?
		 ORDER BY value_name`,
		publication.ID, publication.ComponentID, axisID,
	)
	if err != nil {
		return nil, fmt.Errorf("values on axis %s: %w", axisID, err)
	}
	defer rows.Close()

	var out []topic.AxisValue
	for rows.Next() {
		var value topic.AxisValue
		if err := rows.Scan(&value.AxisID, &value.Name); err != nil {
			return nil, fmt.Errorf("scan axis value: %w", err)
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

// PutAxisValue records a classification value for a publication.
func (s *Store) PutAxisValue(ctx context.Context, publication topic.Publication, value topic.AxisValue) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(value.AxisID) == "" || strings.TrimSpace(value.Name) == "" {
		return fmt.Errorf("axis id and value are required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO classification_values (publication_id, component_id, axis_id, value_name)
		 VALUES (?, ?, ?, ?)`,
		publication.ID, publication.ComponentID, value.AxisID, value.Name,
	)
	if err != nil {
		return fmt.Errorf("put axis value: %w", err)
	}
	return nil
}

// LoadSessionAttribute loads one session attribute payload.
func (s *Store) LoadSessionAttribute(ctx context.Context, sessionID, name string) ([]byte, bool, error) {
	if err := s.ready(); err != nil {
		return nil, false, err
	}
	var payload []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT payload_json FROM session_attributes WHERE session_id = ? AND name = ?`,
		strings.TrimSpace(sessionID), strings.TrimSpace(name),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session attribute: %w", err)
	}
	return payload, true, nil
}

// SaveSessionAttribute upserts one session attribute payload.
func (s *Store) SaveSessionAttribute(ctx context.Context, sessionID, name string, payload []byte) error {
	if err := s.ready(); err != nil {
		return err
	}
	sessionID = strings.TrimSpace(sessionID)
	name = strings.TrimSpace(name)
	if sessionID == "" || name == "" {
		return fmt.Errorf("session id and attribute name are required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO session_attributes (session_id, name, payload_json, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, name) DO UPDATE SET
		    payload_json = excluded.payload_json,
		    updated_at = excluded.updated_at`,
		sessionID, name, payload, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save session attribute: %w", err)
	}
	return nil
}
