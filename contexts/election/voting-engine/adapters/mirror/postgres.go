package mirror

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Migrate creates the secondary schema. It must run against a database of
// its own: the table names overlap with the primary schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&remoteUser{}, &remoteStudent{}, &remoteCandidate{}, &remoteVote{})
}

type remoteUser struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex:idx_mirror_users_email"`
	HasVoted  bool      `gorm:"column:has_voted;not null"`
	IsAdmin   bool      `gorm:"column:is_admin;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (remoteUser) TableName() string { return ports.RemoteTableVoters }

type remoteStudent struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Email        string    `gorm:"column:email;not null;uniqueIndex:idx_mirror_students_email"`
	StudentID    string    `gorm:"column:student_id"`
	Name         string    `gorm:"column:name"`
	Department   string    `gorm:"column:department"`
	IsRegistered bool      `gorm:"column:is_registered;not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (remoteStudent) TableName() string { return ports.RemoteTableStudents }

type remoteCandidate struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:idx_mirror_candidates_name_position,priority:1"`
	Position  string    `gorm:"column:position;not null;uniqueIndex:idx_mirror_candidates_name_position,priority:2"`
	ImageURL  string    `gorm:"column:image_url"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (remoteCandidate) TableName() string { return ports.RemoteTableCandidates }

type remoteVote struct {
	ID          string    `gorm:"column:id;primaryKey"`
	UserID      string    `gorm:"column:user_id;not null;uniqueIndex:idx_mirror_votes_user_id"`
	CandidateID string    `gorm:"column:candidate_id;not null;index:idx_mirror_votes_candidate_id"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (remoteVote) TableName() string { return ports.RemoteTableBallots }

var remoteTables = map[string]struct{}{
	ports.RemoteTableVoters:     {},
	ports.RemoteTableStudents:   {},
	ports.RemoteTableCandidates: {},
	ports.RemoteTableBallots:    {},
}

// PostgresRemote mirrors rows into a second SQL database through gorm.
type PostgresRemote struct {
	db *gorm.DB
}

func NewPostgresRemote(db *gorm.DB) *PostgresRemote {
	return &PostgresRemote{db: db}
}

func (r *PostgresRemote) Insert(ctx context.Context, row ports.RemoteRow) (string, error) {
	if err := checkTable(row.Table); err != nil {
		return "", err
	}
	id := uuid.NewString()
	values := make(map[string]any, len(row.Fields)+1)
	for column, value := range row.Fields {
		values[column] = value
	}
	values["id"] = id
	if err := r.db.WithContext(ctx).Table(row.Table).Create(values).Error; err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("remote %s: %w", row.Table, ports.ErrDuplicate)
		}
		return "", fmt.Errorf("remote %s insert: %w", row.Table, err)
	}
	return id, nil
}

func (r *PostgresRemote) Update(ctx context.Context, table string, remoteID string, fields map[string]any) error {
	if err := checkTable(table); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Table(table).Where("id = ?", remoteID).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("remote %s update: %w", table, result.Error)
	}
	if result.RowsAffected == 0 {
		return ports.ErrRemoteRowMissing
	}
	return nil
}

func (r *PostgresRemote) FindID(ctx context.Context, table string, key map[string]any) (string, bool, error) {
	if err := checkTable(table); err != nil {
		return "", false, err
	}
	if len(key) == 0 {
		return "", false, nil
	}
	var ids []string
	if err := r.db.WithContext(ctx).Table(table).Where(key).Limit(1).Pluck("id", &ids).Error; err != nil {
		return "", false, fmt.Errorf("remote %s lookup: %w", table, err)
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}

func (r *PostgresRemote) Delete(ctx context.Context, table string, remoteID string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), remoteID)
	if result.Error != nil {
		return fmt.Errorf("remote %s delete: %w", table, result.Error)
	}
	if result.RowsAffected == 0 {
		return ports.ErrRemoteRowMissing
	}
	return nil
}

// checkTable keeps table names, which are interpolated into SQL, to the
// fixed mirror schema.
func checkTable(table string) error {
	if _, ok := remoteTables[table]; !ok {
		return fmt.Errorf("unknown remote table %q", table)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ ports.MirrorRemote = (*PostgresRemote)(nil)
