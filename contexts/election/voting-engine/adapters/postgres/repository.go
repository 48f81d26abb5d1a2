package postgresadapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	application "github.com/TADABA21/voting-app/contexts/election/voting-engine/application"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/services"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) InsertVoter(ctx context.Context, voter entities.Voter) error {
	row := voterModelFromEntity(voter)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.translate("voting_repo_insert_voter_failed", err, "voter_id", voter.VoterID)
	}
	return nil
}

func (r *Repository) FindVoters(ctx context.Context, filter ports.VoterFilter) ([]entities.Voter, error) {
	var rows []voterModel
	if err := applyVoterFilter(r.db.WithContext(ctx), filter).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, r.translate("voting_repo_find_voters_failed", err)
	}
	items := make([]entities.Voter, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) FindVoter(ctx context.Context, filter ports.VoterFilter) (entities.Voter, error) {
	var row voterModel
	if err := applyVoterFilter(r.db.WithContext(ctx), filter).Order("created_at ASC").Take(&row).Error; err != nil {
		return entities.Voter{}, r.translate("voting_repo_find_voter_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) CountVoters(ctx context.Context, filter ports.VoterFilter) (int64, error) {
	var count int64
	if err := applyVoterFilter(r.db.WithContext(ctx), filter).Count(&count).Error; err != nil {
		return 0, r.translate("voting_repo_count_voters_failed", err)
	}
	return count, nil
}

func (r *Repository) UpdateVoter(ctx context.Context, voterID string, patch ports.VoterPatch, updatedAt time.Time) error {
	updates := map[string]any{"updated_at": updatedAt.UTC()}
	if patch.PasswordHash != nil {
		updates["password_hash"] = *patch.PasswordHash
	}
	if patch.HasVoted != nil {
		updates["has_voted"] = *patch.HasVoted
	}
	if patch.IsAdmin != nil {
		updates["is_admin"] = *patch.IsAdmin
	}
	result := r.db.WithContext(ctx).Model(&voterModel{}).Where("id = ?", voterID).Updates(updates)
	if result.Error != nil {
		return r.translate("voting_repo_update_voter_failed", result.Error, "voter_id", voterID)
	}
	if result.RowsAffected == 0 {
		return ports.ErrRecordNotFound
	}
	return nil
}

// PromoteIfNoAdmin serializes concurrent bootstrap attempts with a table lock
// on Postgres; SQLite serializes writers on its own.
func (r *Repository) PromoteIfNoAdmin(ctx context.Context, voterID string, updatedAt time.Time) (bool, error) {
	promoted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.lockTable(tx, "voters"); err != nil {
			return err
		}
		admins := tx.Model(&voterModel{}).Select("1").Where("is_admin = ?", true)
		result := tx.Model(&voterModel{}).
			Where("id = ?", voterID).
			Where("NOT EXISTS (?)", admins).
			Updates(map[string]any{"is_admin": true, "updated_at": updatedAt.UTC()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 1 {
			promoted = true
			return nil
		}
		var exists int64
		if err := tx.Model(&voterModel{}).Where("id = ?", voterID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return ports.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return false, r.translate("voting_repo_promote_if_no_admin_failed", err, "voter_id", voterID)
	}
	return promoted, nil
}

func (r *Repository) InsertStudent(ctx context.Context, student entities.Student) error {
	row := studentModelFromEntity(student)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.translate("voting_repo_insert_student_failed", err, "student_id", student.StudentID)
	}
	return nil
}

func (r *Repository) FindStudents(ctx context.Context, filter ports.StudentFilter) ([]entities.Student, error) {
	var rows []studentModel
	if err := applyStudentFilter(r.db.WithContext(ctx), filter).Order("email ASC").Find(&rows).Error; err != nil {
		return nil, r.translate("voting_repo_find_students_failed", err)
	}
	items := make([]entities.Student, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) FindStudent(ctx context.Context, filter ports.StudentFilter) (entities.Student, error) {
	var row studentModel
	if err := applyStudentFilter(r.db.WithContext(ctx), filter).Order("email ASC").Take(&row).Error; err != nil {
		return entities.Student{}, r.translate("voting_repo_find_student_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) CountStudents(ctx context.Context, filter ports.StudentFilter) (int64, error) {
	var count int64
	if err := applyStudentFilter(r.db.WithContext(ctx), filter).Count(&count).Error; err != nil {
		return 0, r.translate("voting_repo_count_students_failed", err)
	}
	return count, nil
}

func (r *Repository) UpdateStudent(ctx context.Context, studentID string, patch ports.StudentPatch, updatedAt time.Time) error {
	updates := map[string]any{"updated_at": updatedAt.UTC()}
	if patch.IsRegistered != nil {
		updates["is_registered"] = *patch.IsRegistered
	}
	result := r.db.WithContext(ctx).Model(&studentModel{}).Where("id = ?", studentID).Updates(updates)
	if result.Error != nil {
		return r.translate("voting_repo_update_student_failed", result.Error, "student_id", studentID)
	}
	if result.RowsAffected == 0 {
		return ports.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteStudents(ctx context.Context, filter ports.StudentFilter) ([]entities.Student, error) {
	if filter == (ports.StudentFilter{}) {
		return nil, ports.ErrEmptyFilter
	}
	var deleted []entities.Student
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []studentModel
		if err := applyStudentFilter(tx, filter).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
			deleted = append(deleted, row.toEntity())
		}
		return tx.Where("id IN ?", ids).Delete(&studentModel{}).Error
	})
	if err != nil {
		return nil, r.translate("voting_repo_delete_students_failed", err)
	}
	return deleted, nil
}

func (r *Repository) InsertCandidate(ctx context.Context, candidate entities.Candidate) error {
	row := candidateModelFromEntity(candidate)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.translate("voting_repo_insert_candidate_failed", err, "candidate_id", candidate.CandidateID)
	}
	return nil
}

func (r *Repository) FindCandidates(ctx context.Context, filter ports.CandidateFilter) ([]entities.Candidate, error) {
	var rows []candidateModel
	err := applyCandidateFilter(r.db.WithContext(ctx), filter).
		Order("position_key ASC").
		Order("name_key ASC").
		Find(&rows).Error
	if err != nil {
		return nil, r.translate("voting_repo_find_candidates_failed", err)
	}
	items := make([]entities.Candidate, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) FindCandidate(ctx context.Context, filter ports.CandidateFilter) (entities.Candidate, error) {
	var row candidateModel
	if err := applyCandidateFilter(r.db.WithContext(ctx), filter).Order("name_key ASC").Take(&row).Error; err != nil {
		return entities.Candidate{}, r.translate("voting_repo_find_candidate_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) CountCandidates(ctx context.Context, filter ports.CandidateFilter) (int64, error) {
	var count int64
	if err := applyCandidateFilter(r.db.WithContext(ctx), filter).Count(&count).Error; err != nil {
		return 0, r.translate("voting_repo_count_candidates_failed", err)
	}
	return count, nil
}

func (r *Repository) DeleteCandidates(ctx context.Context, filter ports.CandidateFilter) ([]entities.Candidate, error) {
	if filter == (ports.CandidateFilter{}) {
		return nil, ports.ErrEmptyFilter
	}
	var deleted []entities.Candidate
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []candidateModel
		if err := applyCandidateFilter(tx, filter).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
			deleted = append(deleted, row.toEntity())
		}
		var referenced int64
		if err := tx.Model(&ballotModel{}).Where("candidate_id IN ?", ids).Count(&referenced).Error; err != nil {
			return err
		}
		if referenced > 0 {
			return ports.ErrReferenced
		}
		return tx.Where("id IN ?", ids).Delete(&candidateModel{}).Error
	})
	if err != nil {
		if errors.Is(err, ports.ErrReferenced) || isForeignKeyViolation(err) {
			return nil, ports.ErrReferenced
		}
		return nil, r.translate("voting_repo_delete_candidates_failed", err)
	}
	return deleted, nil
}

// CastBallot is the serialization point for voting. The voter row is locked
// for the transaction and the unique index on ballots.voter_id rejects a
// second ballot even when two requests race past the application checks.
// The foreign key on ballots.candidate_id rejects a ballot for a candidate
// deleted after it was resolved.
func (r *Repository) CastBallot(ctx context.Context, ballot entities.Ballot) error {
	row := ballotModelFromEntity(ballot)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var voter voterModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", ballot.VoterID).
			Take(&voter).Error; err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		result := tx.Model(&voterModel{}).
			Where("id = ?", ballot.VoterID).
			Updates(map[string]any{"has_voted": true, "updated_at": ballot.CastAt.UTC()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ports.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return ports.ErrRecordNotFound
		}
		return r.translate("voting_repo_cast_ballot_failed", err, "voter_id", ballot.VoterID)
	}
	return nil
}

func (r *Repository) FindBallots(ctx context.Context, filter ports.BallotFilter) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := applyBallotFilter(r.db.WithContext(ctx), filter).Order("cast_at ASC").Find(&rows).Error; err != nil {
		return nil, r.translate("voting_repo_find_ballots_failed", err)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) FindBallot(ctx context.Context, filter ports.BallotFilter) (entities.Ballot, error) {
	var row ballotModel
	if err := applyBallotFilter(r.db.WithContext(ctx), filter).Order("cast_at ASC").Take(&row).Error; err != nil {
		return entities.Ballot{}, r.translate("voting_repo_find_ballot_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) CountBallots(ctx context.Context, filter ports.BallotFilter) (int64, error) {
	var count int64
	if err := applyBallotFilter(r.db.WithContext(ctx), filter).Count(&count).Error; err != nil {
		return 0, r.translate("voting_repo_count_ballots_failed", err)
	}
	return count, nil
}

func (r *Repository) CountBallotsByCandidate(ctx context.Context) (map[string]int64, error) {
	type candidateCount struct {
		CandidateID string
		Votes       int64
	}
	var rows []candidateCount
	err := r.db.WithContext(ctx).
		Model(&ballotModel{}).
		Select("candidate_id, COUNT(*) AS votes").
		Group("candidate_id").
		Scan(&rows).Error
	if err != nil {
		return nil, r.translate("voting_repo_count_ballots_by_candidate_failed", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.CandidateID] = row.Votes
	}
	return counts, nil
}

// ResetBallots holds a lock on ballots for the whole transaction so no ballot
// can be cast between the wipe and the flag reset.
func (r *Repository) ResetBallots(ctx context.Context, updatedAt time.Time) ([]entities.Ballot, []string, error) {
	var (
		deleted     []entities.Ballot
		resetVoters []string
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.lockTable(tx, "ballots"); err != nil {
			return err
		}
		var rows []ballotModel
		if err := tx.Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			deleted = append(deleted, row.toEntity())
		}
		if err := tx.Model(&voterModel{}).Where("has_voted = ?", true).Order("id ASC").Pluck("id", &resetVoters).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&ballotModel{}).Error; err != nil {
			return err
		}
		return tx.Model(&voterModel{}).
			Where("has_voted = ?", true).
			Updates(map[string]any{"has_voted": false, "updated_at": updatedAt.UTC()}).Error
	})
	if err != nil {
		return nil, nil, r.translate("voting_repo_reset_ballots_failed", err)
	}
	return deleted, resetVoters, nil
}

func (r *Repository) SetMirrorID(ctx context.Context, entity entities.EntityKind, recordID string, mirrorID string) (bool, error) {
	return r.swapMirrorID(ctx, entity, recordID, mirrorID, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("(mirror_id IS NULL OR mirror_id = '')")
	})
}

func (r *Repository) ReplaceMirrorID(
	ctx context.Context,
	entity entities.EntityKind,
	recordID string,
	staleID string,
	mirrorID string,
) (bool, error) {
	if staleID == "" {
		return false, fmt.Errorf("replace mirror id for %s %q: stale id is empty", entity, recordID)
	}
	return r.swapMirrorID(ctx, entity, recordID, mirrorID, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("mirror_id = ?", staleID)
	})
}

func (r *Repository) swapMirrorID(
	ctx context.Context,
	entity entities.EntityKind,
	recordID string,
	mirrorID string,
	current func(*gorm.DB) *gorm.DB,
) (bool, error) {
	var model any
	switch entity {
	case entities.EntityVoter:
		model = &voterModel{}
	case entities.EntityStudent:
		model = &studentModel{}
	case entities.EntityCandidate:
		model = &candidateModel{}
	case entities.EntityBallot:
		model = &ballotModel{}
	default:
		return false, fmt.Errorf("unknown entity %q", entity)
	}

	result := current(r.db.WithContext(ctx).Model(model).Where("id = ?", recordID)).
		Update("mirror_id", mirrorID)
	if result.Error != nil {
		return false, r.translate("voting_repo_set_mirror_id_failed", result.Error,
			"entity", entity,
			"record_id", recordID,
		)
	}
	if result.RowsAffected == 1 {
		return true, nil
	}
	var exists int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", recordID).Count(&exists).Error; err != nil {
		return false, r.translate("voting_repo_set_mirror_id_failed", err, "entity", entity, "record_id", recordID)
	}
	if exists == 0 {
		return false, ports.ErrRecordNotFound
	}
	return false, nil
}

func applyVoterFilter(tx *gorm.DB, filter ports.VoterFilter) *gorm.DB {
	tx = tx.Model(&voterModel{})
	if filter.VoterID != "" {
		tx = tx.Where("id = ?", filter.VoterID)
	}
	if email := services.NormalizeKey(filter.Email); email != "" {
		tx = tx.Where("email = ?", email)
	}
	if filter.IsAdmin != nil {
		tx = tx.Where("is_admin = ?", *filter.IsAdmin)
	}
	if filter.HasVoted != nil {
		tx = tx.Where("has_voted = ?", *filter.HasVoted)
	}
	return tx
}

func applyStudentFilter(tx *gorm.DB, filter ports.StudentFilter) *gorm.DB {
	tx = tx.Model(&studentModel{})
	if filter.StudentID != "" {
		tx = tx.Where("id = ?", filter.StudentID)
	}
	if email := services.NormalizeKey(filter.Email); email != "" {
		tx = tx.Where("email = ?", email)
	}
	if filter.IsRegistered != nil {
		tx = tx.Where("is_registered = ?", *filter.IsRegistered)
	}
	return tx
}

func applyCandidateFilter(tx *gorm.DB, filter ports.CandidateFilter) *gorm.DB {
	tx = tx.Model(&candidateModel{})
	if filter.CandidateID != "" {
		tx = tx.Where("id = ?", filter.CandidateID)
	}
	if name := services.NormalizeKey(filter.Name); name != "" {
		tx = tx.Where("name_key = ?", name)
	}
	if position := services.NormalizeKey(filter.Position); position != "" {
		tx = tx.Where("position_key = ?", position)
	}
	return tx
}

func applyBallotFilter(tx *gorm.DB, filter ports.BallotFilter) *gorm.DB {
	tx = tx.Model(&ballotModel{})
	if filter.BallotID != "" {
		tx = tx.Where("id = ?", filter.BallotID)
	}
	if filter.VoterID != "" {
		tx = tx.Where("voter_id = ?", filter.VoterID)
	}
	if filter.CandidateID != "" {
		tx = tx.Where("candidate_id = ?", filter.CandidateID)
	}
	return tx
}

func (r *Repository) lockTable(tx *gorm.DB, table string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	// gorm-postgres-enforcer: allow-raw-sql table names are package constants
	return tx.Exec("LOCK TABLE " + table + " IN SHARE ROW EXCLUSIVE MODE").Error
}

// translate maps driver errors onto port and domain errors. Not-found and
// duplicates are expected outcomes and are not logged.
func (r *Repository) translate(event string, err error, attrs ...any) error {
	switch {
	case errors.Is(err, ports.ErrRecordNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return ports.ErrRecordNotFound
	case isUniqueViolation(err):
		return ports.ErrDuplicate
	case isUnavailable(err):
		return r.logError(event, fmt.Errorf("%w: %v", domainerrors.ErrUnavailable, err), attrs...)
	default:
		return r.logError(event, err, attrs...)
	}
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", application.ModuleName,
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("voting repository operation failed", fields...)
	return err
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

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUnavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}

var _ ports.RecordStore = (*Repository)(nil)
