package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	application "github.com/TADABA21/voting-app/contexts/election/voting-engine/application"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	domainerrors "github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/errors"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/services"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

// AddStudentCommand is one allow-list entry. Only Email is required.
type AddStudentCommand struct {
	Email         string
	StudentNumber string
	Name          string
	Department    string
}

// StudentUseCase maintains the eligible student allow-list.
type StudentUseCase struct {
	Students ports.StudentRepository
	Sheets   ports.StudentSheetParser
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Mirror   ports.MirrorPublisher
	Logger   *slog.Logger
}

// AddStudent adds one email to the allow-list. A duplicate yields
// DuplicateStudent.
func (uc StudentUseCase) AddStudent(ctx context.Context, actor entities.Identity, cmd AddStudentCommand) (entities.Student, error) {
	if err := services.RequireAdmin(actor); err != nil {
		return entities.Student{}, err
	}
	student, err := uc.insert(ctx, cmd)
	if err != nil {
		return entities.Student{}, err
	}
	publishMirror(ctx, uc.Mirror, upsertChange(entities.EntityStudent, student.StudentID))

	application.ResolveLogger(uc.Logger).Info("student added",
		"event", "voting_student_added",
		"module", application.ModuleName,
		"layer", "application",
		"student_id", student.StudentID,
		"actor_id", actor.VoterID,
	)
	return student, nil
}

// BulkAddStudents never fails the batch for a single row: duplicates are
// skipped and invalid rows are reported by email.
func (uc StudentUseCase) BulkAddStudents(ctx context.Context, actor entities.Identity, rows []ports.StudentRow) (entities.BulkImportResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := services.RequireAdmin(actor); err != nil {
		return entities.BulkImportResult{}, err
	}

	result := entities.BulkImportResult{Errors: []entities.BulkImportError{}}
	seen := make(map[string]struct{}, len(rows))
	changes := make([]ports.MirrorChange, 0, len(rows))
	for index, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rowNumber := row.Row
		if rowNumber == 0 {
			rowNumber = index + 1
		}
		key := services.NormalizeKey(row.Email)
		if _, dup := seen[key]; dup && key != "" {
			result.Skipped++
			continue
		}
		seen[key] = struct{}{}

		student, err := uc.insert(ctx, AddStudentCommand{
			Email:         row.Email,
			StudentNumber: row.StudentNumber,
			Name:          row.Name,
			Department:    row.Department,
		})
		switch {
		case err == nil:
			result.Added++
			changes = append(changes, upsertChange(entities.EntityStudent, student.StudentID))
		case errors.Is(err, domainerrors.ErrDuplicateStudent):
			result.Skipped++
		default:
			result.Errors = append(result.Errors, entities.BulkImportError{
				Email: strings.TrimSpace(row.Email),
				Row:   rowNumber,
				Error: err.Error(),
			})
		}
	}
	publishMirror(ctx, uc.Mirror, changes...)

	logger.Info("student bulk import finished",
		"event", "voting_students_bulk_imported",
		"module", application.ModuleName,
		"layer", "application",
		"actor_id", actor.VoterID,
		"added", result.Added,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	return result, nil
}

// ImportStudentsSheet parses an uploaded spreadsheet and adds its rows like
// BulkAddStudents.
func (uc StudentUseCase) ImportStudentsSheet(ctx context.Context, actor entities.Identity, r io.Reader) (entities.BulkImportResult, error) {
	if err := services.RequireAdmin(actor); err != nil {
		return entities.BulkImportResult{}, err
	}
	if uc.Sheets == nil {
		return entities.BulkImportResult{}, domainerrors.ErrInvalidSpreadsheet
	}
	rows, err := uc.Sheets.ParseStudents(r)
	if err != nil {
		return entities.BulkImportResult{}, err
	}
	return uc.BulkAddStudents(ctx, actor, rows)
}

// RemoveStudent deletes the allow-list entry for email. An existing voter
// account is left in place.
func (uc StudentUseCase) RemoveStudent(ctx context.Context, actor entities.Identity, email string) (entities.Student, error) {
	if err := services.RequireAdmin(actor); err != nil {
		return entities.Student{}, err
	}
	normalized := services.NormalizeKey(email)
	if normalized == "" {
		return entities.Student{}, domainerrors.ErrInvalidInput
	}

	deleted, err := uc.Students.DeleteStudents(ctx, ports.StudentFilter{Email: normalized})
	if err != nil {
		return entities.Student{}, err
	}
	if len(deleted) == 0 {
		return entities.Student{}, domainerrors.ErrStudentNotFound
	}
	student := deleted[0]
	if student.MirrorID != "" {
		publishMirror(ctx, uc.Mirror, deleteChange(entities.EntityStudent, student.StudentID, student.MirrorID))
	}

	application.ResolveLogger(uc.Logger).Info("student removed",
		"event", "voting_student_removed",
		"module", application.ModuleName,
		"layer", "application",
		"student_id", student.StudentID,
		"actor_id", actor.VoterID,
	)
	return student, nil
}

func (uc StudentUseCase) insert(ctx context.Context, cmd AddStudentCommand) (entities.Student, error) {
	email, err := services.NormalizeEmail(cmd.Email)
	if err != nil {
		return entities.Student{}, err
	}
	studentID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Student{}, err
	}
	now := currentTime(uc.Clock)
	student := entities.Student{
		StudentID:     studentID,
		Email:         email,
		StudentNumber: strings.TrimSpace(cmd.StudentNumber),
		Name:          strings.TrimSpace(cmd.Name),
		Department:    strings.TrimSpace(cmd.Department),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.Students.InsertStudent(ctx, student); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return entities.Student{}, domainerrors.ErrDuplicateStudent
		}
		return entities.Student{}, err
	}
	return student, nil
}
