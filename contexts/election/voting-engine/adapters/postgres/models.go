package postgresadapter

import (
	"time"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/services"

	"gorm.io/gorm"
)

// Migrate creates or updates the primary schema. The unique indexes are the
// service's concurrency control: one ballot per voter, one voter per email,
// one candidate per normalized name and position. The ballots foreign key
// keeps a candidate with votes from being deleted.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&voterModel{}, &studentModel{}, &candidateModel{}, &ballotModel{})
}

type voterModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Email        string    `gorm:"column:email;not null;uniqueIndex:idx_voters_email"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	HasVoted     bool      `gorm:"column:has_voted;not null"`
	IsAdmin      bool      `gorm:"column:is_admin;not null;index:idx_voters_is_admin"`
	MirrorID     *string   `gorm:"column:mirror_id;uniqueIndex:idx_voters_mirror_id"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (voterModel) TableName() string { return "voters" }

type studentModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	Email         string    `gorm:"column:email;not null;uniqueIndex:idx_students_email"`
	StudentNumber string    `gorm:"column:student_number"`
	Name          string    `gorm:"column:name"`
	Department    string    `gorm:"column:department"`
	IsRegistered  bool      `gorm:"column:is_registered;not null"`
	MirrorID      *string   `gorm:"column:mirror_id;uniqueIndex:idx_students_mirror_id"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (studentModel) TableName() string { return "students" }

type candidateModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Position    string    `gorm:"column:position;not null"`
	NameKey     string    `gorm:"column:name_key;not null;uniqueIndex:idx_candidates_name_position,priority:1"`
	PositionKey string    `gorm:"column:position_key;not null;uniqueIndex:idx_candidates_name_position,priority:2"`
	ImageURL    string    `gorm:"column:image_url"`
	MirrorID    *string   `gorm:"column:mirror_id;uniqueIndex:idx_candidates_mirror_id"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (candidateModel) TableName() string { return "candidates" }

type ballotModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	VoterID     string    `gorm:"column:voter_id;not null;uniqueIndex:idx_ballots_voter_id"`
	CandidateID string    `gorm:"column:candidate_id;not null;index:idx_ballots_candidate_id"`
	MirrorID    *string   `gorm:"column:mirror_id;uniqueIndex:idx_ballots_mirror_id"`
	CastAt      time.Time `gorm:"column:cast_at;not null"`

	// Candidate only carries the foreign key; it is never loaded or saved.
	Candidate candidateModel `gorm:"foreignKey:CandidateID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (ballotModel) TableName() string { return "ballots" }

func voterModelFromEntity(voter entities.Voter) voterModel {
	return voterModel{
		ID:           voter.VoterID,
		Email:        services.NormalizeKey(voter.Email),
		PasswordHash: voter.PasswordHash,
		HasVoted:     voter.HasVoted,
		IsAdmin:      voter.IsAdmin,
		MirrorID:     optional(voter.MirrorID),
		CreatedAt:    voter.CreatedAt.UTC(),
		UpdatedAt:    voter.UpdatedAt.UTC(),
	}
}

func (m voterModel) toEntity() entities.Voter {
	return entities.Voter{
		VoterID:      m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		HasVoted:     m.HasVoted,
		IsAdmin:      m.IsAdmin,
		MirrorID:     value(m.MirrorID),
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func studentModelFromEntity(student entities.Student) studentModel {
	return studentModel{
		ID:            student.StudentID,
		Email:         services.NormalizeKey(student.Email),
		StudentNumber: student.StudentNumber,
		Name:          student.Name,
		Department:    student.Department,
		IsRegistered:  student.IsRegistered,
		MirrorID:      optional(student.MirrorID),
		CreatedAt:     student.CreatedAt.UTC(),
		UpdatedAt:     student.UpdatedAt.UTC(),
	}
}

func (m studentModel) toEntity() entities.Student {
	return entities.Student{
		StudentID:     m.ID,
		Email:         m.Email,
		StudentNumber: m.StudentNumber,
		Name:          m.Name,
		Department:    m.Department,
		IsRegistered:  m.IsRegistered,
		MirrorID:      value(m.MirrorID),
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

func candidateModelFromEntity(candidate entities.Candidate) candidateModel {
	return candidateModel{
		ID:          candidate.CandidateID,
		Name:        candidate.Name,
		Position:    candidate.Position,
		NameKey:     services.NormalizeKey(candidate.Name),
		PositionKey: services.NormalizeKey(candidate.Position),
		ImageURL:    candidate.ImageURL,
		MirrorID:    optional(candidate.MirrorID),
		CreatedAt:   candidate.CreatedAt.UTC(),
		UpdatedAt:   candidate.UpdatedAt.UTC(),
	}
}

func (m candidateModel) toEntity() entities.Candidate {
	return entities.Candidate{
		CandidateID: m.ID,
		Name:        m.Name,
		Position:    m.Position,
		ImageURL:    m.ImageURL,
		MirrorID:    value(m.MirrorID),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

func ballotModelFromEntity(ballot entities.Ballot) ballotModel {
	return ballotModel{
		ID:          ballot.BallotID,
		VoterID:     ballot.VoterID,
		CandidateID: ballot.CandidateID,
		MirrorID:    optional(ballot.MirrorID),
		CastAt:      ballot.CastAt.UTC(),
	}
}

func (m ballotModel) toEntity() entities.Ballot {
	return entities.Ballot{
		BallotID:    m.ID,
		VoterID:     m.VoterID,
		CandidateID: m.CandidateID,
		MirrorID:    value(m.MirrorID),
		CastAt:      m.CastAt.UTC(),
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func value(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
