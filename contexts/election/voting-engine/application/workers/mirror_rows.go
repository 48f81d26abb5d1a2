package workers

import (
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

// Remote rows never carry credentials.
func voterRow(voter entities.Voter) ports.RemoteRow {
	return ports.RemoteRow{
		Table: ports.RemoteTableVoters,
		Key:   map[string]any{"email": voter.Email},
		Fields: map[string]any{
			"email":      voter.Email,
			"has_voted":  voter.HasVoted,
			"is_admin":   voter.IsAdmin,
			"created_at": voter.CreatedAt.UTC(),
		},
	}
}

func studentRow(student entities.Student) ports.RemoteRow {
	return ports.RemoteRow{
		Table: ports.RemoteTableStudents,
		Key:   map[string]any{"email": student.Email},
		Fields: map[string]any{
			"email":         student.Email,
			"student_id":    student.StudentNumber,
			"name":          student.Name,
			"department":    student.Department,
			"is_registered": student.IsRegistered,
			"created_at":    student.CreatedAt.UTC(),
		},
	}
}

func candidateRow(candidate entities.Candidate) ports.RemoteRow {
	return ports.RemoteRow{
		Table: ports.RemoteTableCandidates,
		Key: map[string]any{
			"name":     candidate.Name,
			"position": candidate.Position,
		},
		Fields: map[string]any{
			"name":       candidate.Name,
			"position":   candidate.Position,
			"image_url":  candidate.ImageURL,
			"created_at": candidate.CreatedAt.UTC(),
		},
	}
}

func ballotRow(ballot entities.Ballot, voterMirrorID string, candidateMirrorID string) ports.RemoteRow {
	return ports.RemoteRow{
		Table: ports.RemoteTableBallots,
		Key:   map[string]any{"user_id": voterMirrorID},
		Fields: map[string]any{
			"user_id":      voterMirrorID,
			"candidate_id": candidateMirrorID,
			"created_at":   ballot.CastAt.UTC(),
		},
	}
}

func remoteTable(entity entities.EntityKind) (string, bool) {
	switch entity {
	case entities.EntityVoter:
		return ports.RemoteTableVoters, true
	case entities.EntityStudent:
		return ports.RemoteTableStudents, true
	case entities.EntityCandidate:
		return ports.RemoteTableCandidates, true
	case entities.EntityBallot:
		return ports.RemoteTableBallots, true
	default:
		return "", false
	}
}
