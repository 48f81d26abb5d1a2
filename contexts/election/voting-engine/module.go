package votingengine

import (
	"log/slog"
	"time"

	"github.com/TADABA21/voting-app/contexts/election/voting-engine/adapters/events"
	httpadapter "github.com/TADABA21/voting-app/contexts/election/voting-engine/adapters/http"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/adapters/memory"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/adapters/security"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/adapters/spreadsheet"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/application/commands"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/application/queries"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/application/workers"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
)

type Module struct {
	Handler        httpadapter.Handler
	Admins         commands.AdminUseCase
	Reconciler     workers.Reconciler
	MirrorConsumer *workers.MirrorConsumer
	Store          *memory.Store
	Remote         *memory.Remote
}

// Dependencies wires the module. Remote is optional: without it no change is
// mirrored and full sync reports the secondary store as unavailable. With a
// Bus, changes travel through it and MirrorConsumer must be started;
// otherwise they are applied inline, bounded by MirrorTimeout when set.
type Dependencies struct {
	Store               ports.RecordStore
	Hasher              ports.PasswordHasher
	Tokens              ports.TokenIssuer
	Sheets              ports.StudentSheetParser
	Clock               ports.Clock
	IDGen               ports.IDGenerator
	Remote              ports.MirrorRemote
	Bus                 Bus
	MirrorTimeout       time.Duration
	SourceService       string
	BootstrapAdminEmail string
	DefaultPosition     string
	Logger              *slog.Logger
}

type Bus interface {
	ports.EventPublisher
	ports.EventSubscriber
}

func NewModule(deps Dependencies) Module {
	if deps.Sheets == nil {
		deps.Sheets = spreadsheet.ExcelStudentParser{}
	}
	if deps.DefaultPosition == "" {
		deps.DefaultPosition = entities.DefaultPosition
	}

	sink := workers.MirrorSink{
		Store:  deps.Store,
		Remote: deps.Remote,
		Logger: deps.Logger,
	}
	var mirror ports.MirrorPublisher
	var consumer *workers.MirrorConsumer
	if deps.Remote != nil {
		if deps.Bus != nil {
			mirror = events.MirrorPublisher{
				Publisher: deps.Bus,
				Source:    deps.SourceService,
				Clock:     deps.Clock,
				Logger:    deps.Logger,
			}
			consumer = &workers.MirrorConsumer{
				Subscriber: deps.Bus,
				Sink:       sink,
				Logger:     deps.Logger,
			}
		} else {
			mirror = workers.InlineMirror{Sink: sink, Timeout: deps.MirrorTimeout}
		}
	}

	admins := commands.AdminUseCase{
		Voters:              deps.Store,
		Hasher:              deps.Hasher,
		Tokens:              deps.Tokens,
		Clock:               deps.Clock,
		Mirror:              mirror,
		BootstrapAdminEmail: deps.BootstrapAdminEmail,
		Logger:              deps.Logger,
	}
	reconciler := workers.Reconciler{
		Store:  deps.Store,
		Sink:   sink,
		Clock:  deps.Clock,
		Logger: deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			Registration: commands.RegistrationUseCase{
				Voters:              deps.Store,
				Students:            deps.Store,
				Hasher:              deps.Hasher,
				Clock:               deps.Clock,
				IDGen:               deps.IDGen,
				Mirror:              mirror,
				BootstrapAdminEmail: deps.BootstrapAdminEmail,
				Logger:              deps.Logger,
			},
			Sessions: commands.SessionUseCase{
				Voters:              deps.Store,
				Hasher:              deps.Hasher,
				Tokens:              deps.Tokens,
				Clock:               deps.Clock,
				Mirror:              mirror,
				BootstrapAdminEmail: deps.BootstrapAdminEmail,
				Logger:              deps.Logger,
			},
			Admins: admins,
			Ballots: commands.BallotUseCase{
				Voters:     deps.Store,
				Candidates: deps.Store,
				Ballots:    deps.Store,
				Clock:      deps.Clock,
				IDGen:      deps.IDGen,
				Mirror:     mirror,
				Logger:     deps.Logger,
			},
			Candidates: commands.CandidateUseCase{
				Candidates:      deps.Store,
				Ballots:         deps.Store,
				Clock:           deps.Clock,
				IDGen:           deps.IDGen,
				Mirror:          mirror,
				DefaultPosition: deps.DefaultPosition,
				Logger:          deps.Logger,
			},
			Students: commands.StudentUseCase{
				Students: deps.Store,
				Sheets:   deps.Sheets,
				Clock:    deps.Clock,
				IDGen:    deps.IDGen,
				Mirror:   mirror,
				Logger:   deps.Logger,
			},
			Results: queries.ResultsUseCase{
				Candidates: deps.Store,
				Ballots:    deps.Store,
				Voters:     deps.Store,
				Logger:     deps.Logger,
			},
			Directory: queries.DirectoryUseCase{
				Voters:     deps.Store,
				Students:   deps.Store,
				Candidates: deps.Store,
			},
			Reconciler: reconciler,
			Logger:     deps.Logger,
		},
		Admins:         admins,
		Reconciler:     reconciler,
		MirrorConsumer: consumer,
	}
}

const inMemoryTokenSecret = "in-memory-voting-secret"

// NewInMemoryModule wires the module to the in-memory store and an
// in-memory secondary store with inline mirroring.
func NewInMemoryModule(bootstrapAdminEmail string, logger *slog.Logger) Module {
	store := memory.NewStore()
	remote := memory.NewRemote()
	tokens, err := security.NewJWTIssuer(inMemoryTokenSecret, security.DefaultTokenTTL, "")
	if err != nil {
		panic(err)
	}
	module := NewModule(Dependencies{
		Store:               store,
		Hasher:              security.BcryptHasher{Cost: security.MinBcryptCost},
		Tokens:              tokens,
		Clock:               store,
		IDGen:               store,
		Remote:              remote,
		BootstrapAdminEmail: bootstrapAdminEmail,
		Logger:              logger,
	})
	module.Store = store
	module.Remote = remote
	return module
}
