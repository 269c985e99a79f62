package ballotservice

import (
	"log/slog"

	httpadapter "quorum/contexts/governance/ballot-service/adapters/http"
	"quorum/contexts/governance/ballot-service/adapters/memory"
	"quorum/contexts/governance/ballot-service/application/commands"
	"quorum/contexts/governance/ballot-service/application/queries"
	"quorum/contexts/governance/ballot-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Tx        ports.Transactor
	Proposals ports.ProposalRepository
	Voters    ports.VoterRepository
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	proposalUseCase := commands.ProposalUseCase{
		Tx:     deps.Tx,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	ledgerUseCase := commands.LedgerUseCase{
		Tx:     deps.Tx,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		Tx:     deps.Tx,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	resultsUseCase := queries.ResultsUseCase{
		Proposals: deps.Proposals,
		Voters:    deps.Voters,
		Clock:     deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Proposals: proposalUseCase,
			Ledger:    ledgerUseCase,
			Votes:     voteUseCase,
			Results:   resultsUseCase,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Tx:        store,
		Proposals: store,
		Voters:    store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
