package usecase

import (
	"context"

	crerr "github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc"

	"github.com/riskibarqy/dota-tracker/internal/domain/match"
	"github.com/riskibarqy/dota-tracker/internal/domain/player"
	"github.com/riskibarqy/dota-tracker/internal/domain/team"
	"github.com/riskibarqy/dota-tracker/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/dota-tracker/internal/platform/logging"
	"github.com/riskibarqy/dota-tracker/internal/platform/opkey"
	"github.com/riskibarqy/dota-tracker/internal/platform/resilience"
)

// CascadeProcessor loads a match into the shared match store and fans out
// into player fetches for its participants. Concurrent requests for the
// same match join one upstream call; they never supersede each other.
type CascadeProcessor struct {
	gateway SourceGateway
	matches *memory.MatchStore
	players *memory.PlayerStore
	flight  resilience.SingleFlight
	logger  *logging.Logger

	background conc.WaitGroup
}

func NewCascadeProcessor(
	gateway SourceGateway,
	matches *memory.MatchStore,
	players *memory.PlayerStore,
	logger *logging.Logger,
) *CascadeProcessor {
	if logger == nil {
		logger = logging.Default()
	}
	return &CascadeProcessor{
		gateway: gateway,
		matches: matches,
		players: players,
		logger:  logger,
	}
}

// Process resolves matchID into the store, schedules player fetches for its
// participants, and returns teamID's participation view. A nil ctx error on
// return guarantees the store writes happened; ErrAborted means the caller
// was superseded and nothing further should be written on its behalf.
func (p *CascadeProcessor) Process(ctx context.Context, matchID, teamID int64, knownSide team.Side) (*team.MatchParticipation, error) {
	if matchID <= 0 {
		return nil, crerr.Wrapf(ErrInvalidInput, "match id %d", matchID)
	}
	if err := ctx.Err(); err != nil {
		return nil, ErrAborted
	}

	m, err := p.fetchMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	p.schedulePlayers(ctx, m)

	part := BuildParticipation(m, teamID, knownSide)
	return &part, nil
}

// fetchMatch returns the settled match, fetching it if this caller wins
// ownership. When the in-flight leader is cancelled from under a joiner
// whose own context is still live, the joiner retries once as the new
// leader.
func (p *CascadeProcessor) fetchMatch(ctx context.Context, matchID int64) (match.Match, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if entry, ok := p.matches.GetMatch(matchID); ok && entry.Settled() && entry.Err == nil {
			return entry.Value, nil
		}

		// Owns the slot when the entry is absent or errored; an errored
		// entry is retried rather than served from the store.
		owns := p.matches.AddMatch(matchID)
		raw, err, joined := p.flight.Do(opkey.Match(matchID), func() (any, error) {
			return p.gateway.FetchMatch(ctx, matchID)
		})
		if err == nil {
			m := raw.(match.Match)
			if owns {
				p.matches.Resolve(matchID, m)
			}
			return m, nil
		}

		if IsAborted(err) {
			// Roll the loading marker back so a later request starts clean.
			if owns {
				p.matches.RemoveMatch(matchID)
			}
			if ctx.Err() != nil {
				return match.Match{}, ErrAborted
			}
			if joined {
				continue
			}
			return match.Match{}, ErrAborted
		}

		if owns {
			p.matches.Fail(matchID, err)
		}
		return match.Match{}, crerr.Mark(err, ErrEntityFetch)
	}
	return match.Match{}, ErrAborted
}

// schedulePlayers starts a background fetch per participant not yet in the
// player store. Detached from ctx: a player entity is shared across teams,
// so superseding one team must not strand a half-fetched player.
func (p *CascadeProcessor) schedulePlayers(ctx context.Context, m match.Match) {
	detached := context.WithoutCancel(ctx)
	for _, accountID := range m.ParticipantIDs() {
		accountID := accountID
		if snap, ok := p.players.Get(accountID); ok && (snap.Loading || snap.Err == nil) {
			continue
		}
		p.background.Go(func() {
			p.EnsurePlayer(detached, accountID)
		})
	}
}

// EnsurePlayer loads one player into the shared store, blocking until the
// fetch settles. Already loading or resolved players are left alone; an
// errored entry is retried.
func (p *CascadeProcessor) EnsurePlayer(ctx context.Context, accountID int64) {
	if accountID <= 0 {
		return
	}
	if !p.players.AddPlayer(accountID) {
		return
	}

	raw, err, _ := p.flight.Do(opkey.Player(accountID), func() (any, error) {
		return p.gateway.FetchPlayer(ctx, accountID)
	})
	if err != nil {
		if IsAborted(err) {
			p.players.RemovePlayer(accountID)
			return
		}
		p.logger.WarnContext(ctx, "player fetch failed", "account_id", accountID, "error", err)
		p.players.Fail(accountID, crerr.Mark(err, ErrEntityFetch))
		return
	}
	p.players.Resolve(accountID, raw.(player.Player))
}

// Wait blocks until all background player fetches started so far finish.
func (p *CascadeProcessor) Wait() {
	p.background.Wait()
}
