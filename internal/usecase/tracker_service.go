package usecase

import (
	"context"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	ants "github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc"

	"github.com/riskibarqy/dota-tracker/internal/domain/team"
	"github.com/riskibarqy/dota-tracker/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/dota-tracker/internal/platform/abort"
	"github.com/riskibarqy/dota-tracker/internal/platform/logging"
	"github.com/riskibarqy/dota-tracker/internal/platform/opkey"
)

const defaultFetchWorkers = 8

// TrackerServiceParams collects the collaborators of TrackerService.
// Roster and Selection are optional; the rest are required.
type TrackerServiceParams struct {
	Teams    *memory.TeamStore
	Matches  *memory.MatchStore
	Players  *memory.PlayerStore
	Registry *abort.Registry

	Gateway       SourceGateway
	Processor     MatchProcessor
	PlayerFetcher PlayerFetcher

	Roster    RosterStore
	Selection Selection

	Logger       *logging.Logger
	FetchWorkers int
	Now          func() time.Time
}

// TrackerService orchestrates the tracked-team lifecycle: the cascading
// team fetch, manual overrides, removal, and the supersede-on-duplicate
// discipline via the abort registry.
type TrackerService struct {
	teams    *memory.TeamStore
	matches  *memory.MatchStore
	players  *memory.PlayerStore
	registry *abort.Registry

	gateway       SourceGateway
	processor     MatchProcessor
	playerFetcher PlayerFetcher

	roster    RosterStore
	selection Selection

	logger  *logging.Logger
	workers int
	now     func() time.Time

	background conc.WaitGroup
}

func NewTrackerService(p TrackerServiceParams) (*TrackerService, error) {
	if p.Teams == nil || p.Matches == nil || p.Players == nil {
		return nil, crerr.Wrap(ErrInvalidInput, "tracker service requires all three stores")
	}
	if p.Registry == nil {
		return nil, crerr.Wrap(ErrInvalidInput, "tracker service requires an abort registry")
	}
	if p.Gateway == nil || p.Processor == nil || p.PlayerFetcher == nil {
		return nil, crerr.Wrap(ErrInvalidInput, "tracker service requires gateway, processor, and player fetcher")
	}

	logger := p.Logger
	if logger == nil {
		logger = logging.Default()
	}
	workers := p.FetchWorkers
	if workers <= 0 {
		workers = defaultFetchWorkers
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}

	return &TrackerService{
		teams:         p.Teams,
		matches:       p.Matches,
		players:       p.Players,
		registry:      p.Registry,
		gateway:       p.Gateway,
		processor:     p.Processor,
		playerFetcher: p.PlayerFetcher,
		roster:        p.Roster,
		selection:     p.Selection,
		logger:        logger,
		workers:       workers,
		now:           now,
	}, nil
}

// AddTeam tracks a team in a league. The record appears immediately as a
// loading placeholder; the summary, match, and player data stream in behind
// it. Re-adding a tracked team is a no-op unless force is set, in which
// case the fetch restarts and supersedes any in-flight one for the same
// key. Returns nil when the operation was superseded mid-flight; the
// record is left for the successor.
func (s *TrackerService) AddTeam(ctx context.Context, key team.Key, force bool) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackerService.AddTeam")
	defer span.End()

	if err := key.Validate(); err != nil {
		return crerr.WithSecondaryError(crerr.Wrapf(ErrInvalidInput, "add team"), err)
	}

	opKey := opkey.Team(key.TeamID, key.LeagueID)
	if !force {
		if _, exists := s.teams.Get(key); exists {
			return nil
		}
		if s.registry.Active(opKey) {
			return nil
		}
	}

	if _, exists := s.teams.Get(key); !exists {
		s.teams.Upsert(key, team.NewPlaceholder(key, s.now()))
	}

	op := s.registry.Acquire(ctx, opKey)
	defer s.registry.Release(op)

	if err := s.runCascade(op.Context(), key, force); err != nil {
		return err
	}
	s.persistRoster(ctx, key)
	return nil
}

// RefreshTeam re-runs the full cascade for a tracked team, bypassing
// upstream response caches. Unlike a forced AddTeam it refuses untracked
// keys with ErrNotFound rather than starting to track them: refresh
// mutates existing state, it is not an entry point.
func (s *TrackerService) RefreshTeam(ctx context.Context, key team.Key) error {
	if _, exists := s.teams.Get(key); !exists {
		return crerr.Wrapf(ErrNotFound, "team %s", key)
	}
	return s.AddTeam(ctx, key, true)
}

func (s *TrackerService) runCascade(ctx context.Context, key team.Key, force bool) error {
	var (
		srcTeam   SourceTeam
		srcLeague SourceLeague
		teamErr   error
		leagueErr error
	)
	var pair conc.WaitGroup
	pair.Go(func() {
		srcTeam, teamErr = s.gateway.FetchTeam(ctx, key.TeamID, force)
	})
	pair.Go(func() {
		srcLeague, leagueErr = s.gateway.FetchLeague(ctx, key.LeagueID, force)
	})
	pair.Wait()

	if ctx.Err() != nil {
		return nil
	}
	if teamErr != nil || leagueErr != nil {
		s.recordSummaryFailure(ctx, key, srcTeam, srcLeague, teamErr, leagueErr)
		return nil
	}

	fresh := team.TrackedTeam{
		Key:           key,
		Name:          srcTeam.Name,
		Tag:           srcTeam.Tag,
		LeagueName:    srcLeague.Name,
		LeagueTier:    srcLeague.Tier,
		CreatedAt:     s.now(),
		Loading:       true,
		Matches:       make(map[int64]team.MatchParticipation),
		ManualMatches: make(map[int64]team.Side),
		Players:       make(map[int64]team.RosterPlayer),
	}
	if fresh.Name == "" {
		fresh.Name = team.FallbackTeamName(key.TeamID)
	}
	if fresh.LeagueName == "" {
		fresh.LeagueName = team.FallbackLeagueName(key.LeagueID)
	}

	// Re-read the store at merge time: manual overrides that landed while
	// the summary fetch was in flight must survive the rebuild.
	if current, ok := s.teams.Get(key); ok {
		fresh.CreatedAt = current.CreatedAt
		fresh = MergeManualIntoFetched(current, fresh)
	}

	discovered := FindTeamMatchesInLeague(srcLeague, key.TeamID)
	for _, d := range discovered {
		if prior, ok := fresh.Matches[d.MatchID]; ok && d.Side == team.SideUnknown {
			d.Side = prior.Side
		}
		fresh.Matches[d.MatchID] = team.MatchParticipation{
			MatchID:   d.MatchID,
			Opponent:  team.OpponentLoading,
			LeagueID:  key.LeagueID,
			Side:      d.Side,
			PickOrder: team.PickUnknown,
		}
	}
	fresh.RecomputePerformance()

	if ctx.Err() != nil {
		return nil
	}
	s.teams.Upsert(key, fresh)

	targets := make([]DiscoveredMatch, 0, len(fresh.Matches))
	for id, part := range fresh.Matches {
		targets = append(targets, DiscoveredMatch{MatchID: id, Side: part.Side})
	}
	s.processMatches(ctx, key, targets)

	if ctx.Err() != nil {
		return nil
	}
	s.finalizeTeam(key)

	s.logger.InfoContext(ctx, "team cascade finished",
		"team_id", key.TeamID,
		"league_id", key.LeagueID,
		"matches", len(targets),
	)
	return nil
}

// recordSummaryFailure marks the record with the failure taxonomy while
// keeping whichever half of the summary did arrive.
func (s *TrackerService) recordSummaryFailure(ctx context.Context, key team.Key, srcTeam SourceTeam, srcLeague SourceLeague, teamErr, leagueErr error) {
	kind := team.FailureBoth
	var cause error
	switch {
	case teamErr != nil && leagueErr != nil:
		kind = team.FailureBoth
		cause = crerr.CombineErrors(teamErr, leagueErr)
	case teamErr != nil:
		kind = team.FailureTeam
		cause = teamErr
	default:
		kind = team.FailureLeague
		cause = leagueErr
	}

	s.teams.Mutate(key, func(t *team.TrackedTeam) {
		if teamErr == nil && srcTeam.Name != "" {
			t.Name = srcTeam.Name
			t.Tag = srcTeam.Tag
		}
		if leagueErr == nil && srcLeague.Name != "" {
			t.LeagueName = srcLeague.Name
			t.LeagueTier = srcLeague.Tier
		}
		t.Loading = false
		t.Failure = &team.Failure{Kind: kind, Message: cause.Error()}
	})

	s.logger.WarnContext(ctx, "team summary fetch failed",
		"team_id", key.TeamID,
		"league_id", key.LeagueID,
		"kind", string(kind),
		"error", cause,
	)
}

// processMatches fans the match targets out over a bounded worker pool.
// Each target runs under its own team-scoped operation key so a team
// removal or refresh can cancel exactly this team's share of the work.
func (s *TrackerService) processMatches(ctx context.Context, key team.Key, targets []DiscoveredMatch) {
	if len(targets) == 0 {
		return
	}

	size := s.workers
	if len(targets) < size {
		size = len(targets)
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		s.logger.ErrorContext(ctx, "worker pool unavailable, processing serially", "error", err)
		for _, target := range targets {
			s.processOneMatch(ctx, key, target)
		}
		return
	}
	defer pool.Release()

	var pending sync.WaitGroup
	for _, target := range targets {
		target := target
		pending.Add(1)
		task := func() {
			defer pending.Done()
			s.processOneMatch(ctx, key, target)
		}
		if err := pool.Submit(task); err != nil {
			pending.Done()
			s.processOneMatch(ctx, key, target)
		}
	}
	pending.Wait()
}

func (s *TrackerService) processOneMatch(ctx context.Context, key team.Key, target DiscoveredMatch) {
	op := s.registry.Acquire(ctx, opkey.TeamMatch(key.TeamID, key.LeagueID, target.MatchID))
	defer s.registry.Release(op)

	part, err := s.processor.Process(op.Context(), target.MatchID, key.TeamID, target.Side)
	if err != nil {
		if IsAborted(err) {
			return
		}
		// Failure stays scoped to the match entity; the team keeps its
		// placeholder participation.
		s.logger.WarnContext(ctx, "match processing failed",
			"team_id", key.TeamID,
			"match_id", target.MatchID,
			"error", err,
		)
		return
	}
	if part == nil || op.Context().Err() != nil {
		return
	}

	roster := s.rosterFromMatch(target.MatchID, part.Side)
	s.teams.Mutate(key, func(t *team.TrackedTeam) {
		t.Matches[target.MatchID] = *part
		for accountID, rosterPlayer := range roster {
			if existing, ok := t.Players[accountID]; ok {
				if existing.Name != team.OpponentLoading {
					continue
				}
				rosterPlayer.Manual = existing.Manual
			}
			t.Players[accountID] = rosterPlayer
		}
		t.RecomputePerformance()
	})
}

// rosterFromMatch derives this team's roster slots from a settled match.
// Slots without a name stay as loading placeholders for the watcher to
// upgrade from the player store.
func (s *TrackerService) rosterFromMatch(matchID int64, side team.Side) map[int64]team.RosterPlayer {
	if side != team.SideRadiant && side != team.SideDire {
		return nil
	}
	entry, ok := s.matches.GetMatch(matchID)
	if !ok || entry.Loading || entry.Err != nil {
		return nil
	}

	wantRadiant := side == team.SideRadiant
	out := make(map[int64]team.RosterPlayer)
	for _, slot := range entry.Value.Participants {
		if slot.AccountID <= 0 || slot.IsRadiant != wantRadiant {
			continue
		}
		name := slot.Name
		if name == "" {
			name = team.OpponentLoading
		}
		out[slot.AccountID] = team.RosterPlayer{AccountID: slot.AccountID, Name: name}
	}
	return out
}

// finalizeTeam recomputes the rollup and clears the loading flag if the
// whole subtree already settled. Otherwise the watcher clears it when the
// last entity lands.
func (s *TrackerService) finalizeTeam(key team.Key) {
	s.teams.Mutate(key, func(t *team.TrackedTeam) {
		t.RecomputePerformance()
		if t.Loading && SubtreeSettled(t.MatchIDs(), s.matches, s.players) {
			t.Loading = false
		}
	})
}

// RemoveTeam untracks a team: every in-flight operation under the team's
// key prefix is cancelled, the record disappears, the selection is cleared
// if it pointed here, and the persisted roster entry is dropped. Removing
// an unknown team is a no-op.
func (s *TrackerService) RemoveTeam(ctx context.Context, key team.Key) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackerService.RemoveTeam")
	defer span.End()

	if err := key.Validate(); err != nil {
		return crerr.WithSecondaryError(crerr.Wrapf(ErrInvalidInput, "remove team"), err)
	}

	cancelled := s.registry.CancelPrefix(opkey.TeamPrefix(key.TeamID, key.LeagueID))
	removed := s.teams.Remove(key)

	if s.selection != nil {
		s.selection.Clear(key)
	}
	if s.roster != nil && removed {
		if err := s.roster.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "roster delete failed", "team_id", key.TeamID, "league_id", key.LeagueID, "error", err)
		}
	}

	if removed || cancelled > 0 {
		s.logger.InfoContext(ctx, "team removed",
			"team_id", key.TeamID,
			"league_id", key.LeagueID,
			"cancelled_ops", cancelled,
		)
	}
	return nil
}

// EditTeam retargets a tracked slot from oldKey to newKey. Composed as
// remove-then-add, so it is not atomic: a crash in between loses the old
// record without gaining the new one, which a restart repairs from the
// roster store.
func (s *TrackerService) EditTeam(ctx context.Context, oldKey, newKey team.Key) error {
	if err := oldKey.Validate(); err != nil {
		return crerr.WithSecondaryError(crerr.Wrapf(ErrInvalidInput, "edit team"), err)
	}
	if err := newKey.Validate(); err != nil {
		return crerr.WithSecondaryError(crerr.Wrapf(ErrInvalidInput, "edit team"), err)
	}
	if oldKey == newKey {
		return s.RefreshTeam(ctx, oldKey)
	}
	if _, exists := s.teams.Get(oldKey); !exists {
		return crerr.Wrapf(ErrNotFound, "team %s", oldKey)
	}

	if err := s.RemoveTeam(ctx, oldKey); err != nil {
		return err
	}
	return s.AddTeam(ctx, newKey, false)
}

// Bootstrap restores every persisted roster entry: placeholder records with
// their manual overrides appear immediately, then the cascades run
// concurrently.
func (s *TrackerService) Bootstrap(ctx context.Context) error {
	if s.roster == nil {
		return nil
	}
	entries, err := s.roster.List(ctx)
	if err != nil {
		return crerr.Wrap(err, "list persisted rosters")
	}
	return s.LoadTeamsFromConfig(ctx, entries)
}

// LoadTeamsFromConfig seeds one placeholder per entry, manual overrides
// included, before any network traffic, then fetches all teams
// concurrently. Invalid entries are skipped with a warning rather than
// failing the whole load.
func (s *TrackerService) LoadTeamsFromConfig(ctx context.Context, entries []RosterEntry) error {
	valid := make([]RosterEntry, 0, len(entries))
	for _, entry := range entries {
		if err := entry.Key.Validate(); err != nil {
			s.logger.WarnContext(ctx, "skipping invalid roster entry",
				"team_id", entry.Key.TeamID,
				"league_id", entry.Key.LeagueID,
				"error", err,
			)
			continue
		}
		valid = append(valid, entry)
	}

	for _, entry := range valid {
		if _, exists := s.teams.Get(entry.Key); exists {
			continue
		}
		placeholder := team.NewPlaceholder(entry.Key, s.now())
		for id, side := range entry.ManualMatches {
			if id <= 0 {
				continue
			}
			placeholder.ManualMatches[id] = side
			placeholder.Matches[id] = team.MatchParticipation{
				MatchID:   id,
				Opponent:  team.OpponentUnknown,
				Side:      side,
				PickOrder: team.PickUnknown,
			}
		}
		for _, accountID := range entry.ManualPlayers {
			if accountID <= 0 || placeholder.HasManualPlayer(accountID) {
				continue
			}
			placeholder.ManualPlayers = append(placeholder.ManualPlayers, accountID)
			placeholder.Players[accountID] = team.RosterPlayer{
				AccountID: accountID,
				Name:      team.OpponentLoading,
				Manual:    true,
			}
		}
		placeholder.RecomputePerformance()
		s.teams.Upsert(entry.Key, placeholder)
	}

	var loads conc.WaitGroup
	for _, entry := range valid {
		entry := entry
		loads.Go(func() {
			if err := s.AddTeam(ctx, entry.Key, true); err != nil {
				s.logger.WarnContext(ctx, "config team load failed",
					"team_id", entry.Key.TeamID,
					"league_id", entry.Key.LeagueID,
					"error", err,
				)
			}
		})
	}
	loads.Wait()
	return nil
}

// LoadManualMatches declares matches the team played that discovery missed.
// Already-declared ids are skipped; new ones get a placeholder immediately
// and are processed through the normal cascade.
func (s *TrackerService) LoadManualMatches(ctx context.Context, key team.Key, manual map[int64]team.Side) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackerService.LoadManualMatches")
	defer span.End()

	if err := key.Validate(); err != nil {
		return crerr.WithSecondaryError(crerr.Wrapf(ErrInvalidInput, "load manual matches"), err)
	}
	if _, exists := s.teams.Get(key); !exists {
		return crerr.Wrapf(ErrNotFound, "team %s", key)
	}

	var added []DiscoveredMatch
	s.teams.Mutate(key, func(t *team.TrackedTeam) {
		for id, side := range manual {
			if id <= 0 {
				continue
			}
			side = team.NormalizeSide(string(side))
			if _, dup := t.ManualMatches[id]; dup {
				continue
			}
			t.ManualMatches[id] = side
			if _, ok := t.Matches[id]; !ok {
				t.Matches[id] = team.MatchParticipation{
					MatchID:   id,
					Opponent:  team.OpponentUnknown,
					Side:      side,
					PickOrder: team.PickUnknown,
				}
			}
			added = append(added, DiscoveredMatch{MatchID: id, Side: side})
		}
		if len(added) > 0 {
			t.Loading = true
			t.RecomputePerformance()
		}
	})
	if len(added) == 0 {
		return nil
	}

	s.processMatches(ctx, key, added)
	s.finalizeTeam(key)
	s.persistRoster(ctx, key)
	return nil
}

// LoadManualPlayers pins players onto the team roster. Name resolution
// happens in the background; the pins appear immediately as loading
// entries.
func (s *TrackerService) LoadManualPlayers(ctx context.Context, key team.Key, accountIDs []int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.TrackerService.LoadManualPlayers")
	defer span.End()

	if err := key.Validate(); err != nil {
		return crerr.WithSecondaryError(crerr.Wrapf(ErrInvalidInput, "load manual players"), err)
	}
	if _, exists := s.teams.Get(key); !exists {
		return crerr.Wrapf(ErrNotFound, "team %s", key)
	}

	var added []int64
	s.teams.Mutate(key, func(t *team.TrackedTeam) {
		for _, accountID := range accountIDs {
			if accountID <= 0 || t.HasManualPlayer(accountID) {
				continue
			}
			t.ManualPlayers = append(t.ManualPlayers, accountID)
			if existing, ok := t.Players[accountID]; ok {
				existing.Manual = true
				t.Players[accountID] = existing
			} else {
				t.Players[accountID] = team.RosterPlayer{
					AccountID: accountID,
					Name:      team.OpponentLoading,
					Manual:    true,
				}
			}
			added = append(added, accountID)
		}
	})

	for _, accountID := range added {
		accountID := accountID
		op := s.registry.Acquire(ctx, opkey.TeamPlayer(key.TeamID, key.LeagueID, accountID))
		s.background.Go(func() {
			defer s.registry.Release(op)
			s.playerFetcher.EnsurePlayer(op.Context(), accountID)
		})
	}
	if len(added) > 0 {
		s.persistRoster(ctx, key)
	}
	return nil
}

// RemoveManualMatch withdraws a manual declaration and its participation,
// cancelling the processing in flight for it.
func (s *TrackerService) RemoveManualMatch(ctx context.Context, key team.Key, matchID int64) error {
	if err := key.Validate(); err != nil {
		return crerr.WithSecondaryError(crerr.Wrapf(ErrInvalidInput, "remove manual match"), err)
	}
	record, exists := s.teams.Get(key)
	if !exists {
		return crerr.Wrapf(ErrNotFound, "team %s", key)
	}
	if _, ok := record.ManualMatches[matchID]; !ok {
		return crerr.Wrapf(ErrNotFound, "manual match %d on team %s", matchID, key)
	}

	s.registry.Cancel(opkey.TeamMatch(key.TeamID, key.LeagueID, matchID))
	s.teams.Mutate(key, func(t *team.TrackedTeam) {
		delete(t.ManualMatches, matchID)
		delete(t.Matches, matchID)
		t.RecomputePerformance()
	})
	s.persistRoster(ctx, key)
	return nil
}

// RemoveManualPlayer unpins a player. The roster entry disappears only if
// it existed solely because of the pin; a player also discovered from
// matches stays.
func (s *TrackerService) RemoveManualPlayer(ctx context.Context, key team.Key, accountID int64) error {
	if err := key.Validate(); err != nil {
		return crerr.WithSecondaryError(crerr.Wrapf(ErrInvalidInput, "remove manual player"), err)
	}
	record, exists := s.teams.Get(key)
	if !exists {
		return crerr.Wrapf(ErrNotFound, "team %s", key)
	}
	if !record.HasManualPlayer(accountID) {
		return crerr.Wrapf(ErrNotFound, "manual player %d on team %s", accountID, key)
	}

	s.registry.Cancel(opkey.TeamPlayer(key.TeamID, key.LeagueID, accountID))
	discovered := s.playerDiscovered(record, accountID)
	s.teams.Mutate(key, func(t *team.TrackedTeam) {
		kept := make([]int64, 0, len(t.ManualPlayers))
		for _, id := range t.ManualPlayers {
			if id != accountID {
				kept = append(kept, id)
			}
		}
		t.ManualPlayers = kept
		rosterPlayer, ok := t.Players[accountID]
		if !ok {
			return
		}
		if discovered {
			rosterPlayer.Manual = false
			t.Players[accountID] = rosterPlayer
		} else {
			delete(t.Players, accountID)
		}
	})
	s.persistRoster(ctx, key)
	return nil
}

// playerDiscovered reports whether accountID appears on the team's side in
// any of the record's settled matches, i.e. whether the roster entry has
// evidence beyond a manual pin.
func (s *TrackerService) playerDiscovered(record team.TrackedTeam, accountID int64) bool {
	for matchID, part := range record.Matches {
		if part.Side != team.SideRadiant && part.Side != team.SideDire {
			continue
		}
		entry, ok := s.matches.GetMatch(matchID)
		if !ok || entry.Loading || entry.Err != nil {
			continue
		}
		wantRadiant := part.Side == team.SideRadiant
		for _, slot := range entry.Value.Participants {
			if slot.AccountID == accountID && slot.IsRadiant == wantRadiant {
				return true
			}
		}
	}
	return false
}

// EditManualMatch replaces one manual declaration with another. The
// duplicate check runs before any mutation: pointing at an id the team
// already carries fails fast with ErrDuplicateOverride and changes
// nothing.
func (s *TrackerService) EditManualMatch(ctx context.Context, key team.Key, oldMatchID, newMatchID int64, side team.Side) error {
	if err := key.Validate(); err != nil {
		return crerr.WithSecondaryError(crerr.Wrapf(ErrInvalidInput, "edit manual match"), err)
	}
	if newMatchID <= 0 {
		return crerr.Wrapf(ErrInvalidInput, "match id %d", newMatchID)
	}
	record, exists := s.teams.Get(key)
	if !exists {
		return crerr.Wrapf(ErrNotFound, "team %s", key)
	}
	if _, ok := record.ManualMatches[oldMatchID]; !ok {
		return crerr.Wrapf(ErrNotFound, "manual match %d on team %s", oldMatchID, key)
	}
	if newMatchID != oldMatchID && record.HasMatch(newMatchID) {
		return crerr.Wrapf(ErrDuplicateOverride, "match %d on team %s", newMatchID, key)
	}

	if err := s.RemoveManualMatch(ctx, key, oldMatchID); err != nil {
		return err
	}
	return s.LoadManualMatches(ctx, key, map[int64]team.Side{newMatchID: side})
}

// SelectTeam focuses a tracked team.
func (s *TrackerService) SelectTeam(key team.Key) error {
	if s.selection == nil {
		return crerr.Wrap(ErrInvalidInput, "selection is not enabled")
	}
	if _, exists := s.teams.Get(key); !exists {
		return crerr.Wrapf(ErrNotFound, "team %s", key)
	}
	s.selection.Set(key)
	return nil
}

// ActiveTeam reports the focused record, if any.
func (s *TrackerService) ActiveTeam() (team.TrackedTeam, bool) {
	if s.selection == nil {
		return team.TrackedTeam{}, false
	}
	key, ok := s.selection.Active()
	if !ok {
		return team.TrackedTeam{}, false
	}
	return s.teams.Get(key)
}

// GetTeam reads one tracked record.
func (s *TrackerService) GetTeam(key team.Key) (team.TrackedTeam, error) {
	record, ok := s.teams.Get(key)
	if !ok {
		return team.TrackedTeam{}, crerr.Wrapf(ErrNotFound, "team %s", key)
	}
	return record, nil
}

// ListTeams reads all tracked records in presentation order.
func (s *TrackerService) ListTeams() []team.TrackedTeam {
	return s.teams.List()
}

// Wait blocks until the background work spawned by manual player loads
// finishes. Meant for shutdown and tests.
func (s *TrackerService) Wait() {
	s.background.Wait()
}

// persistRoster mirrors the team's manual overrides into the roster store,
// best effort.
func (s *TrackerService) persistRoster(ctx context.Context, key team.Key) {
	if s.roster == nil {
		return
	}
	record, ok := s.teams.Get(key)
	if !ok {
		return
	}

	entry := RosterEntry{
		Key:           key,
		ManualMatches: make(map[int64]team.Side, len(record.ManualMatches)),
		ManualPlayers: append([]int64(nil), record.ManualPlayers...),
	}
	for id, side := range record.ManualMatches {
		entry.ManualMatches[id] = side
	}

	if err := s.roster.Upsert(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.WarnContext(ctx, "roster persist failed",
			"team_id", key.TeamID,
			"league_id", key.LeagueID,
			"error", err,
		)
	}
}
