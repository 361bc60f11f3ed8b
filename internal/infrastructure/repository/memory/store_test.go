package memory

import (
	"reflect"
	"testing"
	"time"

	"github.com/riskibarqy/dota-tracker/internal/domain/match"
	"github.com/riskibarqy/dota-tracker/internal/domain/team"
)

func TestSnapshotIdentityChangesOnlyOnWrite(t *testing.T) {
	s := NewStore[int64, string]()

	before := s.Snapshot()
	again := s.Snapshot()
	if len(before) != 0 {
		t.Fatal("fresh store must expose an empty snapshot")
	}
	if !sameMap(before, again) {
		t.Fatal("snapshots without intervening writes must be the identical map")
	}

	s.Upsert(1, "a")
	after := s.Snapshot()
	if sameMap(before, after) {
		t.Fatal("a write must produce a new map")
	}
	if len(before) != 0 {
		t.Fatal("old snapshot must stay frozen")
	}
	if after[1] != "a" {
		t.Fatal("new snapshot must carry the write")
	}
}

// sameMap compares backing-map identity, not content.
func sameMap[K comparable, V any](a, b map[K]V) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func TestWatchCoalescesNotifications(t *testing.T) {
	s := NewStore[int64, int]()

	s.Upsert(1, 1)
	s.Upsert(2, 2)
	s.Upsert(3, 3)

	select {
	case <-s.Watch():
	case <-time.After(time.Second):
		t.Fatal("expected a pending change signal")
	}

	select {
	case <-s.Watch():
		t.Fatal("signals must coalesce into a single pending notification")
	default:
	}
}

func TestTeamStoreMutateClonesBeforeWriting(t *testing.T) {
	s := NewTeamStore()
	key := team.Key{TeamID: 1, LeagueID: 2}
	s.Upsert(key, team.NewPlaceholder(key, time.Unix(0, 0)))

	before, _ := s.Get(key)
	ok := s.Mutate(key, func(record *team.TrackedTeam) {
		record.Matches[5] = team.MatchParticipation{MatchID: 5, Opponent: team.OpponentLoading}
	})
	if !ok {
		t.Fatal("mutate must report success for an existing record")
	}

	if len(before.Matches) != 0 {
		t.Fatal("mutation must not touch the previously read record")
	}
	after, _ := s.Get(key)
	if len(after.Matches) != 1 {
		t.Fatal("mutation must be visible in a fresh read")
	}

	if s.Mutate(team.Key{TeamID: 9, LeagueID: 9}, func(*team.TrackedTeam) {}) {
		t.Fatal("mutate must report failure for an absent record")
	}
}

func TestEntityStoreAddOwnsFetchOnce(t *testing.T) {
	s := NewMatchStore()

	if !s.AddMatch(10) {
		t.Fatal("first add must own the fetch")
	}
	if s.AddMatch(10) {
		t.Fatal("second add while loading must not own the fetch")
	}

	s.Resolve(10, match.Match{ID: 10, RadiantName: "OG"})
	if s.AddMatch(10) {
		t.Fatal("add on a resolved entry must not re-fetch")
	}

	s.Fail(11, errTest)
	if !s.AddMatch(11) {
		t.Fatal("add on an errored entry must retry")
	}

	entry, ok := s.GetMatch(10)
	if !ok || entry.Loading || entry.Err != nil || entry.Value.RadiantName != "OG" {
		t.Fatalf("unexpected resolved entry: %+v", entry)
	}
	if !entry.Settled() {
		t.Fatal("resolved entry must be settled")
	}

	loading, _ := s.GetMatch(11)
	if loading.Settled() {
		t.Fatal("loading entry must not be settled")
	}
}

var errTest = errTestType{}

type errTestType struct{}

func (errTestType) Error() string { return "boom" }
