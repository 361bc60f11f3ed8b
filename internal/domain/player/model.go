// Package player holds the globally shared player entity.
package player

type Player struct {
	AccountID int64
	Name      string
	AvatarURL string
	RankTier  int
	TeamID    int64
}
