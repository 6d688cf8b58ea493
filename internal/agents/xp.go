// Package agents holds the collaborator services the orchestrator routes
// intents to: tasks, calendar, email, weather, gamification, contacts, chat,
// and reporting.
package agents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/presentos/presentos/internal/store"
	"github.com/presentos/presentos/pkg/models"
)

// avatarColors are the fixed UI colors for the four PAEI personas.
var avatarColors = map[models.Avatar]string{
	models.AvatarProducer:      "#FF6B6B",
	models.AvatarAdministrator: "#4ECDC4",
	models.AvatarEntrepreneur:  "#FFE66D",
	models.AvatarIntegrator:    "#95E1D3",
}

// baseXP is the XP value per priority.
var baseXP = map[models.Priority]int{
	models.PriorityP1: 50,
	models.PriorityP2: 30,
	models.PriorityP3: 20,
	models.PriorityP4: 10,
}

// XPService owns the gamification ledger: per-avatar XP, levels, and
// level-up achievements.
type XPService struct {
	store store.XPStore
}

// NewXPService creates the XP service over the given ledger store.
func NewXPService(s store.XPStore) *XPService {
	return &XPService{store: s}
}

// state fetches the ledger entry, seeding a fresh level-1 entry when absent.
func (x *XPService) state(ctx context.Context, avatar models.Avatar) (*models.AvatarState, error) {
	st, err := x.store.GetAvatarState(ctx, avatar)
	if err == nil {
		return st, nil
	}
	var notFound *store.ErrNotFound
	if !errors.As(err, &notFound) {
		return nil, err
	}
	return &models.AvatarState{
		Avatar: avatar,
		Level:  1,
		XP:     0,
		Color:  avatarColors[avatar],
	}, nil
}

// AwardXP adds XP to an avatar and records an achievement on level-up.
func (x *XPService) AwardXP(ctx context.Context, avatar models.Avatar, amount int, reason string) (*models.AwardResult, error) {
	if !avatar.Valid() {
		return nil, fmt.Errorf("invalid avatar %q", avatar)
	}
	if reason == "" {
		reason = "Task completed"
	}

	st, err := x.state(ctx, avatar)
	if err != nil {
		return nil, err
	}

	oldLevel := st.Level
	st.XP += amount
	newLevel := st.XP/models.XPPerLevel + 1
	leveledUp := newLevel > oldLevel
	if leveledUp {
		st.Level = newLevel
	}

	if err := x.store.UpsertAvatarState(ctx, st); err != nil {
		return nil, err
	}

	if leveledUp {
		achievement := &models.Achievement{
			Avatar:      avatar,
			Title:       fmt.Sprintf("%s Level %d!", avatar, newLevel),
			Description: fmt.Sprintf("Reached level %d", newLevel),
			Timestamp:   time.Now(),
			Icon:        "trophy",
		}
		if err := x.store.AppendAchievement(ctx, achievement); err != nil {
			log.Warn().Err(err).Msg("Failed to record achievement")
		}
		log.Info().Str("avatar", string(avatar)).Int("level", newLevel).Msg("Avatar leveled up")
	}

	return &models.AwardResult{
		Avatar:        avatar,
		XPAwarded:     amount,
		Reason:        reason,
		NewXP:         st.XP,
		NewLevel:      newLevel,
		LeveledUp:     leveledUp,
		XPToNextLevel: models.XPPerLevel - st.XP%models.XPPerLevel,
	}, nil
}

// AvatarStatus returns the derived progress view for one avatar.
func (x *XPService) AvatarStatus(ctx context.Context, avatar models.Avatar) (*models.AvatarStatus, error) {
	if !avatar.Valid() {
		return nil, fmt.Errorf("invalid avatar %q", avatar)
	}

	st, err := x.state(ctx, avatar)
	if err != nil {
		return nil, err
	}

	xpInLevel := st.XP % models.XPPerLevel
	return &models.AvatarStatus{
		Avatar:          avatar,
		Level:           st.Level,
		TotalXP:         st.XP,
		XPInLevel:       xpInLevel,
		XPToNextLevel:   models.XPPerLevel - xpInLevel,
		ProgressPercent: float64(xpInLevel) / models.XPPerLevel * 100,
		Color:           st.Color,
	}, nil
}

// AllAvatars returns the status of all four personas.
func (x *XPService) AllAvatars(ctx context.Context) ([]models.AvatarStatus, error) {
	out := make([]models.AvatarStatus, 0, 4)
	for _, avatar := range models.Avatars() {
		status, err := x.AvatarStatus(ctx, avatar)
		if err != nil {
			return nil, err
		}
		out = append(out, *status)
	}
	return out, nil
}

// Achievements returns the most recent level-ups, newest first.
func (x *XPService) Achievements(ctx context.Context, limit int) ([]models.Achievement, error) {
	if limit <= 0 {
		limit = 10
	}
	return x.store.ListAchievements(ctx, limit)
}

// CalculateTaskXP computes XP for a task from its priority and complexity.
func CalculateTaskXP(priority models.Priority, complexity string) int {
	xp, ok := baseXP[priority]
	if !ok {
		xp = 20
	}

	multiplier := 1.0
	switch complexity {
	case "low":
		multiplier = 1.0
	case "medium":
		multiplier = 1.5
	case "high":
		multiplier = 2.0
	}
	return int(float64(xp) * multiplier)
}

// Leaderboard ranks the avatars by level, then total XP.
func (x *XPService) Leaderboard(ctx context.Context) ([]models.AvatarStatus, error) {
	avatars, err := x.AllAvatars(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(avatars, func(i, j int) bool {
		if avatars[i].Level != avatars[j].Level {
			return avatars[i].Level > avatars[j].Level
		}
		return avatars[i].TotalXP > avatars[j].TotalXP
	})
	return avatars, nil
}

// DailySummary reports today's achievements and the total XP across avatars.
type DailySummary struct {
	Date         string               `json:"date"`
	Achievements int                  `json:"achievements"`
	TotalXP      int                  `json:"total_xp_earned"`
	Recent       []models.Achievement `json:"recent_achievements"`
}

// Summary builds the daily XP summary.
func (x *XPService) Summary(ctx context.Context) (*DailySummary, error) {
	today := time.Now().Format("2006-01-02")

	all, err := x.store.ListAchievements(ctx, 0)
	if err != nil {
		return nil, err
	}
	var todays []models.Achievement
	for _, a := range all {
		if a.Timestamp.Format("2006-01-02") == today {
			todays = append(todays, a)
		}
	}
	if len(todays) > 5 {
		todays = todays[:5]
	}

	states, err := x.store.ListAvatarStates(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, st := range states {
		total += st.XP
	}

	return &DailySummary{
		Date:         today,
		Achievements: len(todays),
		TotalXP:      total,
		Recent:       todays,
	}, nil
}
