package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/lewtip97/fives-app/internal/league"
)

const insertBatch = 200

func playerKeyWhere(db *gorm.DB, k league.PlayerKey) *gorm.DB {
	return db.Where("player_id = ? AND team_id = ? AND season = ?", k.PlayerID, k.TeamID, k.Season)
}

func teamKeyWhere(db *gorm.DB, k league.TeamKey) *gorm.DB {
	return db.Where("team_id = ? AND season = ?", k.TeamID, k.Season)
}

// ReplacePlayerStats swaps the gameweek rows stored for key with recs in one
// transaction.
func (s *Store) ReplacePlayerStats(ctx context.Context, key league.PlayerKey, recs []league.PlayerGameweekStat) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := playerKeyWhere(tx, key).Delete(&league.PlayerGameweekStat{}).Error; err != nil {
			return fmt.Errorf("deleting player stats %s: %w", key, err)
		}
		if len(recs) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(recs, insertBatch).Error; err != nil {
			return fmt.Errorf("inserting player stats %s: %w", key, err)
		}
		return nil
	})
}

func (s *Store) ReplaceTeamStats(ctx context.Context, key league.TeamKey, recs []league.TeamStat) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := teamKeyWhere(tx, key).Delete(&league.TeamStat{}).Error; err != nil {
			return fmt.Errorf("deleting team stats %s: %w", key, err)
		}
		if len(recs) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(recs, insertBatch).Error; err != nil {
			return fmt.Errorf("inserting team stats %s: %w", key, err)
		}
		return nil
	})
}

func (s *Store) ReplacePlayerSeasonStats(ctx context.Context, key league.PlayerKey, recs []league.PlayerSeasonStat) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := playerKeyWhere(tx, key).Delete(&league.PlayerSeasonStat{}).Error; err != nil {
			return fmt.Errorf("deleting player season stats %s: %w", key, err)
		}
		if len(recs) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(recs, insertBatch).Error; err != nil {
			return fmt.Errorf("inserting player season stats %s: %w", key, err)
		}
		return nil
	})
}

func (s *Store) PlayerStatKeys(ctx context.Context, scope league.Scope) ([]league.PlayerKey, error) {
	return s.playerKeys(ctx, &league.PlayerGameweekStat{}, scope)
}

func (s *Store) PlayerSeasonStatKeys(ctx context.Context, scope league.Scope) ([]league.PlayerKey, error) {
	return s.playerKeys(ctx, &league.PlayerSeasonStat{}, scope)
}

func (s *Store) playerKeys(ctx context.Context, model any, scope league.Scope) ([]league.PlayerKey, error) {
	var keys []league.PlayerKey
	err := scoped(s.DB.WithContext(ctx).Model(model), scope).
		Distinct("player_id", "team_id", "season").
		Order("team_id, season, player_id").
		Scan(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("listing player keys: %w", err)
	}
	return keys, nil
}

func (s *Store) TeamStatKeys(ctx context.Context, scope league.Scope) ([]league.TeamKey, error) {
	var keys []league.TeamKey
	err := scoped(s.DB.WithContext(ctx).Model(&league.TeamStat{}), scope).
		Distinct("team_id", "season").
		Order("team_id, season").
		Scan(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("listing team keys: %w", err)
	}
	return keys, nil
}

func (s *Store) DeletePlayerStats(ctx context.Context, key league.PlayerKey) error {
	if err := playerKeyWhere(s.DB.WithContext(ctx), key).Delete(&league.PlayerGameweekStat{}).Error; err != nil {
		return fmt.Errorf("deleting player stats %s: %w", key, err)
	}
	return nil
}

func (s *Store) DeleteTeamStats(ctx context.Context, key league.TeamKey) error {
	if err := teamKeyWhere(s.DB.WithContext(ctx), key).Delete(&league.TeamStat{}).Error; err != nil {
		return fmt.Errorf("deleting team stats %s: %w", key, err)
	}
	return nil
}

func (s *Store) DeletePlayerSeasonStats(ctx context.Context, key league.PlayerKey) error {
	if err := playerKeyWhere(s.DB.WithContext(ctx), key).Delete(&league.PlayerSeasonStat{}).Error; err != nil {
		return fmt.Errorf("deleting player season stats %s: %w", key, err)
	}
	return nil
}
