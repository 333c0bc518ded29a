package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"luckysix/internal/model"
)

// DrawRepository defines draw persistence operations. The round pass runs
// inside WithTransaction and reads through the ForUpdate variants, which take
// row-level locks: transaction isolation alone does not serialize concurrent
// round operations under repeatable-read, the locks do. A draw submitted
// mid-pass cannot escape evaluation or be evaluated twice.
type DrawRepository interface {
	Create(ctx context.Context, draw *model.Draw) error
	Update(ctx context.Context, draw *model.Draw) error
	Delete(ctx context.Context, draw *model.Draw) error
	FindUnplayedByUser(ctx context.Context, userID uint) ([]model.Draw, error)
	FindPlayedByUser(ctx context.Context, userID uint) ([]model.Draw, error)
	FindUnplayedMasterDraw(ctx context.Context) (*model.Draw, error)
	FindMasterDrawForUpdate(ctx context.Context) (*model.Draw, error)
	FindUnplayedMasterDrawForUpdate(ctx context.Context) (*model.Draw, error)
	FindUnplayedUserDrawsForUpdate(ctx context.Context) ([]model.Draw, error)
	DeletePlayedByUser(ctx context.Context, userID uint) error
	// WithTransaction executes fn against a repository bound to one transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo DrawRepository) error) error
}

type drawRepository struct {
	db *gorm.DB
}

// NewDrawRepository creates a new draw repository.
func NewDrawRepository(db *gorm.DB) DrawRepository {
	return &drawRepository{db: db}
}

// Create creates a new draw.
func (r *drawRepository) Create(ctx context.Context, draw *model.Draw) error {
	return r.db.WithContext(ctx).Create(draw).Error
}

// Update updates an existing draw.
func (r *drawRepository) Update(ctx context.Context, draw *model.Draw) error {
	return r.db.WithContext(ctx).Save(draw).Error
}

// Delete removes a draw.
func (r *drawRepository) Delete(ctx context.Context, draw *model.Draw) error {
	return r.db.WithContext(ctx).Delete(draw).Error
}

// FindUnplayedByUser returns the user's draws waiting for the next round.
func (r *drawRepository) FindUnplayedByUser(ctx context.Context, userID uint) ([]model.Draw, error) {
	var draws []model.Draw
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND been_played = ? AND master_draw = ?", userID, false, false).
		Find(&draws).Error; err != nil {
		return nil, err
	}
	return draws, nil
}

// FindPlayedByUser returns the user's draws already evaluated in a round.
func (r *drawRepository) FindPlayedByUser(ctx context.Context, userID uint) ([]model.Draw, error) {
	var draws []model.Draw
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND been_played = ? AND master_draw = ?", userID, true, false).
		Find(&draws).Error; err != nil {
		return nil, err
	}
	return draws, nil
}

// FindUnplayedMasterDraw returns the winning draw for the round not yet run.
func (r *drawRepository) FindUnplayedMasterDraw(ctx context.Context) (*model.Draw, error) {
	var draw model.Draw
	if err := r.db.WithContext(ctx).
		Where("master_draw = ? AND been_played = ?", true, false).
		First(&draw).Error; err != nil {
		return nil, err
	}
	return &draw, nil
}

// FindMasterDrawForUpdate returns the winning draw row, played or not, with a
// row-level lock. Call within a transaction.
func (r *drawRepository) FindMasterDrawForUpdate(ctx context.Context) (*model.Draw, error) {
	var draw model.Draw
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("master_draw = ?", true).
		Order("lottery_round DESC").
		First(&draw).Error; err != nil {
		return nil, err
	}
	return &draw, nil
}

// FindUnplayedMasterDrawForUpdate finds the unplayed winning draw with a
// row-level lock within a transaction. Concurrent round passes queue on this
// lock, so only the first sees the master as unplayed.
func (r *drawRepository) FindUnplayedMasterDrawForUpdate(ctx context.Context) (*model.Draw, error) {
	var draw model.Draw
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("master_draw = ? AND been_played = ?", true, false).
		First(&draw).Error; err != nil {
		return nil, err
	}
	return &draw, nil
}

// FindUnplayedUserDrawsForUpdate returns every outstanding non-master draw
// with row-level locks within a transaction.
func (r *drawRepository) FindUnplayedUserDrawsForUpdate(ctx context.Context) ([]model.Draw, error) {
	var draws []model.Draw
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("master_draw = ? AND been_played = ?", false, false).
		Find(&draws).Error; err != nil {
		return nil, err
	}
	return draws, nil
}

// DeletePlayedByUser removes the user's played non-master draws. Deleting
// nothing is not an error.
func (r *drawRepository) DeletePlayedByUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND been_played = ? AND master_draw = ?", userID, true, false).
		Delete(&model.Draw{}).Error
}

// WithTransaction executes a function within a database transaction.
func (r *drawRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo DrawRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &drawRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
