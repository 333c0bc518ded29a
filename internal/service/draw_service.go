package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"luckysix/internal/crypto"
	apperrors "luckysix/internal/errors"
	"luckysix/internal/model"
	"luckysix/internal/repository"
)

// DrawView is the transient, decrypted form of a draw returned for display.
// It is never written back to storage; the persisted entity stays encrypted.
type DrawView struct {
	ID            uint  `json:"id"`
	Numbers       []int `json:"numbers"`
	BeenPlayed    bool  `json:"been_played"`
	MatchesMaster bool  `json:"matches_master"`
	LotteryRound  int   `json:"lottery_round"`
}

// DrawService owns the lifecycle of user draws: submit, view, purge.
type DrawService interface {
	SubmitDraw(ctx context.Context, userID uint, numbers []int) (*model.Draw, error)
	ViewUnplayed(ctx context.Context, userID uint) ([]DrawView, error)
	ViewPlayed(ctx context.Context, userID uint) ([]DrawView, error)
	PurgePlayed(ctx context.Context, userID uint) error
}

type drawService struct {
	drawRepo repository.DrawRepository
	userRepo repository.UserRepository
}

// NewDrawService creates a new draw service.
func NewDrawService(drawRepo repository.DrawRepository, userRepo repository.UserRepository) DrawService {
	return &drawService{drawRepo: drawRepo, userRepo: userRepo}
}

func (s *drawService) findOwner(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// SubmitDraw validates the six numbers, encrypts them under the owner's key
// and stores the draw unplayed with round 0. The round is assigned when the
// draw is evaluated.
func (s *drawService) SubmitDraw(ctx context.Context, userID uint, numbers []int) (*model.Draw, error) {
	if err := validateNumbers(numbers); err != nil {
		return nil, err
	}

	owner, err := s.findOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	ciphertext, err := crypto.Encrypt([]byte(encodeNumbers(numbers)), owner.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt draw: %w", err)
	}

	draw := &model.Draw{
		UserID:       userID,
		Numbers:      ciphertext,
		BeenPlayed:   false,
		MasterDraw:   false,
		LotteryRound: 0,
	}

	if err := s.drawRepo.Create(ctx, draw); err != nil {
		return nil, fmt.Errorf("create draw: %w", err)
	}
	return draw, nil
}

// ViewUnplayed decrypts the user's outstanding draws for display. No draws is
// an empty result, not an error.
func (s *drawService) ViewUnplayed(ctx context.Context, userID uint) ([]DrawView, error) {
	owner, err := s.findOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	draws, err := s.drawRepo.FindUnplayedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find unplayed draws: %w", err)
	}
	return decryptViews(draws, owner.EncryptionKey)
}

// ViewPlayed decrypts the user's evaluated draws, carrying the outcome flags.
func (s *drawService) ViewPlayed(ctx context.Context, userID uint) ([]DrawView, error) {
	owner, err := s.findOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	draws, err := s.drawRepo.FindPlayedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find played draws: %w", err)
	}
	return decryptViews(draws, owner.EncryptionKey)
}

// PurgePlayed deletes the user's played non-master draws. Nothing to delete
// is a no-op.
func (s *drawService) PurgePlayed(ctx context.Context, userID uint) error {
	if err := s.drawRepo.DeletePlayedByUser(ctx, userID); err != nil {
		return fmt.Errorf("purge played draws: %w", err)
	}
	return nil
}

func decryptViews(draws []model.Draw, key []byte) ([]DrawView, error) {
	views := make([]DrawView, 0, len(draws))
	for _, draw := range draws {
		plaintext, err := crypto.Decrypt(draw.Numbers, key)
		if err != nil {
			return nil, fmt.Errorf("decrypt draw %d: %w", draw.ID, err)
		}
		numbers, err := parseNumbers(string(plaintext))
		if err != nil {
			return nil, err
		}
		views = append(views, DrawView{
			ID:            draw.ID,
			Numbers:       numbers,
			BeenPlayed:    draw.BeenPlayed,
			MatchesMaster: draw.MatchesMaster,
			LotteryRound:  draw.LotteryRound,
		})
	}
	return views, nil
}
