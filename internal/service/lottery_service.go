package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"gorm.io/gorm"

	"luckysix/internal/audit"
	"luckysix/internal/crypto"
	apperrors "luckysix/internal/errors"
	"luckysix/internal/model"
	"luckysix/internal/repository"
)

// WinnerRecord identifies one winning draw of a round.
type WinnerRecord struct {
	Round   int    `json:"round"`
	Numbers []int  `json:"numbers"`
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
}

// DrawFailure reports a draw that could not be evaluated, typically because
// its ciphertext no longer opens under the owner's key. The round pass
// continues past it.
type DrawFailure struct {
	DrawID uint   `json:"draw_id"`
	UserID uint   `json:"user_id"`
	Reason string `json:"reason"`
}

// LotteryService runs lottery rounds: generating the winning draw and
// matching it against all outstanding user draws.
type LotteryService interface {
	GenerateMasterDraw(ctx context.Context, adminID uint) (*DrawView, error)
	CurrentMasterDraw(ctx context.Context) (*DrawView, error)
	RunRound(ctx context.Context, adminID uint) ([]WinnerRecord, []DrawFailure, error)
}

type lotteryService struct {
	drawRepo repository.DrawRepository
	userRepo repository.UserRepository
	sink     audit.Sink
}

// NewLotteryService creates a new lottery service.
func NewLotteryService(drawRepo repository.DrawRepository, userRepo repository.UserRepository, sink audit.Sink) LotteryService {
	return &lotteryService{drawRepo: drawRepo, userRepo: userRepo, sink: sink}
}

// GenerateMasterDraw replaces the winning draw. Any existing master row is
// deleted and the round advances by one; the first ever draw starts round 1.
// The whole swap happens in one transaction so at most one master row exists
// at any time.
func (s *lotteryService) GenerateMasterDraw(ctx context.Context, adminID uint) (*DrawView, error) {
	admin, err := s.userRepo.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}

	numbers, err := randomDraw()
	if err != nil {
		return nil, err
	}

	ciphertext, err := crypto.Encrypt([]byte(encodeNumbers(numbers)), admin.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt winning draw: %w", err)
	}

	round := 1
	err = s.drawRepo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.DrawRepository) error {
		existing, err := txRepo.FindMasterDrawForUpdate(ctx)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("find winning draw: %w", err)
		}
		if existing != nil {
			round = existing.LotteryRound + 1
			if err := txRepo.Delete(ctx, existing); err != nil {
				return fmt.Errorf("delete winning draw: %w", err)
			}
		}

		draw := &model.Draw{
			UserID:       admin.ID,
			Numbers:      ciphertext,
			BeenPlayed:   false,
			MasterDraw:   true,
			LotteryRound: round,
		}
		return txRepo.Create(ctx, draw)
	})
	if err != nil {
		return nil, err
	}

	return &DrawView{Numbers: numbers, LotteryRound: round}, nil
}

// CurrentMasterDraw decrypts the unplayed winning draw for display.
func (s *lotteryService) CurrentMasterDraw(ctx context.Context) (*DrawView, error) {
	master, err := s.drawRepo.FindUnplayedMasterDraw(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNoActiveMasterDraw
		}
		return nil, fmt.Errorf("find winning draw: %w", err)
	}

	owner, err := s.userRepo.FindByID(ctx, master.UserID)
	if err != nil {
		return nil, fmt.Errorf("find winning draw owner: %w", err)
	}

	plaintext, err := crypto.Decrypt(master.Numbers, owner.EncryptionKey)
	if err != nil {
		return nil, err
	}
	numbers, err := parseNumbers(string(plaintext))
	if err != nil {
		return nil, err
	}

	return &DrawView{
		ID:           master.ID,
		Numbers:      numbers,
		BeenPlayed:   master.BeenPlayed,
		LotteryRound: master.LotteryRound,
	}, nil
}

// RunRound evaluates every outstanding user draw against the winning draw.
// The whole pass is one transaction with the master and user rows locked, so
// concurrent passes serialize and each draw is evaluated once: the master is
// marked played, each user draw is decrypted under its owner's key and
// compared as sorted plaintext sequences, and every evaluated draw is marked
// played with the current round whether or not it won. A draw that cannot be
// decrypted is reported in the failure list and the pass continues. With zero
// outstanding user draws the master stays unplayed and the round is not
// consumed.
func (s *lotteryService) RunRound(ctx context.Context, adminID uint) ([]WinnerRecord, []DrawFailure, error) {
	var winners []WinnerRecord
	var failures []DrawFailure
	evaluated := false

	err := s.drawRepo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.DrawRepository) error {
		master, err := txRepo.FindUnplayedMasterDrawForUpdate(ctx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNoActiveMasterDraw
			}
			return fmt.Errorf("find winning draw: %w", err)
		}

		userDraws, err := txRepo.FindUnplayedUserDrawsForUpdate(ctx)
		if err != nil {
			return fmt.Errorf("find user draws: %w", err)
		}
		if len(userDraws) == 0 {
			// The round only consumes the master draw once at least one
			// user draw has been evaluated against it.
			return nil
		}

		owners := map[uint]*model.User{}
		lookup := func(id uint) (*model.User, error) {
			if u, ok := owners[id]; ok {
				return u, nil
			}
			u, err := s.userRepo.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			owners[id] = u
			return u, nil
		}

		masterOwner, err := lookup(master.UserID)
		if err != nil {
			return fmt.Errorf("find winning draw owner: %w", err)
		}
		masterPlain, err := crypto.Decrypt(master.Numbers, masterOwner.EncryptionKey)
		if err != nil {
			return fmt.Errorf("decrypt winning draw: %w", err)
		}
		masterNumbers, err := parseNumbers(string(masterPlain))
		if err != nil {
			return err
		}

		master.BeenPlayed = true
		if err := txRepo.Update(ctx, master); err != nil {
			return fmt.Errorf("mark winning draw played: %w", err)
		}

		for i := range userDraws {
			draw := &userDraws[i]

			owner, err := lookup(draw.UserID)
			if err != nil {
				return fmt.Errorf("find draw owner: %w", err)
			}

			plaintext, decErr := crypto.Decrypt(draw.Numbers, owner.EncryptionKey)
			if decErr != nil {
				failures = append(failures, DrawFailure{
					DrawID: draw.ID,
					UserID: draw.UserID,
					Reason: decErr.Error(),
				})
			} else {
				numbers, err := parseNumbers(string(plaintext))
				if err != nil {
					return err
				}
				if equalNumbers(numbers, masterNumbers) {
					draw.MatchesMaster = true
					winners = append(winners, WinnerRecord{
						Round:   master.LotteryRound,
						Numbers: numbers,
						UserID:  draw.UserID,
						Email:   owner.Email,
					})
				}
			}

			// Evaluated means played, win or lose, decryptable or not.
			draw.BeenPlayed = true
			draw.LotteryRound = master.LotteryRound
			if err := txRepo.Update(ctx, draw); err != nil {
				return fmt.Errorf("mark draw played: %w", err)
			}
		}

		evaluated = true
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Recorded only once the transaction has committed; a rolled-back pass
	// leaves no round event behind.
	if evaluated {
		s.sink.Record(ctx, audit.Event{
			Kind:   audit.KindRoundRun,
			UserID: adminID,
		})
	}

	return winners, failures, nil
}

// randomDraw picks six distinct integers in [1,60] from the system CSPRNG
// and returns them sorted ascending.
func randomDraw() ([]int, error) {
	picked := map[int]bool{}
	numbers := make([]int, 0, drawSize)
	for len(numbers) < drawSize {
		n, err := rand.Int(rand.Reader, big.NewInt(numberMax))
		if err != nil {
			return nil, fmt.Errorf("draw random number: %w", err)
		}
		v := int(n.Int64()) + numberMin
		if picked[v] {
			continue
		}
		picked[v] = true
		numbers = append(numbers, v)
	}
	sort.Ints(numbers)
	return numbers, nil
}
