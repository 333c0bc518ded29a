package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"luckysix/internal/audit"
	"luckysix/internal/crypto"
	apperrors "luckysix/internal/errors"
	"luckysix/internal/model"
)

func encryptNumbers(t *testing.T, key []byte, encoded string) []byte {
	t.Helper()
	ciphertext, err := crypto.Encrypt([]byte(encoded), key)
	require.NoError(t, err)
	return ciphertext
}

func TestLotteryService_GenerateMasterDraw_FirstRound(t *testing.T) {
	admin := &model.User{ID: 1, Email: "admin@email.com", Role: model.RoleAdmin, EncryptionKey: testKey(t)}

	mockUsers := new(MockUserRepository)
	mockUsers.On("FindByID", mock.Anything, uint(1)).Return(admin, nil)

	var created *model.Draw
	mockDraws := new(MockDrawRepository)
	mockDraws.On("FindMasterDrawForUpdate", mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	mockDraws.On("Create", mock.Anything, mock.AnythingOfType("*model.Draw")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*model.Draw) }).
		Return(nil)

	svc := NewLotteryService(mockDraws, mockUsers, &audit.MemorySink{})

	view, err := svc.GenerateMasterDraw(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, 1, view.LotteryRound)
	assert.Len(t, view.Numbers, 6)
	assert.True(t, sortedDistinctInRange(view.Numbers))

	require.NotNil(t, created)
	assert.True(t, created.MasterDraw)
	assert.False(t, created.BeenPlayed)
	assert.Equal(t, 1, created.LotteryRound)

	// what was stored decrypts back to what was returned
	plaintext, err := crypto.Decrypt(created.Numbers, admin.EncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, encodeNumbers(view.Numbers), string(plaintext))

	mockDraws.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestLotteryService_GenerateMasterDraw_ReplacesExisting(t *testing.T) {
	admin := &model.User{ID: 1, Role: model.RoleAdmin, EncryptionKey: testKey(t)}
	existing := &model.Draw{ID: 20, UserID: 1, MasterDraw: true, BeenPlayed: true, LotteryRound: 4}

	mockUsers := new(MockUserRepository)
	mockUsers.On("FindByID", mock.Anything, uint(1)).Return(admin, nil)

	mockDraws := new(MockDrawRepository)
	mockDraws.On("FindMasterDrawForUpdate", mock.Anything).Return(existing, nil)
	mockDraws.On("Delete", mock.Anything, existing).Return(nil)
	mockDraws.On("Create", mock.Anything, mock.AnythingOfType("*model.Draw")).Return(nil)

	svc := NewLotteryService(mockDraws, mockUsers, &audit.MemorySink{})

	view, err := svc.GenerateMasterDraw(context.Background(), 1)
	require.NoError(t, err)
	// a played round 4 draw is superseded by round 5
	assert.Equal(t, 5, view.LotteryRound)

	mockDraws.AssertExpectations(t)
}

func TestLotteryService_CurrentMasterDraw(t *testing.T) {
	key := testKey(t)
	admin := &model.User{ID: 1, EncryptionKey: key}
	master := &model.Draw{
		ID:           20,
		UserID:       1,
		Numbers:      encryptNumbers(t, key, "3 11 24 38 47 59"),
		MasterDraw:   true,
		LotteryRound: 2,
	}

	mockUsers := new(MockUserRepository)
	mockUsers.On("FindByID", mock.Anything, uint(1)).Return(admin, nil)

	mockDraws := new(MockDrawRepository)
	mockDraws.On("FindUnplayedMasterDraw", mock.Anything).Return(master, nil)

	svc := NewLotteryService(mockDraws, mockUsers, &audit.MemorySink{})

	view, err := svc.CurrentMasterDraw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{3, 11, 24, 38, 47, 59}, view.Numbers)
	assert.Equal(t, 2, view.LotteryRound)
}

func TestLotteryService_CurrentMasterDraw_NoneActive(t *testing.T) {
	mockDraws := new(MockDrawRepository)
	mockDraws.On("FindUnplayedMasterDraw", mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	svc := NewLotteryService(mockDraws, new(MockUserRepository), &audit.MemorySink{})

	_, err := svc.CurrentMasterDraw(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNoActiveMasterDraw)
}

func TestLotteryService_RunRound_NoMaster(t *testing.T) {
	mockDraws := new(MockDrawRepository)
	mockDraws.On("FindUnplayedMasterDrawForUpdate", mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	svc := NewLotteryService(mockDraws, new(MockUserRepository), &audit.MemorySink{})

	_, _, err := svc.RunRound(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveMasterDraw)
}

func TestLotteryService_RunRound_NoUserDraws(t *testing.T) {
	key := testKey(t)
	master := &model.Draw{ID: 20, UserID: 1, Numbers: encryptNumbers(t, key, "1 2 3 4 5 6"), MasterDraw: true, LotteryRound: 3}

	mockDraws := new(MockDrawRepository)
	mockDraws.On("FindUnplayedMasterDrawForUpdate", mock.Anything).Return(master, nil)
	mockDraws.On("FindUnplayedUserDrawsForUpdate", mock.Anything).Return([]model.Draw{}, nil)

	svc := NewLotteryService(mockDraws, new(MockUserRepository), &audit.MemorySink{})

	winners, failures, err := svc.RunRound(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, winners)
	assert.Empty(t, failures)

	// the master is not consumed; the round stays open
	assert.False(t, master.BeenPlayed)
	mockDraws.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestLotteryService_RunRound_MatchesAreOrderInsensitive(t *testing.T) {
	adminKey := testKey(t)
	aliceKey := testKey(t)
	bobKey := testKey(t)

	admin := &model.User{ID: 1, Email: "admin@email.com", EncryptionKey: adminKey}
	alice := &model.User{ID: 2, Email: "alice@example.com", EncryptionKey: aliceKey}
	bob := &model.User{ID: 3, Email: "bob@example.com", EncryptionKey: bobKey}

	master := &model.Draw{ID: 20, UserID: 1, Numbers: encryptNumbers(t, adminKey, "1 2 3 4 5 6"), MasterDraw: true, LotteryRound: 3}
	userDraws := []model.Draw{
		// both submissions hold the winning set, entered in different orders
		{ID: 21, UserID: 2, Numbers: encryptNumbers(t, aliceKey, encodeNumbers([]int{1, 2, 3, 4, 5, 6}))},
		{ID: 22, UserID: 3, Numbers: encryptNumbers(t, bobKey, encodeNumbers([]int{6, 5, 4, 3, 2, 1}))},
		{ID: 23, UserID: 2, Numbers: encryptNumbers(t, aliceKey, encodeNumbers([]int{1, 2, 3, 4, 5, 60}))},
	}

	mockUsers := new(MockUserRepository)
	mockUsers.On("FindByID", mock.Anything, uint(1)).Return(admin, nil).Once()
	mockUsers.On("FindByID", mock.Anything, uint(2)).Return(alice, nil).Once()
	mockUsers.On("FindByID", mock.Anything, uint(3)).Return(bob, nil).Once()

	mockDraws := new(MockDrawRepository)
	mockDraws.On("FindUnplayedMasterDrawForUpdate", mock.Anything).Return(master, nil)
	mockDraws.On("FindUnplayedUserDrawsForUpdate", mock.Anything).Return(userDraws, nil)
	mockDraws.On("Update", mock.Anything, mock.AnythingOfType("*model.Draw")).Return(nil)

	sink := &audit.MemorySink{}
	svc := NewLotteryService(mockDraws, mockUsers, sink)

	winners, failures, err := svc.RunRound(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, failures)

	require.Len(t, winners, 2)
	assert.Equal(t, uint(2), winners[0].UserID)
	assert.Equal(t, "alice@example.com", winners[0].Email)
	assert.Equal(t, uint(3), winners[1].UserID)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, winners[0].Numbers)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, winners[1].Numbers)
	assert.Equal(t, 3, winners[0].Round)

	// every evaluated draw is stamped played with the round, win or lose
	assert.True(t, master.BeenPlayed)
	for i := range userDraws {
		assert.True(t, userDraws[i].BeenPlayed)
		assert.Equal(t, 3, userDraws[i].LotteryRound)
	}
	assert.True(t, userDraws[0].MatchesMaster)
	assert.True(t, userDraws[1].MatchesMaster)
	assert.False(t, userDraws[2].MatchesMaster)

	// four updates: the master plus three user draws
	mockDraws.AssertNumberOfCalls(t, "Update", 4)
	// owners resolved once each despite repeated draws
	mockUsers.AssertExpectations(t)

	// the pass reads through the locking variants so concurrent passes
	// serialize instead of double-evaluating
	mockDraws.AssertCalled(t, "FindUnplayedMasterDrawForUpdate", mock.Anything)
	mockDraws.AssertCalled(t, "FindUnplayedUserDrawsForUpdate", mock.Anything)
	mockDraws.AssertNotCalled(t, "FindUnplayedMasterDraw", mock.Anything)

	assert.Len(t, sink.ByKind(audit.KindRoundRun), 1)
}

func TestLotteryService_RunRound_CommitFailureNotAudited(t *testing.T) {
	key := testKey(t)
	admin := &model.User{ID: 1, EncryptionKey: key}
	master := &model.Draw{ID: 20, UserID: 1, Numbers: encryptNumbers(t, key, "1 2 3 4 5 6"), MasterDraw: true, LotteryRound: 1}
	userDraws := []model.Draw{
		{ID: 21, UserID: 1, Numbers: encryptNumbers(t, key, "7 8 9 10 11 12")},
	}

	mockUsers := new(MockUserRepository)
	mockUsers.On("FindByID", mock.Anything, uint(1)).Return(admin, nil)

	mockDraws := new(MockDrawRepository)
	mockDraws.commitErr = gorm.ErrInvalidTransaction
	mockDraws.On("FindUnplayedMasterDrawForUpdate", mock.Anything).Return(master, nil)
	mockDraws.On("FindUnplayedUserDrawsForUpdate", mock.Anything).Return(userDraws, nil)
	mockDraws.On("Update", mock.Anything, mock.AnythingOfType("*model.Draw")).Return(nil)

	sink := &audit.MemorySink{}
	svc := NewLotteryService(mockDraws, mockUsers, sink)

	_, _, err := svc.RunRound(context.Background(), 1)
	require.ErrorIs(t, err, gorm.ErrInvalidTransaction)

	// a rolled-back pass leaves no round event behind
	assert.Empty(t, sink.ByKind(audit.KindRoundRun))
}

func TestLotteryService_RunRound_UndecryptableDrawReported(t *testing.T) {
	adminKey := testKey(t)
	aliceKey := testKey(t)

	admin := &model.User{ID: 1, EncryptionKey: adminKey}
	alice := &model.User{ID: 2, Email: "alice@example.com", EncryptionKey: aliceKey}

	master := &model.Draw{ID: 20, UserID: 1, Numbers: encryptNumbers(t, adminKey, "1 2 3 4 5 6"), MasterDraw: true, LotteryRound: 1}
	userDraws := []model.Draw{
		// ciphertext from a key that is not the owner's
		{ID: 21, UserID: 2, Numbers: encryptNumbers(t, testKey(t), "1 2 3 4 5 6")},
		{ID: 22, UserID: 2, Numbers: encryptNumbers(t, aliceKey, "1 2 3 4 5 6")},
	}

	mockUsers := new(MockUserRepository)
	mockUsers.On("FindByID", mock.Anything, uint(1)).Return(admin, nil)
	mockUsers.On("FindByID", mock.Anything, uint(2)).Return(alice, nil)

	mockDraws := new(MockDrawRepository)
	mockDraws.On("FindUnplayedMasterDrawForUpdate", mock.Anything).Return(master, nil)
	mockDraws.On("FindUnplayedUserDrawsForUpdate", mock.Anything).Return(userDraws, nil)
	mockDraws.On("Update", mock.Anything, mock.AnythingOfType("*model.Draw")).Return(nil)

	svc := NewLotteryService(mockDraws, mockUsers, &audit.MemorySink{})

	winners, failures, err := svc.RunRound(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, failures, 1)
	assert.Equal(t, uint(21), failures[0].DrawID)
	assert.Equal(t, uint(2), failures[0].UserID)
	assert.NotEmpty(t, failures[0].Reason)

	// the healthy draw still wins; the broken one is retired, not left to
	// wedge every future round
	require.Len(t, winners, 1)
	assert.Equal(t, uint(2), winners[0].UserID)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, winners[0].Numbers)
	assert.True(t, userDraws[0].BeenPlayed)
	assert.False(t, userDraws[0].MatchesMaster)
	assert.True(t, userDraws[1].BeenPlayed)
	assert.True(t, userDraws[1].MatchesMaster)
}

func TestRandomDraw(t *testing.T) {
	for i := 0; i < 50; i++ {
		numbers, err := randomDraw()
		require.NoError(t, err)
		require.Len(t, numbers, 6)
		assert.True(t, sortedDistinctInRange(numbers), "got %v", numbers)
	}
}

func sortedDistinctInRange(numbers []int) bool {
	for i, n := range numbers {
		if n < 1 || n > 60 {
			return false
		}
		if i > 0 && numbers[i-1] >= n {
			return false
		}
	}
	return true
}
