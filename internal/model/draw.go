package model

import "time"

// Draw is one set of submitted lottery numbers. Numbers holds the AES-GCM
// ciphertext produced under the owning user's encryption key; the plaintext is
// never stored. A row with MasterDraw=true is the administrator's winning draw
// for a round.
type Draw struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	UserID        uint   `json:"user_id" gorm:"not null;index"`
	Numbers       []byte `json:"-" gorm:"type:varbinary(255);not null"`
	BeenPlayed    bool   `json:"been_played" gorm:"not null;default:false;index"`
	MatchesMaster bool   `json:"matches_master" gorm:"not null;default:false"`
	MasterDraw    bool   `json:"master_draw" gorm:"not null;index"`
	LotteryRound  int    `json:"lottery_round" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}
