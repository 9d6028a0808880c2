package entities

import "time"

type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	BookID    uint      `gorm:"index;not null" json:"bookId"`
	Rating    int       `gorm:"not null" json:"rating"` // 1-5
	Comment   *string   `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `json:"createdAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (Review) TableName() string {
	return "reviews"
}
