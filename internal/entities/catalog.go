package entities

import "time"

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Category) TableName() string {
	return "categories"
}

type Book struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Title          string    `gorm:"size:500;not null;index" json:"title"`
	Author         string    `gorm:"size:300;not null;index" json:"author"`
	Description    string    `gorm:"type:text" json:"description"`
	CategoryID     uint      `gorm:"index;not null" json:"categoryId"`
	CoverImage     string    `gorm:"size:1000" json:"coverImage"`
	EbookURL       string    `gorm:"size:1000" json:"ebookUrl"`
	TotalCopies    int       `gorm:"not null;default:1" json:"totalCopies"`
	BorrowedCopies int       `gorm:"not null;default:0" json:"borrowedCopies"`
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Reviews  []Review  `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
}

func (Book) TableName() string {
	return "books"
}

// AvailableCopies returns how many copies can still be borrowed.
func (b *Book) AvailableCopies() int {
	if b.BorrowedCopies >= b.TotalCopies {
		return 0
	}
	return b.TotalCopies - b.BorrowedCopies
}

func (b *Book) IsAvailable() bool {
	return b.AvailableCopies() > 0
}
