package entity

type Region struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:150;not null" json:"name"`
}

type Discipline struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:150;uniqueIndex;not null" json:"name"`
}
