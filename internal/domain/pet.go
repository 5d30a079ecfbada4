package domain

import "time"

type Pet struct {
	ID        string
	UserID    string
	Name      string
	Breed     string
	AgeYears  int
	WeightLbs int
	Notes     string
	CreatedAt time.Time
}

type User struct {
	ID        string
	Email     string
	Name      string
	Phone     string
	CreatedAt time.Time
}
