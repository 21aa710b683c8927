package models

// Classroom is a physical room sections can be placed in.
type Classroom struct {
	ID         string `db:"id" json:"id"`
	Building   string `db:"building" json:"building"`
	RoomNumber string `db:"room_number" json:"room_number"`
	Capacity   int    `db:"capacity" json:"capacity"`
	IsActive   bool   `db:"is_active" json:"is_active"`
}
