package models

// Допустимые значения статуса пчелиной семьи.
const (
	StatusStark   = "stark"
	StatusMittel  = "mittel"
	StatusSchwach = "schwach"
)

// QueenColors - допустимые цвета маркировки матки (пятилетний цикл).
var QueenColors = []string{"white", "yellow", "red", "green", "blue"}

// Colony представляет пчелиную семью (улей).
// Даты хранятся строками в формате YYYY-MM-DD, как их отдает SQLite.
type Colony struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Location    string `db:"location" json:"location"`
	QueenBirth  string `db:"queen_birth" json:"queen_birth"`
	QueenColor  string `db:"queen_color" json:"queen_color"`
	QueenNumber string `db:"queen_number" json:"queen_number"`
	Status      string `db:"status" json:"status"`
	Notes       string `db:"notes" json:"notes"`
}

// ColonyInput - явная типизированная структура для создания/обновления семьи.
// Обязательное поле только Name, остальные сохраняются как есть.
type ColonyInput struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	QueenBirth  string `json:"queen_birth"`
	QueenColor  string `json:"queen_color"`
	QueenNumber string `json:"queen_number"`
	Status      string `json:"status"`
	Notes       string `json:"notes"`
}

// ValidStatus проверяет, что значение статуса входит в допустимый набор.
func ValidStatus(status string) bool {
	return status == StatusStark || status == StatusMittel || status == StatusSchwach
}
