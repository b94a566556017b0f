package models

// Inspection представляет осмотр одной пчелиной семьи.
// Субъективные оценки (1-5) и количества рамок опциональны и хранятся как введены,
// без серверной нормализации.
type Inspection struct {
	ID                     int64    `db:"id" json:"id"`
	ColonyID               int64    `db:"colony_id" json:"colony_id"`
	Date                   string   `db:"date" json:"date"` // YYYY-MM-DD
	HoneyYield             *float64 `db:"honey_yield" json:"honey_yield"`
	QueenSeen              bool     `db:"queen_seen" json:"queen_seen"`
	VarroaCheck            string   `db:"varroa_check" json:"varroa_check"`
	Notes                  string   `db:"notes" json:"notes"`
	Mittelwaende           *int     `db:"mittelwaende" json:"mittelwaende"`
	Brutwaben              *int     `db:"brutwaben" json:"brutwaben"`
	Futterwaben            *int     `db:"futterwaben" json:"futterwaben"`
	Volksstaerke           *int     `db:"volksstaerke" json:"volksstaerke"`
	Sanftmut               *int     `db:"sanftmut" json:"sanftmut"`
	Vitalitaet             *int     `db:"vitalitaet" json:"vitalitaet"`
	Brut                   *int     `db:"brut" json:"brut"`
	DrohnenbrutGeschnitten bool     `db:"drohnenbrut_geschnitten" json:"drohnenbrut_geschnitten"`
}

// InspectionInput - явная типизированная структура для создания/обновления осмотра.
// Заменяет динамическую установку полей по одному: все опциональные поля
// представлены указателями, nil означает "не заполнено".
type InspectionInput struct {
	ColonyID               int64    `json:"colony_id"`
	Date                   string   `json:"date"` // YYYY-MM-DD, пустое значение = сегодня
	HoneyYield             *float64 `json:"honey_yield"`
	QueenSeen              bool     `json:"queen_seen"`
	VarroaCheck            string   `json:"varroa_check"`
	Notes                  string   `json:"notes"`
	Mittelwaende           *int     `json:"mittelwaende"`
	Brutwaben              *int     `json:"brutwaben"`
	Futterwaben            *int     `json:"futterwaben"`
	Volksstaerke           *int     `json:"volksstaerke"`
	Sanftmut               *int     `json:"sanftmut"`
	Vitalitaet             *int     `json:"vitalitaet"`
	Brut                   *int     `json:"brut"`
	DrohnenbrutGeschnitten bool     `json:"drohnenbrut_geschnitten"`
}

// InspectionImage представляет загруженную фотографию осмотра.
// Путь к файлу не хранится: он выводится из даты осмотра и имени файла.
type InspectionImage struct {
	ID           int64  `db:"id" json:"id"`
	InspectionID int64  `db:"inspection_id" json:"inspection_id"`
	Filename     string `db:"filename" json:"filename"`
	UploadedAt   string `db:"uploaded_at" json:"uploaded_at"`
}

// InspectionWithImages - осмотр вместе со списком его фотографий (детальная выдача).
type InspectionWithImages struct {
	Inspection
	Images []InspectionImage `json:"images"`
}

// InspectionDayGroup - группа осмотров одного календарного дня.
// Группы идут по убыванию даты, внутри дня порядок стабильный (id по убыванию).
type InspectionDayGroup struct {
	Date        string       `json:"date"`
	Inspections []Inspection `json:"inspections"`
}
