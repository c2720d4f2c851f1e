package state

// UserState текущий шаг диалога пользователя
type UserState string

const (
	StateNone UserState = "" // Нет активного диалога

	// Пошаговое бронирование через /book без аргументов
	StateBookSlot    UserState = "book_slot"
	StateBookSubject UserState = "book_subject"
)

// Ключи данных диалога
const (
	KeyDate      = "date"
	KeyTimeOfDay = "time_of_day"
	KeySubjectID = "subject_id"
)

// UserData данные пользователя во время диалога
type UserData struct {
	State UserState
	Data  map[string]string
}
