package models

// Difficulty grades courses and tasks.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Лёгкая"
	DifficultyMedium Difficulty = "Средняя"
	DifficultyHard   Difficulty = "Сложная"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Category is the security field a course or task belongs to.
type Category string

const (
	CategoryWeb       Category = "Web"
	CategoryMobile    Category = "Mobile"
	CategoryCrypto    Category = "Crypto"
	CategoryOSINT     Category = "OSINT"
	CategoryForensics Category = "Forensics"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryWeb, CategoryMobile, CategoryCrypto, CategoryOSINT, CategoryForensics:
		return true
	}
	return false
}

// Course is a paid learning track in the catalog.
type Course struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Price         float64        `json:"price"`
	Difficulty    Difficulty     `json:"difficulty"`
	Category      Category       `json:"category"`
	ImageURL      string         `json:"imageUrl"`
	LessonsCount  int            `json:"lessonsCount"`
	StudentsCount int            `json:"studentsCount,omitempty"`
	CreatedAt     string         `json:"createdAt,omitempty"`
	Categories    []string       `json:"categories,omitempty"`
	Rating        float64        `json:"rating,omitempty"`
	Level         string         `json:"level,omitempty"`
	Duration      string         `json:"duration,omitempty"`
	Modules       []CourseModule `json:"modules,omitempty"`
}

// CourseModule is one lesson block of a course.
type CourseModule struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TaskStatus is a free-form workflow label; nothing transitions it automatically.
type TaskStatus string

const (
	TaskOpen       TaskStatus = "Открыто"
	TaskInProgress TaskStatus = "В работе"
	TaskClosed     TaskStatus = "Закрыто"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	return s == TaskOpen || s == TaskInProgress || s == TaskClosed
}

// Task is a bug-bounty style assignment posted by a company.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Difficulty     Difficulty `json:"difficulty"`
	Category       Category   `json:"category"`
	Reward         float64    `json:"reward"`
	CompanyID      string     `json:"companyId"`
	CompanyName    string     `json:"companyName"`
	CompanyLogoURL string     `json:"companyLogoUrl,omitempty"`
	Status         TaskStatus `json:"status"`
}
