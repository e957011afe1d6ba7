package catalog

import "time"

// RecordID identifier type. SQL backends assign auto-increment ids,
// the local backend assigns ms-since-epoch timestamps.
type RecordID int64

// Aggregate Root: Record — one decoded-artifact entry in the library
type Record struct {
	ID          RecordID  `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewRecordFields carries caller-supplied fields; id and timestamps
// are assigned by the storage layer
type NewRecordFields struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

// Category value object
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// CommunityPost is independent of Record: flat collection, no links
type CommunityPost struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type NewPostFields struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Author   string `json:"author"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// AuditEntry is appended by SQL backends on every create operation
type AuditEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	RecordID  int64     `json:"recordId"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ActionCreateRecord = "CREATE"
	ActionCreatePost   = "CREATE_POST"
)

// SeedCategories are the four fixed entries: SQL backends insert them
// on first startup if the table is empty, the local backend serves
// them as-is with no creation path.
func SeedCategories() []Category {
	return []Category{
		{ID: 1, Name: "Bình Tỳ Bà", Icon: "pottery", Color: "#28A745"},
		{ID: 2, Name: "Bình Thố", Icon: "box", Color: "#1E3A8A"},
		{ID: 3, Name: "Đĩa Cổ", Icon: "disc", Color: "#F59E0B"},
		{ID: 4, Name: "Lư Hương", Icon: "flame", Color: "#EF4444"},
	}
}
