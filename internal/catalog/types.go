package catalog

import "time"

// Role gates write operations. Viewers can browse but never mutate.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleEditor
}

// VideoSeo is one managed catalog record. The remote store is the system of
// record; every cached copy is derived and possibly stale.
type VideoSeo struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	VideoID   string `json:"video_id"`

	// Titles
	OldTitle string `json:"old_title"`
	TitleV1  string `json:"title_v1,omitempty"`
	TitleV2  string `json:"title_v2,omitempty"`
	TitleV3  string `json:"title_v3,omitempty"`

	// Shared content
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Status
	IsSeoDone bool `json:"is_seo_done"`

	// Assignment tracking
	AssignedTo string `json:"assigned_to,omitempty"`
	WorkedBy   string `json:"worked_by,omitempty"`

	// Metadata
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`

	// Joined data
	Channel *Channel `json:"channels,omitempty"`
}

type Channel struct {
	ID          string     `json:"id"`
	ChannelID   string     `json:"channel_id"`
	ChannelName string     `json:"channel_name"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// TeamMember is the lightweight "working as" identity picked after sign-in.
type TeamMember struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

type Task struct {
	ID         string     `json:"id"`
	VideoID    string     `json:"video_id"`
	AssignedTo string     `json:"assigned_to,omitempty"`
	Status     TaskStatus `json:"status"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type SeoVersion struct {
	ID            string     `json:"id"`
	VideoID       string     `json:"video_id"`
	Title         string     `json:"title,omitempty"`
	Description   string     `json:"description,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	VersionNumber int        `json:"version_number"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}
