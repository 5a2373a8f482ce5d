package models

import "time"

type Task struct {
	ID           uint64     `gorm:"primarykey" json:"id"`
	ProjectID    uint64     `gorm:"not null;index" json:"project_id"`
	Code         string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"code"`
	Title        string     `gorm:"type:varchar(255);not null" json:"title"`
	Description  string     `gorm:"type:text;not null" json:"description"`
	Status       TaskStatus `gorm:"not null;default:1;index" json:"status"`
	Issue        Issue      `gorm:"not null;default:1" json:"issue"`
	ParentID     *uint64    `gorm:"index" json:"parent_id"`
	AssignedToID uint64     `gorm:"not null;index" json:"assigned_to_id"`
	CreatorID    uint64     `gorm:"not null;index" json:"creator_id"`
	DueDate      *time.Time `json:"due_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Relations
	Project    Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Parent     *Task   `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	AssignedTo User    `gorm:"foreignKey:AssignedToID;constraint:OnDelete:RESTRICT" json:"assigned_to,omitempty"`
	Creator    User    `gorm:"foreignKey:CreatorID;constraint:OnDelete:RESTRICT" json:"creator,omitempty"`
}

// IsEpic reports whether the task sits at the top of the hierarchy.
func (t *Task) IsEpic() bool {
	return t.Issue == IssueEpic
}
