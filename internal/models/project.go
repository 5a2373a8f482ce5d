package models

import "time"

type Project struct {
	ID          uint64        `gorm:"primarykey" json:"id"`
	Title       string        `gorm:"type:varchar(255);not null;index:idx_projects_title_code,priority:1" json:"title"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Code        string        `gorm:"type:varchar(10);uniqueIndex;not null;index:idx_projects_title_code,priority:2" json:"code"`
	Status      ProjectStatus `gorm:"not null;default:1" json:"status"`
	CreatorID   uint64        `gorm:"not null;index" json:"creator_id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Relations
	Creator User   `gorm:"foreignKey:CreatorID;constraint:OnDelete:RESTRICT" json:"creator,omitempty"`
	Tasks   []Task `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}
