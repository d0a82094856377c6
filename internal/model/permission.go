package model

// GeneralResource is the grouping key for permissions without a resource
const GeneralResource = "GENERAL"

// Permission is an atomic grant. Name is conventionally "RESOURCE:ACTION" but is never parsed;
// Resource and Action are stored separately for grouping and access checks.
type Permission struct {
	BaseModel
	Name        string  `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Resource    *string `gorm:"type:varchar(100);index" json:"resource"`
	Action      *string `gorm:"type:varchar(100)" json:"action"`
	IsActive    bool    `gorm:"not null;index" json:"is_active"`
}

// ResourceKey returns the grouping key of the permission
func (p *Permission) ResourceKey() string {
	if p.Resource == nil || *p.Resource == "" {
		return GeneralResource
	}
	return *p.Resource
}

// Matches reports whether the permission carries exactly the given resource and action
func (p *Permission) Matches(resource, action string) bool {
	return p.Resource != nil && p.Action != nil && *p.Resource == resource && *p.Action == action
}
