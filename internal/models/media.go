package models

// MediaModel records an uploaded file.
type MediaModel struct {
	Base
	Filename   string  `json:"filename"    gorm:"not null"`
	URL        string  `json:"url"         gorm:"not null"`
	Storage    string  `json:"storage"     gorm:"size:16;not null"`
	ObjectKey  string  `json:"object_key"  gorm:"size:191;uniqueIndex;not null"`
	MimeType   string  `json:"mime_type"   gorm:"size:100"`
	Size       int64   `json:"size"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	UploadedBy *string `json:"uploaded_by" gorm:"type:char(36);index"`
}

func (MediaModel) TableName() string { return "media" }

// SlugTrackerModel remembers retired slugs so old links can redirect.
type SlugTrackerModel struct {
	Base
	Slug     string `json:"slug"      gorm:"size:191;index;not null"`
	Type     string `json:"type"      gorm:"size:16;index;not null"` // post | page | event
	TargetID string `json:"target_id" gorm:"type:char(36);index;not null"`
}

func (SlugTrackerModel) TableName() string { return "slug_trackers" }

// AllModels lists every model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&UserModel{},
		&UserSession{},
		&PasswordResetToken{},
		&EmailVerificationToken{},
		&CategoryModel{},
		&TagModel{},
		&EventCategoryModel{},
		&PostModel{},
		&PageModel{},
		&EventModel{},
		&MediaModel{},
		&SlugTrackerModel{},
	}
}
