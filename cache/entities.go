package cache

// Timestamps are unix seconds so expiry comparisons stay numeric in SQLite.

type searchEntry struct {
	CacheKey    string `gorm:"column:cache_key;primaryKey;size:32"`
	Query       string `gorm:"column:query;not null;index:idx_query_entity,priority:1"`
	EntityType  string `gorm:"column:entity_type;not null;index:idx_query_entity,priority:2"`
	Source      string `gorm:"column:source;not null"`
	Results     string `gorm:"column:results;not null"`
	ResultCount int    `gorm:"column:result_count;not null"`
	CreatedUnix int64  `gorm:"column:created_at;not null"`
	ExpiresUnix int64  `gorm:"column:expires_at;not null;index:idx_image_cache_expires"`
	HitCount    int64  `gorm:"column:hit_count;not null"`
}

func (searchEntry) TableName() string { return "image_cache" }

type faceEntry struct {
	ImageURL     string `gorm:"column:image_url;primaryKey"`
	HasFace      bool   `gorm:"column:has_face;not null"`
	FaceCount    int    `gorm:"column:face_count;not null"`
	DetectedUnix int64  `gorm:"column:detected_at;not null"`
	ExpiresUnix  int64  `gorm:"column:expires_at;not null;index:idx_face_cache_expires"`
}

func (faceEntry) TableName() string { return "face_detection_cache" }

type genderEntry struct {
	ImageURL       string `gorm:"column:image_url;primaryKey"`
	Gender         string `gorm:"column:gender;not null"`
	ClassifiedUnix int64  `gorm:"column:classified_at;not null"`
	ExpiresUnix    int64  `gorm:"column:expires_at;not null;index:idx_gender_cache_expires"`
}

func (genderEntry) TableName() string { return "gender_classification_cache" }
