package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/anatolykoptev/go-openimage"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// SQLStore is a ResultCache persisted in SQLite.
type SQLStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path. The parent
// directory is created. Pass MemoryDSN for a throwaway store.
func OpenSQLite(path string, opts ...Option) (*SQLStore, error) {
	dsn := path
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("cache connection pool: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps :memory: alive.
	sqlDB.SetMaxOpenConns(1)

	s, err := NewSQLStore(db, opts...)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open gorm handle and migrates the cache tables.
func NewSQLStore(db *gorm.DB, opts ...Option) (*SQLStore, error) {
	if err := db.AutoMigrate(&searchEntry{}, &faceEntry{}, &genderEntry{}); err != nil {
		return nil, fmt.Errorf("migrate cache tables: %w", err)
	}
	o := buildOptions(opts)
	return &SQLStore{db: db, ttl: o.ttl, now: o.now}, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get returns unexpired results for the key and counts the hit.
func (s *SQLStore) Get(ctx context.Context, query string, entityType openimage.EntityType, source string) ([]openimage.ImageRecord, bool) {
	key := openimage.CacheKey(query, entityType, source)
	db := s.db.WithContext(ctx)

	var e searchEntry
	err := db.Where("cache_key = ? AND expires_at > ?", key, s.now().Unix()).Take(&e).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("openimage/cache: read failed", "source", source, "error", err)
		}
		return nil, false
	}

	var recs []openimage.ImageRecord
	if err := json.Unmarshal([]byte(e.Results), &recs); err != nil {
		slog.Warn("openimage/cache: corrupt entry", "source", source, "error", err)
		return nil, false
	}

	if err := db.Model(&searchEntry{}).Where("cache_key = ?", key).
		UpdateColumn("hit_count", gorm.Expr("hit_count + ?", 1)).Error; err != nil {
		slog.Debug("openimage/cache: hit count update failed", "error", err)
	}
	return recs, true
}

// Set stores results, replacing any previous entry and resetting its hit count.
func (s *SQLStore) Set(ctx context.Context, query string, entityType openimage.EntityType, source string, results []openimage.ImageRecord) {
	data, err := json.Marshal(results)
	if err != nil {
		slog.Warn("openimage/cache: encode failed", "source", source, "error", err)
		return
	}
	now := s.now()
	e := searchEntry{
		CacheKey:    openimage.CacheKey(query, entityType, source),
		Query:       strings.TrimSpace(query),
		EntityType:  string(entityType),
		Source:      source,
		Results:     string(data),
		ResultCount: len(results),
		CreatedUnix: now.Unix(),
		ExpiresUnix: now.Add(s.ttl).Unix(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"query", "entity_type", "source", "results", "result_count",
			"created_at", "expires_at", "hit_count",
		}),
	}).Create(&e).Error
	if err != nil {
		slog.Warn("openimage/cache: write failed", "source", source, "error", err)
	}
}

// GetFace returns a cached face detection outcome.
func (s *SQLStore) GetFace(ctx context.Context, imageURL string) (openimage.FaceResult, bool) {
	var e faceEntry
	err := s.db.WithContext(ctx).
		Where("image_url = ? AND expires_at > ?", imageURL, s.now().Unix()).Take(&e).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("openimage/cache: face read failed", "url", imageURL, "error", err)
		}
		return openimage.FaceResult{}, false
	}
	return openimage.FaceResult{HasFace: e.HasFace, FaceCount: e.FaceCount}, true
}

// SetFace stores a face detection outcome.
func (s *SQLStore) SetFace(ctx context.Context, imageURL string, r openimage.FaceResult) {
	now := s.now()
	e := faceEntry{
		ImageURL:     imageURL,
		HasFace:      r.HasFace,
		FaceCount:    r.FaceCount,
		DetectedUnix: now.Unix(),
		ExpiresUnix:  now.Add(s.ttl).Unix(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "image_url"}},
		DoUpdates: clause.AssignmentColumns([]string{"has_face", "face_count", "detected_at", "expires_at"}),
	}).Create(&e).Error
	if err != nil {
		slog.Warn("openimage/cache: face write failed", "url", imageURL, "error", err)
	}
}

// GetGender returns a cached gender classification.
func (s *SQLStore) GetGender(ctx context.Context, imageURL string) (openimage.Gender, bool) {
	var e genderEntry
	err := s.db.WithContext(ctx).
		Where("image_url = ? AND expires_at > ?", imageURL, s.now().Unix()).Take(&e).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("openimage/cache: gender read failed", "url", imageURL, "error", err)
		}
		return openimage.GenderUnknown, false
	}
	return openimage.Gender(e.Gender), true
}

// SetGender stores a gender classification.
func (s *SQLStore) SetGender(ctx context.Context, imageURL string, g openimage.Gender) {
	now := s.now()
	e := genderEntry{
		ImageURL:       imageURL,
		Gender:         string(g),
		ClassifiedUnix: now.Unix(),
		ExpiresUnix:    now.Add(s.ttl).Unix(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "image_url"}},
		DoUpdates: clause.AssignmentColumns([]string{"gender", "classified_at", "expires_at"}),
	}).Create(&e).Error
	if err != nil {
		slog.Warn("openimage/cache: gender write failed", "url", imageURL, "error", err)
	}
}

// ClearExpired deletes expired rows from all tables and returns how many went.
func (s *SQLStore) ClearExpired(ctx context.Context) (int, error) {
	now := s.now().Unix()
	var n int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&searchEntry{}, &faceEntry{}, &genderEntry{}} {
			res := tx.Where("expires_at <= ?", now).Delete(model)
			if res.Error != nil {
				return res.Error
			}
			n += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear expired: %w", err)
	}
	return int(n), nil
}

// ClearAll deletes every row from all tables.
func (s *SQLStore) ClearAll(ctx context.Context) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&searchEntry{}, &faceEntry{}, &genderEntry{}} {
			res := all.Delete(model)
			if res.Error != nil {
				return res.Error
			}
			n += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return int(n), nil
}

// Stats summarizes all three tables.
func (s *SQLStore) Stats(ctx context.Context) (openimage.CacheStats, error) {
	now := s.now().Unix()
	db := s.db.WithContext(ctx)
	st := openimage.CacheStats{TTL: s.ttl}

	if err := db.Model(&searchEntry{}).Count(&st.TotalEntries).Error; err != nil {
		return st, fmt.Errorf("count entries: %w", err)
	}
	live := db.Model(&searchEntry{}).Where("expires_at > ?", now)
	if err := live.Session(&gorm.Session{}).Count(&st.ActiveEntries).Error; err != nil {
		return st, fmt.Errorf("count active entries: %w", err)
	}
	st.ExpiredEntries = st.TotalEntries - st.ActiveEntries

	if err := live.Session(&gorm.Session{}).
		Select("COALESCE(SUM(hit_count), 0)").Scan(&st.TotalHits).Error; err != nil {
		return st, fmt.Errorf("sum hits: %w", err)
	}
	st.HitRate = hitRate(st.TotalHits, st.ActiveEntries)

	var popular []searchEntry
	if err := live.Session(&gorm.Session{}).
		Order("hit_count DESC").Limit(popularLimit).Find(&popular).Error; err != nil {
		return st, fmt.Errorf("popular queries: %w", err)
	}
	st.PopularQueries = make([]openimage.PopularQuery, 0, len(popular))
	for _, e := range popular {
		st.PopularQueries = append(st.PopularQueries, openimage.PopularQuery{
			Query:      e.Query,
			EntityType: openimage.EntityType(e.EntityType),
			Source:     e.Source,
			Hits:       e.HitCount,
		})
	}

	faces := db.Model(&faceEntry{}).Where("expires_at > ?", now)
	if err := faces.Session(&gorm.Session{}).Count(&st.FaceEntries).Error; err != nil {
		return st, fmt.Errorf("count face entries: %w", err)
	}
	if err := faces.Session(&gorm.Session{}).Where("has_face = ?", true).Count(&st.FacesDetected).Error; err != nil {
		return st, fmt.Errorf("count faces: %w", err)
	}
	if err := db.Model(&genderEntry{}).Where("expires_at > ?", now).Count(&st.GenderEntries).Error; err != nil {
		return st, fmt.Errorf("count gender entries: %w", err)
	}

	err := db.Raw("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").
		Row().Scan(&st.SizeBytes)
	if err != nil {
		return st, fmt.Errorf("database size: %w", err)
	}
	return st, nil
}

// Search lists unexpired entries whose query contains pattern, most hit first.
func (s *SQLStore) Search(ctx context.Context, pattern string) ([]openimage.CacheEntryInfo, error) {
	var rows []searchEntry
	err := s.db.WithContext(ctx).
		Select("query", "entity_type", "source", "result_count", "created_at", "expires_at", "hit_count").
		Where("query LIKE ? AND expires_at > ?", "%"+pattern+"%", s.now().Unix()).
		Order("hit_count DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}
	out := make([]openimage.CacheEntryInfo, 0, len(rows))
	for _, e := range rows {
		out = append(out, openimage.CacheEntryInfo{
			Query:       e.Query,
			EntityType:  openimage.EntityType(e.EntityType),
			Source:      e.Source,
			ResultCount: e.ResultCount,
			CreatedAt:   time.Unix(e.CreatedUnix, 0),
			ExpiresAt:   time.Unix(e.ExpiresUnix, 0),
			HitCount:    e.HitCount,
		})
	}
	return out, nil
}
