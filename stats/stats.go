// Package stats counts domain events (downloads, page views) in Redis and
// periodically flushes the counters into Postgres. Counting is
// fire-and-forget: a broken counter never fails a user request.
package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openworkshop/owapi/shared/zaplogger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const StatsTableName = "statistics"

const countersKey = "owapi:stats:counters"

// Metrics recorded against catalog subjects.
const (
	MetricDownload = "download"
	MetricView     = "view"
)

// StatModel is one accumulated counter row.
type StatModel struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	Subject   string `gorm:"size:32;uniqueIndex:idx_stat_subject" json:"subject"`
	SubjectID int64  `gorm:"uniqueIndex:idx_stat_subject" json:"subject_id"`
	Metric    string `gorm:"size:32;uniqueIndex:idx_stat_subject" json:"metric"`
	Count     int64  `json:"count"`
}

func (StatModel) TableName() string {
	return StatsTableName
}

type Service struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewService(db *gorm.DB, redisClient *redis.Client) *Service {
	return &Service{db: db, redis: redisClient}
}

// Bump increments a counter. Errors are logged and swallowed.
func (s *Service) Bump(subject string, subjectID int64, metric string) {
	field := fmt.Sprintf("%s:%d:%s", subject, subjectID, metric)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.redis.HIncrBy(ctx, countersKey, field, 1).Err(); err != nil {
		zaplogger.Warn("failed to bump counter", zaplogger.Fields{"field": field, "error": err.Error()})
	}
}

// Flush moves the accumulated Redis counters into Postgres. The hash is
// read and deleted in one pipeline, then each field is add-assigned into
// its row, so repeated flushes never double-count.
func (s *Service) Flush(ctx context.Context) error {
	pipe := s.redis.TxPipeline()
	counters := pipe.HGetAll(ctx, countersKey)
	pipe.Del(ctx, countersKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to read counters: %v", err)
	}

	for field, raw := range counters.Val() {
		parts := strings.SplitN(field, ":", 3)
		if len(parts) != 3 {
			zaplogger.Warn("dropping malformed counter field", zaplogger.Fields{"field": field})
			continue
		}
		subjectID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			zaplogger.Warn("dropping malformed counter field", zaplogger.Fields{"field": field})
			continue
		}
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || count == 0 {
			continue
		}

		row := StatModel{Subject: parts[0], SubjectID: subjectID, Metric: parts[2], Count: count}
		err = s.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "subject"}, {Name: "subject_id"}, {Name: "metric"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count": gorm.Expr("statistics.count + EXCLUDED.count"),
			}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to flush counter %s: %v", field, err)
		}
	}
	return nil
}
