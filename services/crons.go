package services

import (
	"context"
	"time"

	"github.com/openworkshop/owapi/api/session"
	"github.com/openworkshop/owapi/config"
	"github.com/openworkshop/owapi/shared/zaplogger"
	"github.com/openworkshop/owapi/stats"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// deadSessionRetention keeps expired sessions queryable for a while
// before the sweep removes the rows.
const deadSessionRetention = 30 * 24 * time.Hour

type CronService struct {
	cfg            *config.Config
	db             *gorm.DB
	redisClient    *redis.Client
	c              *cron.Cron
	sessionService *session.Service
	statsService   *stats.Service
}

func NewCronService(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, sessionService *session.Service, statsService *stats.Service) *CronService {
	return &CronService{
		cfg:            cfg,
		db:             db,
		redisClient:    redisClient,
		c:              cron.New(),
		sessionService: sessionService,
		statsService:   statsService,
	}
}

func (cs *CronService) Start() {
	zaplogger.Info(config.SingleLine)
	zaplogger.Info("Initializing CronService")

	// Add your scheduled jobs here
	cs.addScheduledJob("Stats Flush Job", cs.statsFlushJob, "*/5 * * * *")               // Every 5 minutes
	cs.addScheduledJob("Registration Blocks Purge Job", cs.blocksPurgeJob, "0 3 * * *")  // Once at 03:00am
	cs.addScheduledJob("Session Sweep Job", cs.sessionSweepJob, "30 3 * * *")            // Once at 03:30am

	// Add your startup jobs here
	cs.addStartupJob("Registration Blocks Purge Job", cs.blocksPurgeJob, 5*time.Second)

	cs.c.Start()
}

// Stop flushes pending counters and stops the scheduler.
func (cs *CronService) Stop() {
	cs.c.Stop()
	cs.statsFlushJob()
}

func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, func() {
		zaplogger.Info("Executing scheduled job", zaplogger.Fields{
			"job":  name,
			"time": time.Now().Format("15:04:05"),
		})
		job()
	})
	if err != nil {
		zaplogger.Error("Failed to schedule job", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("  * scheduled  : " + name + "  [" + schedule + "]")
}

func (cs *CronService) addStartupJob(name string, job func(), delay time.Duration) {
	go func() {
		time.Sleep(delay)
		zaplogger.Info("Executing startup job", zaplogger.Fields{
			"job":  name,
			"time": time.Now().Format("15:04:05"),
		})
		job()
	}()
	zaplogger.Info("  * startup    : " + name)
}

func (cs *CronService) statsFlushJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := cs.statsService.Flush(ctx); err != nil {
		zaplogger.Error("Stats flush failed", zaplogger.Fields{"error": err.Error()})
	}
}

func (cs *CronService) blocksPurgeJob() {
	cs.sessionService.PurgeExpiredRegistrationBlocks()
}

func (cs *CronService) sessionSweepJob() {
	removed := cs.sessionService.SweepDeadSessions(deadSessionRetention)
	if removed > 0 {
		zaplogger.Info("Removed dead sessions", zaplogger.Fields{"count": removed})
	}
}
