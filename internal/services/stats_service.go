// internal/services/stats_service.go
package services

import (
	"maps"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
	"github.com/Corphon/NoteQuiz/internal/storage"
	"github.com/Corphon/NoteQuiz/internal/utils"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
	statsFile   = "usage_stats.json"
)

// UsageStats 大模型使用量统计
type UsageStats struct {
	TodayRequests int            `json:"today_requests"`
	MonthlyTokens int            `json:"monthly_tokens"`
	DailyStats    map[string]int `json:"daily_stats"`   // 日期 -> 请求数
	MonthlyStats  map[string]int `json:"monthly_stats"` // 月份 -> token 数
	ByProvider    map[string]int `json:"by_provider"`   // 提供者 -> 请求数
	LastUpdated   time.Time      `json:"last_updated"`
}

// StatsService 记录并持久化大模型使用量，数据保存在 DATA_DIR/stats
type StatsService struct {
	store        *storage.FileStorage
	mutex        sync.Mutex
	cachedStats  *UsageStats
	isDirty      bool
	lastSaveTime time.Time
	saveInterval time.Duration
	now          func() time.Time
	logger       *utils.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewStatsService 创建统计服务实例并启动定时保存
func NewStatsService(dataDir string, logger *utils.Logger) *StatsService {
	if logger == nil {
		logger = utils.GetLogger()
	}
	basePath := filepath.Join(dataDir, "stats")
	store, err := storage.NewFileStorage(basePath)
	if err != nil {
		logger.Warn("创建统计目录失败", map[string]interface{}{"path": basePath, "error": err})
		store = &storage.FileStorage{BaseDir: basePath}
	}

	s := &StatsService{
		store:        store,
		saveInterval: 30 * time.Second,
		now:          time.Now,
		logger:       logger,
		stop:         make(chan struct{}),
	}
	s.mutex.Lock()
	s.initStatsUnlocked()
	s.mutex.Unlock()

	go s.periodicSave()
	return s
}

func newUsageStats(now time.Time) *UsageStats {
	return &UsageStats{
		DailyStats:   make(map[string]int),
		MonthlyStats: make(map[string]int),
		ByProvider:   make(map[string]int),
		LastUpdated:  now,
	}
}

// initStatsUnlocked 加载已有数据，不存在或损坏时重新开始
func (s *StatsService) initStatsUnlocked() {
	stats, err := s.loadStats()
	if err != nil {
		if !apperrors.IsNotFoundError(err) {
			s.logger.Warn("统计文件无法读取，重新开始统计", map[string]interface{}{"error": err})
		}
		stats = newUsageStats(s.now())
	}
	s.rollPeriod(stats)
	s.cachedStats = stats
}

// rollPeriod 跨天清零当日请求数，跨月清零月度 token 数
func (s *StatsService) rollPeriod(stats *UsageStats) {
	now := s.now()
	if now.Format(dayLayout) != stats.LastUpdated.Format(dayLayout) {
		stats.TodayRequests = 0
	}
	if now.Format(monthLayout) != stats.LastUpdated.Format(monthLayout) {
		stats.MonthlyTokens = 0
	}
}

// loadStats 从文件加载统计数据
func (s *StatsService) loadStats() (*UsageStats, error) {
	var stats UsageStats
	if err := s.store.LoadJSONFile(statsFile, &stats); err != nil {
		return nil, err
	}
	if stats.DailyStats == nil {
		stats.DailyStats = make(map[string]int)
	}
	if stats.MonthlyStats == nil {
		stats.MonthlyStats = make(map[string]int)
	}
	if stats.ByProvider == nil {
		stats.ByProvider = make(map[string]int)
	}
	return &stats, nil
}

func (s *StatsService) saveStats(stats *UsageStats) error {
	return s.store.SaveJSONFile(statsFile, stats)
}

// GetUsageStats 返回统计数据的副本
func (s *StatsService) GetUsageStats() *UsageStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rollPeriod(s.cachedStats)
	return &UsageStats{
		TodayRequests: s.cachedStats.TodayRequests,
		MonthlyTokens: s.cachedStats.MonthlyTokens,
		DailyStats:    maps.Clone(s.cachedStats.DailyStats),
		MonthlyStats:  maps.Clone(s.cachedStats.MonthlyStats),
		ByProvider:    maps.Clone(s.cachedStats.ByProvider),
		LastUpdated:   s.cachedStats.LastUpdated,
	}
}

// RecordUsage 记录一次大模型调用
func (s *StatsService) RecordUsage(provider string, tokens int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	s.rollPeriod(s.cachedStats)

	st := s.cachedStats
	st.TodayRequests++
	st.MonthlyTokens += tokens
	st.DailyStats[now.Format(dayLayout)]++
	st.MonthlyStats[now.Format(monthLayout)] += tokens
	st.ByProvider[provider]++
	st.LastUpdated = now
	s.isDirty = true

	if now.Sub(s.lastSaveTime) > s.saveInterval {
		return s.saveStatsImmediate()
	}
	return nil
}

// saveStatsImmediate 调用方需持有锁
func (s *StatsService) saveStatsImmediate() error {
	if !s.isDirty {
		return nil
	}
	err := s.saveStats(s.cachedStats)
	if err == nil {
		s.isDirty = false
		s.lastSaveTime = s.now()
	}
	return err
}

func (s *StatsService) periodicSave() {
	ticker := time.NewTicker(s.saveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mutex.Lock()
			if err := s.saveStatsImmediate(); err != nil {
				s.logger.Warn("定时保存统计数据失败", map[string]interface{}{"error": err})
			}
			s.mutex.Unlock()
		}
	}
}

// ResetStats 清空统计数据
func (s *StatsService) ResetStats() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	fresh := newUsageStats(s.now())
	if err := s.saveStats(fresh); err != nil {
		return err
	}
	s.cachedStats = fresh
	s.isDirty = false
	return nil
}

// Close 停止定时保存并写出未保存的数据
func (s *StatsService) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.saveStatsImmediate()
}
