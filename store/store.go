package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"habit-tracker/logger"
	"habit-tracker/metrics"
	"habit-tracker/model"
)

var ErrHabitNotFound = errors.New("habit not found")

// MarkResult 打卡结果；AllComplete 每次调用都会重新计算
type MarkResult struct {
	Changed     bool `json:"changed"`
	AllComplete bool `json:"all_complete"`
}

// Store 持有内存中的 Record，每次变更后整体写回存储后端
type Store struct {
	mu        sync.Mutex
	persister Persister
	record    *model.Record
	logger    *zap.Logger
	now       func() time.Time
	intn      func(n int) int
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = logger.OrNop(l) }
}

// WithClock 替换“今天”的来源
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRandom 替换色板随机下标的来源
func WithRandom(intn func(n int) int) Option {
	return func(s *Store) { s.intn = intn }
}

// New 创建 Store，调用 Load 之前持有一份空 Record
func New(p Persister, opts ...Option) *Store {
	s := &Store{
		persister: p,
		record:    &model.Record{Habits: []model.Habit{}, History: model.History{}},
		logger:    zap.NewNop(),
		now:       time.Now,
		intn:      rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend 存储后端描述
func (s *Store) Backend() string { return s.persister.String() }

// Load 从存储后端读取 Record；任何失败都回退为默认数据，不返回错误
func (s *Store) Load(ctx context.Context) *model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.persister.Load(ctx)
	if err != nil || r == nil {
		s.logger.Warn("Failed to load record, using defaults",
			zap.String("backend", s.persister.String()),
			zap.Error(err),
		)
		metrics.StoreLoadFallbacks.Inc()
		s.record = model.DefaultRecord()
		return s.record.Clone()
	}

	r.Normalize()
	// 旧数据迁移：补全颜色和ID
	for i := range r.Habits {
		if r.Habits[i].Color == "" {
			r.Habits[i].Color = s.randomColor()
		}
		if r.Habits[i].ID == "" {
			r.Habits[i].ID = uuid.NewString()
		}
	}
	s.record = r

	s.logger.Debug("Record loaded",
		zap.String("backend", s.persister.String()),
		zap.Int("habits", len(r.Habits)),
		zap.Int("dates", len(r.History)),
	)
	return s.record.Clone()
}

// Save 将当前 Record 整体写回
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, "save")
}

func (s *Store) save(ctx context.Context, op string) error {
	if err := s.persister.Save(ctx, s.record); err != nil {
		s.logger.Error("Failed to save record",
			zap.String("operation", op),
			zap.String("backend", s.persister.String()),
			zap.Error(err),
		)
		metrics.RecordMutation(op, "failed")
		metrics.RecordSaveFailure(s.persister.String())
		return fmt.Errorf("save record: %w", err)
	}
	metrics.RecordMutation(op, "saved")
	return nil
}

// Record 返回当前数据的副本
func (s *Store) Record() *model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// Habits 返回当前习惯列表的副本
func (s *Store) Habits() []model.Habit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Habit{}, s.record.Habits...)
}

// HasHabit 是否存在同名习惯
func (s *Store) HasHabit(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Names()[name]
}

func (s *Store) randomColor() string {
	return model.Palette[s.intn(len(model.Palette))]
}

// Now 当前时间，来自注入的时钟
func (s *Store) Now() time.Time { return s.now() }

func (s *Store) today() string {
	return model.DateKey(s.now())
}

// AddHabit 追加一个习惯并随机分配色板颜色，不做名称校验和去重
func (s *Store) AddHabit(ctx context.Context, name, target string) (model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := model.NewHabit(name, target, s.randomColor())
	s.record.Habits = append(s.record.Habits, h)

	s.logger.Info("Habit added",
		zap.String("id", h.ID),
		zap.String("name", h.Name),
		zap.String("color", h.Color),
	)
	return h, s.save(ctx, "add")
}

// DeleteHabit 删除所有同名习惯，并从每天的历史记录中移除该名称（保留空列表）
func (s *Store) DeleteHabit(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.record.Habits[:0]
	removed := 0
	for _, h := range s.record.Habits {
		if h.Name == name {
			removed++
			continue
		}
		kept = append(kept, h)
	}
	s.record.Habits = kept

	purged := 0
	for date, names := range s.record.History {
		out := names[:0]
		for _, n := range names {
			if n == name {
				purged++
				continue
			}
			out = append(out, n)
		}
		s.record.History[date] = out
	}

	s.logger.Info("Habit deleted",
		zap.String("name", name),
		zap.Int("removed", removed),
		zap.Int("history_purged", purged),
	)
	return s.save(ctx, "delete")
}

// RenameHabit 按ID重命名，并同步改写历史记录中的旧名称
func (s *Store) RenameHabit(ctx context.Context, id, newName string) (model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, h := range s.record.Habits {
		if h.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Habit{}, ErrHabitNotFound
	}

	oldName := s.record.Habits[idx].Name
	s.record.Habits[idx].Name = newName
	renamed := s.record.Habits[idx]

	// 仍有其他习惯使用旧名称时，历史记录归属于它们
	if oldName != newName && !s.record.Names()[oldName] {
		for date, names := range s.record.History {
			out := names[:0]
			seen := false
			for _, n := range names {
				if n == oldName {
					n = newName
				}
				if n == newName {
					if seen {
						continue
					}
					seen = true
				}
				out = append(out, n)
			}
			s.record.History[date] = out
		}
	}

	s.logger.Info("Habit renamed",
		zap.String("id", id),
		zap.String("from", oldName),
		zap.String("to", newName),
	)
	return renamed, s.save(ctx, "rename")
}

// MarkDone 标记今天完成
func (s *Store) MarkDone(ctx context.Context, name string) (MarkResult, error) {
	return s.MarkDoneOn(ctx, name, s.now())
}

// MarkDoneOn 标记指定日期完成；仅在有变化时保存
func (s *Store) MarkDoneOn(ctx context.Context, name string, date time.Time) (MarkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.DateKey(date)
	var res MarkResult

	names, ok := s.record.History[key]
	if !ok {
		names = []string{}
		res.Changed = true
	}
	if !s.record.History.Contains(key, name) {
		names = append(names, name)
		res.Changed = true
	}
	s.record.History[key] = names

	var err error
	if res.Changed {
		err = s.save(ctx, "mark")
	} else {
		metrics.RecordMutation("mark", "unchanged")
	}
	res.AllComplete = s.allComplete(s.today())

	s.logger.Debug("Habit marked done",
		zap.String("name", name),
		zap.String("date", key),
		zap.Bool("changed", res.Changed),
		zap.Bool("all_complete", res.AllComplete),
	)
	return res, err
}

// UnmarkDone 取消今天的完成标记
func (s *Store) UnmarkDone(ctx context.Context, name string) (bool, error) {
	return s.UnmarkDoneOn(ctx, name, s.now())
}

// UnmarkDoneOn 取消指定日期的完成标记；仅在有变化时保存
func (s *Store) UnmarkDoneOn(ctx context.Context, name string, date time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.DateKey(date)
	names, ok := s.record.History[key]
	if !ok {
		metrics.RecordMutation("unmark", "unchanged")
		return false, nil
	}

	for i, n := range names {
		if n == name {
			s.record.History[key] = append(names[:i], names[i+1:]...)
			s.logger.Debug("Habit unmarked",
				zap.String("name", name),
				zap.String("date", key),
			)
			return true, s.save(ctx, "unmark")
		}
	}
	metrics.RecordMutation("unmark", "unchanged")
	return false, nil
}

// IsAllCompleteToday 习惯列表非空且今天全部完成
func (s *Store) IsAllCompleteToday() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allComplete(s.today())
}

func (s *Store) allComplete(date string) bool {
	if len(s.record.Habits) == 0 {
		return false
	}
	for _, h := range s.record.Habits {
		if !s.record.History.Contains(date, h.Name) {
			return false
		}
	}
	return true
}

// Today 今天的待完成/已完成划分
func (s *Store) Today() model.DayView {
	return s.Day(s.now())
}

// Day 指定日期的待完成/已完成划分
func (s *Store) Day(date time.Time) model.DayView {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.DateKey(date)
	view := model.DayView{
		Date:    key,
		Pending: []model.Habit{},
		Done:    []model.Habit{},
	}
	for _, h := range s.record.Habits {
		if s.record.History.Contains(key, h.Name) {
			view.Done = append(view.Done, h)
		} else {
			view.Pending = append(view.Pending, h)
		}
	}
	view.AllComplete = s.allComplete(key)
	return view
}

// ComputeStats 只统计当前存在的习惯，已删除习惯残留的历史记录被忽略
func (s *Store) ComputeStats() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := s.record.Names()
	counts := make(map[string]int, len(names))
	for _, done := range s.record.History {
		for _, n := range done {
			if names[n] {
				counts[n]++
			}
		}
	}

	stats := make(model.Stats, 0, len(s.record.Habits))
	for _, h := range s.record.Habits {
		stats = append(stats, model.HabitStat{Habit: h, Count: counts[h.Name]})
	}
	return stats
}

// CalendarDots 指定月份每天完成的习惯及其颜色，过滤掉已删除的习惯
func (s *Store) CalendarDots(year int, month time.Month) model.CalendarMonth {
	s.mu.Lock()
	defer s.mu.Unlock()

	colors := make(map[string]string, len(s.record.Habits))
	for _, h := range s.record.Habits {
		color := h.Color
		if color == "" {
			color = model.FallbackColor
		}
		colors[h.Name] = color
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	daysIn := first.AddDate(0, 1, -1).Day()
	today := s.today()

	cal := model.CalendarMonth{
		Year:    first.Year(),
		Month:   int(first.Month()),
		Leading: mondayIndex(first.Weekday()),
		Days:    make([]model.CalendarDay, 0, daysIn),
	}
	for d := 1; d <= daysIn; d++ {
		day := first.AddDate(0, 0, d-1)
		key := model.DateKey(day)
		dots := []model.Dot{}
		for _, n := range s.record.History[key] {
			if color, ok := colors[n]; ok {
				dots = append(dots, model.Dot{Name: n, Color: color})
			}
		}
		cal.Days = append(cal.Days, model.CalendarDay{
			Date:    key,
			Day:     d,
			Weekday: mondayIndex(day.Weekday()),
			IsToday: key == today,
			Dots:    dots,
		})
	}
	return cal
}

// mondayIndex 周一为0
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}
