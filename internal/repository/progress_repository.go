package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/progress"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

// Find 读取进度记录；没有记录时 CourseProgress 为 nil
func (r *ProgressRepository) Find(ctx context.Context, userID, courseID uint) (*model.CourseProgress, []model.ModuleProgress, error) {
	db := r.DB.WithContext(ctx)

	var cp model.CourseProgress
	err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var modules []model.ModuleProgress
	err = db.Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("module_id ASC").
		Find(&modules).Error
	if err != nil {
		return nil, nil, err
	}
	return &cp, modules, nil
}

// Lock 确保进度汇总行存在并加行锁，同一用户同一课程的写入由此串行化。必须在事务中调用。
func (r *ProgressRepository) Lock(ctx context.Context, userID, courseID uint) (*model.CourseProgress, error) {
	db := r.DB.WithContext(ctx)

	cp := model.CourseProgress{UserID: userID, CourseID: courseID, LastAccessedAt: time.Now()}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&cp).Error
	if err != nil {
		return nil, err
	}

	var locked model.CourseProgress
	err = db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&locked).Error
	if err != nil {
		return nil, err
	}
	return &locked, nil
}

// Save 覆盖写入整条进度记录。cp 来自 Lock，调用方负责事务
func (r *ProgressRepository) Save(ctx context.Context, cp *model.CourseProgress, record progress.ProgressRecord, overall int) ([]model.ModuleProgress, error) {
	db := r.DB.WithContext(ctx)
	now := time.Now()
	userID, courseID := cp.UserID, cp.CourseID

	cp.OverallProgress = overall
	cp.LastAccessedModule = record.LastAccessedModule
	cp.LastAccessedAt = now
	if err := db.Save(cp).Error; err != nil {
		return nil, err
	}

	var existing []model.ModuleProgress
	if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).Find(&existing).Error; err != nil {
		return nil, err
	}
	byModule := make(map[uint]model.ModuleProgress, len(existing))
	for _, mp := range existing {
		byModule[mp.ModuleID] = mp
	}

	moduleIDs := make([]uint, 0, len(record.Modules))
	for id := range record.Modules {
		moduleIDs = append(moduleIDs, id)
	}
	sort.Slice(moduleIDs, func(i, j int) bool { return moduleIDs[i] < moduleIDs[j] })

	for _, moduleID := range moduleIDs {
		rec := record.Modules[moduleID]
		mp, ok := byModule[moduleID]
		if !ok {
			mp = model.ModuleProgress{UserID: userID, CourseID: courseID, ModuleID: moduleID}
		}

		ids := make([]uint, 0, len(rec.CompletedContent))
		for cid, done := range rec.CompletedContent {
			if done {
				ids = append(ids, cid)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		mp.SetContentIDs(ids)

		if rec.IsCompleted && mp.CompletedAt == nil {
			mp.CompletedAt = &now
		}
		if !rec.IsCompleted {
			mp.CompletedAt = nil
		}
		mp.IsCompleted = rec.IsCompleted

		if err := db.Save(&mp).Error; err != nil {
			return nil, err
		}
		byModule[moduleID] = mp
	}

	modules := make([]model.ModuleProgress, 0, len(byModule))
	for _, mp := range byModule {
		modules = append(modules, mp)
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].ModuleID < modules[j].ModuleID })
	return modules, nil
}

// UpdateOverall 只修正汇总进度，供校对任务使用
func (r *ProgressRepository) UpdateOverall(ctx context.Context, id uint, overall int) error {
	return r.DB.WithContext(ctx).
		Model(&model.CourseProgress{}).
		Where("id = ?", id).
		Update("overall_progress", overall).Error
}
