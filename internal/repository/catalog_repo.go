package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/ecolearn-go-api/internal/models"
)

// CatalogRepository reads the static activity definitions that carry the
// authoritative point values.
type CatalogRepository interface {
	GetPath(ctx context.Context, id uint) (models.LearningPath, error)
	GetQuiz(ctx context.Context, id uint) (models.Quiz, error)
	GetTask(ctx context.Context, id uint) (models.EcoTask, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository constructs the catalog repository.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetPath(ctx context.Context, id uint) (models.LearningPath, error) {
	var path models.LearningPath
	if err := r.db.WithContext(ctx).First(&path, id).Error; err != nil {
		return models.LearningPath{}, err
	}
	return path, nil
}

func (r *catalogRepository) GetQuiz(ctx context.Context, id uint) (models.Quiz, error) {
	var quiz models.Quiz
	if err := r.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return models.Quiz{}, err
	}
	return quiz, nil
}

func (r *catalogRepository) GetTask(ctx context.Context, id uint) (models.EcoTask, error) {
	var task models.EcoTask
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return models.EcoTask{}, err
	}
	return task, nil
}
