package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/ecolearn-go-api/internal/models"
)

// SeedCatalog inserts the default activity catalog. Existing rows are left
// untouched, so the seed is safe to run on every startup.
func SeedCatalog(db *gorm.DB) error {
	paths := []models.LearningPath{
		{Slug: "waste-basics", Title: "Waste Sorting Basics", Difficulty: models.DifficultyBeginner, ModuleCount: 4, PointsPerModule: 50, Description: "Recognising and separating everyday waste streams."},
		{Slug: "energy-at-home", Title: "Energy Saving at Home", Difficulty: models.DifficultyIntermediate, ModuleCount: 6, PointsPerModule: 40, Description: "Reducing household energy consumption."},
		{Slug: "water-stewardship", Title: "Water Stewardship", Difficulty: models.DifficultyAdvanced, ModuleCount: 5, PointsPerModule: 60, Description: "Watershed health and water conservation practices."},
	}

	for _, path := range paths {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&path).Error; err != nil {
			return fmt.Errorf("seed learning path %q: %w", path.Slug, err)
		}
	}

	quizzes := []models.Quiz{
		{Title: "Recycling Symbols", QuestionCount: 10, PointsPerCorrect: 5},
		{Title: "Carbon Footprint Fundamentals", QuestionCount: 15, PointsPerCorrect: 4},
	}

	for _, quiz := range quizzes {
		var existing models.Quiz
		err := db.Where("title = ?", quiz.Title).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seed quiz %q: %w", quiz.Title, err)
		}
		if err := db.Create(&quiz).Error; err != nil {
			return fmt.Errorf("seed quiz %q: %w", quiz.Title, err)
		}
	}

	tasks := []models.EcoTask{
		{Title: "Plastic-Free Week", Difficulty: models.DifficultyIntermediate, Points: 60, Description: "Avoid single-use plastics for seven days."},
		{Title: "Neighbourhood Cleanup", Difficulty: models.DifficultyBeginner, Points: 40, Description: "Join or organise a local litter cleanup."},
		{Title: "Home Energy Audit", Difficulty: models.DifficultyAdvanced, Points: 80, Description: "Measure and document household energy usage."},
	}

	for _, task := range tasks {
		var existing models.EcoTask
		err := db.Where("title = ?", task.Title).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("seed eco task %q: %w", task.Title, err)
		}
		if err := db.Create(&task).Error; err != nil {
			return fmt.Errorf("seed eco task %q: %w", task.Title, err)
		}
	}

	return nil
}
