package seeders

import (
	"log"

	"tutorbook_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultSubjects are the subjects offered out of the box.
var DefaultSubjects = []models.Subject{
	{KoreanName: "국어", EnglishName: "Korean"},
	{KoreanName: "영어", EnglishName: "English"},
	{KoreanName: "수학", EnglishName: "Mathematics"},
	{KoreanName: "과학", EnglishName: "Science"},
	{KoreanName: "사회", EnglishName: "Social Studies"},
}

// SeedSubjects inserts DefaultSubjects, leaving existing rows alone.
func SeedSubjects(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Subject{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Subjects already seeded, skipping...")
		return nil
	}

	subjects := make([]models.Subject, len(DefaultSubjects))
	copy(subjects, DefaultSubjects)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&subjects).Error; err != nil {
		return err
	}

	log.Printf("Seeded %d subjects", len(subjects))
	return nil
}
