package bootstrap

import (
	"log"
	"os"

	"codedepartament.ru/sbp/internal/entity"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Region{},
		&entity.Discipline{},
		&entity.User{},
		&entity.Profile{},
		&entity.UserDisciplineStats{},
		&entity.Competition{},
		&entity.CompetitionDate{},
		&entity.CompetitionOrganizer{},
		&entity.CompetitionParticipant{},
		&entity.UserApplication{},
		&entity.Team{},
		&entity.TeamMember{},
		&entity.Invitation{},
		&entity.TeamApplication{},
		&entity.VacancyResponse{},
		&entity.FAQ{},
		&entity.News{},
		&entity.Notification{},
		&entity.TelegramAccount{},
	)
}

// SeedCatalog fills regions and disciplines on an empty database.
func SeedCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.Region{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		regions := make([]entity.Region, len(federalSubjects))
		for i, name := range federalSubjects {
			regions[i] = entity.Region{Name: name}
		}
		if err := db.CreateInBatches(&regions, 50).Error; err != nil {
			return err
		}
		log.Printf("✅ Seeded %d regions", len(regions))
	}

	for _, name := range disciplines {
		if err := db.Where(entity.Discipline{Name: name}).FirstOrCreate(&entity.Discipline{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedModerator creates an approved moderator for local development.
func SeedModerator(db *gorm.DB) error {
	nick := valueOrDefault("SEED_MODERATOR_NICK", "moderator")

	var count int64
	if err := db.Model(&entity.User{}).Where("nick_name = ?", nick).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Println("Moderator already exists, skipping seed")
		return nil
	}

	var region entity.Region
	if err := db.Order("id").First(&region).Error; err != nil {
		return err
	}

	password := valueOrDefault("SEED_MODERATOR_PASSWORD", "moderator123")
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	email := nick + "@sbp.local"
	return db.Transaction(func(tx *gorm.DB) error {
		user := entity.User{
			NickName:     nick,
			Email:        &email,
			PasswordHash: string(hashed),
		}
		if err := tx.Omit("Profile").Create(&user).Error; err != nil {
			return err
		}

		profile := entity.Profile{
			UserID:     user.ID,
			Surname:    "Moderator",
			Name:       "System",
			RegionID:   region.ID,
			Role:       entity.RoleModerator,
			IsApproved: true,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		log.Println("✅ Moderator seeded successfully")
		log.Printf("   Nick: %s", nick)
		log.Printf("   Password: %s", password)
		return nil
	})
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
