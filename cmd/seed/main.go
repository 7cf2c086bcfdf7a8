package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/barterbridge/backend/internal/config"
	"github.com/barterbridge/backend/internal/db"
	"github.com/barterbridge/backend/internal/model"
)

type seedCompany struct {
	Name     string
	AdminUID string
	Services []seedService
}

type seedService struct {
	Title         string
	Description   string
	Category      string
	DurationHours float64
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}

	canSeed, err := shouldSeed(gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("companies already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	companies := buildSeedCompanies()

	err = gdb.Transaction(func(tx *gorm.DB) error {
		for _, sc := range companies {
			company := model.Company{ID: uuid.New(), Name: sc.Name}
			if err := tx.Create(&company).Error; err != nil {
				return fmt.Errorf("insert company %q: %w", sc.Name, err)
			}
			user := model.User{UID: sc.AdminUID, Username: sc.AdminUID, JobTitle: "Operations"}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("insert user %q: %w", sc.AdminUID, err)
			}
			member := model.CompanyMember{
				ID:        uuid.New(),
				CompanyID: company.ID,
				UserUID:   user.UID,
				IsAdmin:   true,
			}
			if err := tx.Create(&member).Error; err != nil {
				return fmt.Errorf("insert member %q: %w", sc.AdminUID, err)
			}
			for _, ss := range sc.Services {
				svc := model.Service{
					ID:            uuid.New(),
					CompanyID:     company.ID,
					Title:         ss.Title,
					Description:   ss.Description,
					Category:      ss.Category,
					DurationHours: ss.DurationHours,
					Active:        true,
				}
				if err := tx.Create(&svc).Error; err != nil {
					return fmt.Errorf("insert service %q: %w", ss.Title, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("seeded %d companies", len(companies))
	return nil
}

func buildSeedCompanies() []seedCompany {
	return []seedCompany{
		{Name: "Northpine Design", AdminUID: "seed-northpine-admin", Services: []seedService{
			{Title: "Brand identity refresh", Description: "Logo, palette and typography update for an existing brand.", Category: "design,branding", DurationHours: 40},
			{Title: "Landing page design", Description: "Responsive landing page design delivered as Figma files.", Category: "design,web", DurationHours: 24},
		}},
		{Name: "Kestrel Software", AdminUID: "seed-kestrel-admin", Services: []seedService{
			{Title: "API integration sprint", Description: "Two-week sprint integrating a third-party API into your stack.", Category: "engineering,backend", DurationHours: 80},
			{Title: "Performance audit", Description: "Profiling pass over a web application with a prioritized fix list.", Category: "engineering,performance", DurationHours: 16},
		}},
		{Name: "Harbor & Finch Accounting", AdminUID: "seed-harborfinch-admin", Services: []seedService{
			{Title: "Quarterly bookkeeping", Description: "Full quarter of bookkeeping with reconciled statements.", Category: "finance,bookkeeping", DurationHours: 30},
			{Title: "Tax filing review", Description: "Review of prepared filings before submission.", Category: "finance,tax", DurationHours: 12},
		}},
		{Name: "Lumen Media Studio", AdminUID: "seed-lumen-admin", Services: []seedService{
			{Title: "Product video shoot", Description: "Half-day studio shoot with edited 60-second cut.", Category: "media,video", DurationHours: 20},
			{Title: "Podcast editing, 4 episodes", Description: "Cleanup, leveling and publishing for four episodes.", Category: "media,audio", DurationHours: 16},
		}},
		{Name: "Fieldstone Legal", AdminUID: "seed-fieldstone-admin", Services: []seedService{
			{Title: "Contract template pack", Description: "Tailored service-agreement and NDA templates.", Category: "legal,contracts", DurationHours: 18},
		}},
	}
}

func shouldSeed(gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.Model(&model.Company{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count companies: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}
