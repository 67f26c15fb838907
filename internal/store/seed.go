package store

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/prizm/models"
	"go.uber.org/zap"
)

type sampleBusiness struct {
	user     models.NewUser
	business models.NewBusiness
}

func priority(p float64) *float64 { return &p }

var sampleBusinesses = []sampleBusiness{
	{
		user: models.NewUser{Username: "techhub", Password: "password123", Type: models.UserTypeBusiness, Name: "TechHub Solutions"},
		business: models.NewBusiness{
			Description: "Expert IT consulting and software development services. Specializing in web applications, mobile apps, and cloud solutions.",
			Category:    "Technology",
			Location:    "New York, NY",
			Services:    []string{"Web Development", "Mobile Apps", "Cloud Computing", "IT Consulting"},
			IndustryRules: &models.IndustryRules{
				Keywords:        []string{"software", "web", "mobile", "cloud", "IT", "digital", "tech", "application"},
				Priority:        priority(8),
				Requirements:    []string{"Software Development", "Cloud Architecture", "Agile Methodology"},
				Specializations: []string{"Web Applications", "Mobile Development", "Cloud Solutions"},
			},
		},
	},
	{
		user: models.NewUser{Username: "homefix", Password: "password123", Type: models.UserTypeBusiness, Name: "HomeFix Pro"},
		business: models.NewBusiness{
			Description: "Professional home repair and maintenance services. From basic repairs to major renovations, we do it all.",
			Category:    "Home Services",
			Location:    "New York, NY",
			Services:    []string{"Home Repairs", "Renovation", "Plumbing", "Electrical", "HVAC"},
			IndustryRules: &models.IndustryRules{
				Keywords:        []string{"repair", "renovation", "maintenance", "install", "fix", "home", "house", "building"},
				Priority:        priority(9),
				Requirements:    []string{"Licensed Contractor", "HVAC Certified", "Electrical License"},
				Specializations: []string{"Home Renovation", "HVAC Systems", "Electrical Work", "Plumbing"},
			},
		},
	},
	{
		user: models.NewUser{Username: "healthplus", Password: "password123", Type: models.UserTypeBusiness, Name: "HealthPlus Services"},
		business: models.NewBusiness{
			Description: "Comprehensive healthcare services including preventive care, wellness programs, and specialized treatments.",
			Category:    "Healthcare",
			Location:    "New York, NY",
			Services:    []string{"Primary Care", "Wellness Programs", "Specialized Care", "Telemedicine"},
			IndustryRules: &models.IndustryRules{
				Keywords:        []string{"health", "medical", "wellness", "care", "treatment", "therapy", "diagnosis"},
				Priority:        priority(7),
				Requirements:    []string{"Medical License", "Board Certification", "HIPAA Compliance"},
				Specializations: []string{"Primary Care", "Preventive Medicine", "Telemedicine"},
			},
		},
	},
}

var defaultCategories = []string{
	"Plumbing",
	"Electrical",
	"HVAC",
	"Roofing",
	"Renovation",
	"General Repairs",
	"Technology",
	"Healthcare",
}

// Seed loads the category catalogue and the sample business profiles. The
// composition root calls it once at startup.
func (s *Store) Seed(ctx context.Context) error {
	s.mu.Lock()
	if len(s.categories) == 0 {
		for i, name := range defaultCategories {
			s.categories = append(s.categories, models.Category{ID: i + 1, Name: name})
		}
	}
	s.mu.Unlock()

	for _, sample := range sampleBusinesses {
		u, err := s.CreateUser(ctx, sample.user)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", sample.user.Username, err)
		}
		b, err := s.CreateBusiness(ctx, u.ID, sample.business)
		if err != nil {
			return fmt.Errorf("seed business %s: %w", sample.user.Name, err)
		}
		s.logger.Info("seeded business", zap.String("name", sample.user.Name), zap.Int("user_id", u.ID), zap.Int("business_id", b.ID))
	}
	return nil
}
