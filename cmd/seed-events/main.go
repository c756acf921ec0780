package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"event-ticketing-core/internal/config"
	"event-ticketing-core/internal/database"
	"event-ticketing-core/internal/models"
	"event-ticketing-core/internal/repositories"
)

type seedTicketType struct {
	Name        string
	Description string
	Price       int // in cents
	Quantity    int
}

type seedEvent struct {
	Title       string
	Start       time.Time
	Duration    time.Duration
	Status      models.EventStatus
	TicketTypes []seedTicketType
}

func main() {
	organizerEmail := flag.String("organizer", "organizer@example.com", "Email of the organizer owning the seeded events")
	officerEmail := flag.String("officer", "gate@example.com", "Email of the security officer assigned to every seeded event")
	flag.Parse()

	fmt.Println("🌱 Seeding events")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.NewConnection(database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	ctx := context.Background()

	userRepo := repositories.NewUserRepository(db.DB)
	eventRepo := repositories.NewEventRepository(db.DB)
	ticketRepo := repositories.NewTicketRepository(db.DB)
	officerRepo := repositories.NewOfficerRepository(db.DB)

	organizer, err := findOrCreateUser(ctx, userRepo, *organizerEmail, "Seed Organizer", models.UserRoleOrganizer)
	if err != nil {
		log.Fatal("Failed to prepare organizer:", err)
	}
	officer, err := findOrCreateUser(ctx, userRepo, *officerEmail, "Gate Officer", models.UserRoleOfficer)
	if err != nil {
		log.Fatal("Failed to prepare officer:", err)
	}

	day := time.Now().Truncate(24 * time.Hour)
	events := []seedEvent{
		{
			Title:    "Harbour Lights Festival",
			Start:    day.AddDate(0, 1, 0).Add(18 * time.Hour),
			Duration: 6 * time.Hour,
			Status:   models.EventUpcoming,
			TicketTypes: []seedTicketType{
				{"Early Bird", "Limited time early bird pricing", 1500, 100},
				{"General Admission", "Standard festival access", 2500, 400},
				{"VIP", "Includes lounge access and premium viewing", 10000, 25},
			},
		},
		{
			Title:    "City Jazz Night",
			Start:    day.AddDate(0, 0, 14).Add(20 * time.Hour),
			Duration: 4 * time.Hour,
			Status:   models.EventUpcoming,
			TicketTypes: []seedTicketType{
				{"Standing", "Standing room on the main floor", 3000, 150},
				{"Table", "Reserved table seat", 6500, 40},
			},
		},
		{
			Title:    "Developer Conference",
			Start:    day.Add(9 * time.Hour),
			Duration: 8 * time.Hour,
			Status:   models.EventOngoing,
			TicketTypes: []seedTicketType{
				{"Conference Pass", "Access to all talks", 20000, 300},
			},
		},
	}

	for _, e := range events {
		total := 0
		for _, tt := range e.TicketTypes {
			total += tt.Quantity
		}

		event, err := eventRepo.Create(ctx, &models.EventCreateRequest{
			OrganizerID:  organizer.ID,
			Title:        e.Title,
			StartDate:    e.Start,
			EndDate:      e.Start.Add(e.Duration),
			TotalTickets: total,
			Status:       e.Status,
		})
		if err != nil {
			log.Printf("❌ Failed to create event %q: %v", e.Title, err)
			continue
		}
		fmt.Printf("✅ Created event: %s (ID: %d)\n", event.Title, event.ID)

		for _, tt := range e.TicketTypes {
			ticketType, err := ticketRepo.CreateTicketType(ctx, &models.TicketTypeCreateRequest{
				EventID:     event.ID,
				Name:        tt.Name,
				Description: tt.Description,
				Price:       tt.Price,
				Quantity:    tt.Quantity,
			})
			if err != nil {
				log.Printf("❌ Failed to create ticket type %q: %v", tt.Name, err)
				continue
			}
			fmt.Printf("   🎫 %s - $%.2f (%d available)\n", ticketType.Name, float64(ticketType.Price)/100, ticketType.Quantity)
		}

		if _, err := officerRepo.Create(ctx, &models.SecurityOfficerCreateRequest{
			UserID:  officer.ID,
			EventID: event.ID,
			Name:    officer.Name,
		}); err != nil {
			log.Printf("❌ Failed to assign officer to %q: %v", e.Title, err)
			continue
		}
		fmt.Printf("   🛡  Officer %s assigned\n", officer.Email)
	}

	fmt.Println("\n🎉 Seeding completed!")
}

func findOrCreateUser(ctx context.Context, repo *repositories.UserRepository, email, name string, role models.UserRole) (*models.User, error) {
	user, err := repo.GetByEmail(ctx, email)
	if err == nil {
		fmt.Printf("✅ Found existing user: %s (%s)\n", user.Name, user.Email)
		return user, nil
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	user, err = repo.Create(ctx, &models.UserCreateRequest{
		Email: email,
		Name:  name,
		Role:  role,
	})
	if err != nil {
		return nil, err
	}
	fmt.Printf("✅ Created user: %s (%s)\n", user.Name, user.Email)
	return user, nil
}
