package main

import (
	"context"
	"log"

	"tailorlink/internal/database"
	"tailorlink/internal/domain"
	"tailorlink/internal/modules/notification"
	"tailorlink/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	db, err := database.Connect("tailorlink.db")
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}
	if err := notification.AutoMigrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	// Cleanup old data (in safe order to avoid foreign key errors)
	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM notifications")
	db.Exec("DELETE FROM invoices")
	db.Exec("DELETE FROM order_items")
	db.Exec("DELETE FROM orders")
	db.Exec("DELETE FROM offer_negotiations")
	db.Exec("DELETE FROM offers")
	db.Exec("DELETE FROM users")

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	offers := repository.NewOfferRepository(db)

	log.Println("Creating users...")

	customerHash, _ := bcrypt.GenerateFromPassword([]byte("customer123"), bcrypt.DefaultCost)
	customer := &domain.User{
		Email:        "customer@tailorlink.local",
		PasswordHash: string(customerHash),
		Role:         domain.RoleCustomer,
		Name:         "Demo Customer",
	}
	if err := users.Create(ctx, customer); err != nil {
		log.Fatal("seed customer failed:", err)
	}

	tailorHash, _ := bcrypt.GenerateFromPassword([]byte("tailor123"), bcrypt.DefaultCost)
	tailors := []*domain.User{
		{Email: "tailor1@tailorlink.local", PasswordHash: string(tailorHash), Role: domain.RoleTailor, Name: "Atelier One"},
		{Email: "tailor2@tailorlink.local", PasswordHash: string(tailorHash), Role: domain.RoleTailor, Name: "Stitch & Co"},
	}
	for _, t := range tailors {
		if err := users.Create(ctx, t); err != nil {
			log.Fatal("seed tailor failed:", err)
		}
	}

	log.Println("Creating offers...")
	demoOffers := []*domain.Offer{
		{
			CustomerID:  customer.ID,
			TailorID:    tailors[0].ID,
			Amount:      100,
			Description: "Three-piece suit, wool blend",
			Status:      domain.OfferPending,
		},
		{
			CustomerID:  customer.ID,
			TailorID:    tailors[1].ID,
			Amount:      45,
			Description: "Hem and taper two pairs of trousers",
			Status:      domain.OfferPending,
		},
	}
	for _, o := range demoOffers {
		if err := offers.Create(ctx, o); err != nil {
			log.Fatal("seed offer failed:", err)
		}
	}

	log.Printf("Seed complete: 1 customer, %d tailors, %d offers", len(tailors), len(demoOffers))
}
