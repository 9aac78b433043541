package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	influencerIDs := seedInfluencers(db)
	seedCampaigns(db, influencerIDs)

	log.Println("Seeding completed successfully!")
}

func seedInfluencers(db *sql.DB) map[string]string {
	influencers := []struct {
		Email  string
		Handle string
		Status string
	}{
		{"rina@example.com", "@rinabeauty", "active"},
		{"dimas@example.com", "@dimasgadget", "active"},
		{"ayu@example.com", "@ayukitchen", "active"},
		{"bayu@example.com", "@bayufit", "pending"},
		{"sari@example.com", "@sarifashion", "pending"},
	}

	fmt.Println("Seeding Influencers...")
	ids := make(map[string]string)
	for _, inf := range influencers {
		var id string
		err := db.QueryRow(`
			INSERT INTO influencers (email, tiktok_handle, commission_rate, status)
			VALUES ($1, $2, 15, $3)
			ON CONFLICT (email) DO UPDATE SET status = EXCLUDED.status
			RETURNING id;
		`, inf.Email, inf.Handle, inf.Status).Scan(&id)
		if err != nil {
			log.Printf("Failed to seed influencer %s: %v", inf.Email, err)
			continue
		}
		ids[inf.Email] = id
	}
	return ids
}

func seedCampaigns(db *sql.DB, influencerIDs map[string]string) {
	campaigns := []struct {
		Owner      string
		Product    string
		Target     int64
		Price      int64
		Threshold1 int64
		Threshold2 int64
		Days       int
	}{
		{"rina@example.com", "Serum Vitamin C 30ml", 50, 150000, 25, 50, 14},
		{"rina@example.com", "Masker Wajah Green Tea (isi 10)", 100, 75000, 40, 80, 21},
		{"dimas@example.com", "TWS Earbuds ANC", 50, 450000, 25, 50, 14},
		{"ayu@example.com", "Set Pisau Dapur Premium", 30, 350000, 15, 30, 30},
	}

	fmt.Println("Seeding Campaigns...")
	for _, c := range campaigns {
		ownerID, ok := influencerIDs[c.Owner]
		if !ok {
			log.Printf("Missing influencer ID for %s", c.Owner)
			continue
		}
		_, err := db.Exec(`
			INSERT INTO campaigns (influencer_id, product, target_quantity, price_per_unit,
				discount_threshold_1, discount_threshold_2, deadline, status)
			SELECT $1, $2, $3, $4, $5, $6, NOW() + ($7 || ' days')::interval, 'active'
			WHERE NOT EXISTS (
				SELECT 1 FROM campaigns WHERE influencer_id = $1 AND product = $2
			);
		`, ownerID, c.Product, c.Target, c.Price, c.Threshold1, c.Threshold2, c.Days)
		if err != nil {
			log.Printf("Failed to seed campaign %s: %v", c.Product, err)
		}
	}
}
