package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			for _, table := range []string{"permission_requests", "pengadaan_edit_logs", "pengadaans", "users"} {
				if _, err := db.Exec("DELETE FROM " + table); err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		users := []struct {
			Email string
			Name  string
			Role  string
		}{
			{"sari@mail.com", "Sari", "user"},
			{"budi@mail.com", "Budi", "user"},
			{"padil@mail.com", "Padil Admin", "admin"},
		}

		for _, u := range users {
			var exists int
			if err := db.QueryRow("SELECT 1 FROM users WHERE email = $1", u.Email).Scan(&exists); err == nil {
				fmt.Printf("user %s already exists; skipping\n", u.Email)
				continue
			}

			if _, err := db.Exec(
				"INSERT INTO users (email, name, password_hash, role, status, created_at, updated_at) VALUES ($1, $2, $3, $4, 'active', now(), now())",
				u.Email, u.Name, string(hash), u.Role); err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			fmt.Printf("Seeded %s user: %s\n", u.Role, u.Email)
		}

		var sariID int64
		if err := db.QueryRow("SELECT id FROM users WHERE email = $1", "sari@mail.com").Scan(&sariID); err != nil {
			log.Fatalf("failed to lookup sari user id: %v", err)
		}

		pengadaans := []struct {
			Title     string
			Category  string
			Vendor    string
			AmountIDR int64
			Status    string
			Editable  bool
		}{
			{"Laptop untuk tim engineering", "peralatan", "PT Maju Jaya", 45000000, "draft", true},
			{"Alat tulis kantor Q3", "perlengkapan", "CV Sumber Rejeki", 2500000, "draft", true},
			{"Lisensi software akuntansi", "software", "PT Solusi Digital", 12000000, "submitted", false},
		}

		for _, p := range pengadaans {
			var exists int
			if err := db.QueryRow("SELECT 1 FROM pengadaans WHERE title = $1", p.Title).Scan(&exists); err == nil {
				continue
			}

			if _, err := db.Exec(
				"INSERT INTO pengadaans (title, category, vendor, amount_idr, status, is_editable, created_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())",
				p.Title, p.Category, p.Vendor, p.AmountIDR, p.Status, p.Editable, sariID); err != nil {
				log.Fatalf("failed to insert pengadaan %s: %v", p.Title, err)
			}
			fmt.Printf("Seeded pengadaan: %s\n", p.Title)
		}

		fmt.Println("Seeding complete")
	},
}
