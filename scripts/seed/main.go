// Command seed provisions a development database with an admin account
// and a handful of students so the fee endpoints can be exercised
// locally. It is idempotent: existing rows are left untouched.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/edulink/school-fees-api/pkg/config"
	"github.com/edulink/school-fees-api/pkg/database"
)

type seedUser struct {
	Email    string
	Password string
	FullName string
	Role     string
}

type seedStudent struct {
	FullName string
	ClassID  string
}

var users = []seedUser{
	{Email: "admin@school.local", Password: "admin123", FullName: "Site Administrator", Role: "ADMIN"},
	{Email: "accounts@school.local", Password: "accounts123", FullName: "Fee Accountant", Role: "ACCOUNTANT"},
}

var students = []seedStudent{
	{FullName: "Aarav Sharma", ClassID: "10-A"},
	{FullName: "Diya Patel", ClassID: "10-A"},
	{FullName: "Rohan Gupta", ClassID: "10-B"},
	{FullName: "Siti Rahma", ClassID: "11-A"},
	{FullName: "Budi Santoso", ClassID: "11-B"},
}

func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "overall seed timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := seedUsers(ctx, db); err != nil {
		log.Fatalf("failed to seed users: %v", err)
	}
	if err := seedStudents(ctx, db); err != nil {
		log.Fatalf("failed to seed students: %v", err)
	}

	log.Println("seed complete")
}

func seedUsers(ctx context.Context, db *sqlx.DB) error {
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO users (id, email, password_hash, full_name, role, active)
			VALUES ($1, $2, $3, $4, $5, true)
			ON CONFLICT (email) DO NOTHING`,
			uuid.NewString(), u.Email, string(hash), u.FullName, u.Role)
		if err != nil {
			return err
		}
		log.Printf("user ready: %s (%s)", u.Email, u.Role)
	}
	return nil
}

func seedStudents(ctx context.Context, db *sqlx.DB) error {
	for _, s := range students {
		var exists bool
		if err := db.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM students WHERE full_name = $1 AND class_id = $2)`,
			s.FullName, s.ClassID); err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := db.ExecContext(ctx, `
			INSERT INTO students (id, full_name, class_id, active)
			VALUES ($1, $2, $3, true)`,
			uuid.NewString(), s.FullName, s.ClassID); err != nil {
			return err
		}
		log.Printf("student ready: %s (%s)", s.FullName, s.ClassID)
	}
	return nil
}
