package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"

	"esports-scheduler/internal/config"
	"esports-scheduler/internal/database"
	"esports-scheduler/internal/domain/computer"
	"esports-scheduler/internal/domain/team"
	"esports-scheduler/internal/domain/user"
	jwtsvc "esports-scheduler/internal/pkg/jwt"
)

const computerCount = 15

var games = []string{"Valorant", "League of Legends", "Rocket League", "Overwatch", "CS2"}

var admins = []struct {
	email string
	name  string
}{
	{"valadmin@udemesports.gg", "Valorant"},
	{"loladmin@udemesports.gg", "League of Legends"},
	{"overwatchadmin@udemesports.gg", "Overwatch"},
	{"rladmin@udemesports.gg", "Rocket League"},
	{"president@udemesports.gg", "President"},
	{"scheduler@udemesports.gg", "Scheduler"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running migrations...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate failed:", err)
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "ChangeMe#1"
		log.Println("SEED_ADMIN_PASSWORD not set, using the default password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("hash password:", err)
	}

	// ================== ADMINS ==================
	log.Println("Upserting admins...")
	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	seeded := make([]user.User, 0, len(admins))
	for _, a := range admins {
		u := user.User{
			ID:           uuid.NewString(),
			Email:        a.email,
			Name:         a.name,
			Role:         user.RoleAdmin,
			PasswordHash: string(hash),
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "password_hash", "updated_at"}),
		}).Create(&u).Error
		if err != nil {
			log.Fatalf("upsert admin %s: %v", a.email, err)
		}
		// on conflict the generated id was not written; read back the stored one
		if err := db.Where("email = ?", a.email).First(&u).Error; err != nil {
			log.Fatalf("reload admin %s: %v", a.email, err)
		}
		seeded = append(seeded, u)
	}

	// ================== COMPUTERS ==================
	log.Println("Creating computers...")
	for i := 1; i <= computerCount; i++ {
		c := computer.Computer{Label: fmt.Sprintf("PC-%02d", i), IsActive: true}
		// existing rows keep their active flag
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error; err != nil {
			log.Fatalf("create %s: %v", c.Label, err)
		}
	}

	// ================== TEAMS ==================
	log.Println("Creating teams...")
	for _, game := range games {
		for _, letter := range []string{"A", "B"} {
			t := team.Team{
				ID:        teamID(game, letter),
				Name:      game + " " + letter,
				GameTitle: game,
			}
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&t).Error; err != nil {
				log.Fatalf("create team %s: %v", t.ID, err)
			}
		}
	}

	log.Printf("Seed complete: %d admins, %d computers, A/B teams for %d games.", len(admins), computerCount, len(games))
	log.Println("Admin tokens:")
	for _, u := range seeded {
		token, err := j.GenerateToken(u.ID, u.Role)
		if err != nil {
			log.Fatalf("sign token for %s: %v", u.Email, err)
		}
		log.Printf("  %-32s %s", u.Email, token)
	}
}

func teamID(game, letter string) string {
	slug := strings.Join(strings.Fields(strings.ToLower(game)), "-")
	return "team-" + slug + "-" + strings.ToLower(letter)
}
