package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// 로컬 개발용 시드 도구: 게임 서버 하나와 idle 매치 두 개를 등록한다.
// 프로덕션에서는 서버 등록 서브시스템이 이 일을 한다.
func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file")
	}

	// Get database URL from environment
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set in environment")
	}

	// Connect to database
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	// Test connection
	err = db.Ping()
	if err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	fmt.Println("Connected to database successfully")

	serverID := uuid.New().String()
	_, err = db.Exec(`
		INSERT INTO servers (server_id, machine_id, status, realm, placement, ref, heartbeat_date)
		VALUES ($1, $2, 'active', 'dev', 'local', 'latest', NOW())
	`, serverID, uuid.New().String())
	if err != nil {
		log.Fatal("Failed to insert server:", err)
	}
	fmt.Println("Registered local server:", serverID)

	for i := 0; i < 2; i++ {
		matchID := uuid.New().String()
		_, err = db.Exec(`
			INSERT INTO matches (match_id, server_id, status, max_players, num_players, status_date)
			VALUES ($1, $2, 'idle', 2, 0, NOW())
		`, matchID, serverID)
		if err != nil {
			log.Fatal("Failed to insert match:", err)
		}
		fmt.Println("Added idle match:", matchID)
	}
}
