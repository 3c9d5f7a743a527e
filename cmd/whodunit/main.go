package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"whodunit/internal/logging"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "review", "--review":
			runReviewMode()
			return
		case "rate":
			if len(os.Args) < 4 {
				fmt.Println("Usage: whodunit rate <id> <rating> [notes]")
				return
			}
			runRatingMode()
			return
		}
	}

	model, cleanup, err := createApp()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer cleanup()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}

func runReviewMode() {
	logger, err := logging.NewInterrogationLogger()
	if err != nil {
		fmt.Printf("Failed to open interrogation database: %v\n", err)
		return
	}
	defer logger.Close()

	logs, err := logger.Recent(10)
	if err != nil {
		fmt.Printf("Failed to get interrogations: %v\n", err)
		return
	}

	if len(logs) == 0 {
		fmt.Println("No interrogations found. Play a case first to generate data!")
		return
	}

	fmt.Printf("Recent interrogations (%d):\n\n", len(logs))

	for _, entry := range logs {
		var metadata logging.InterrogationMetadata
		if err := json.Unmarshal([]byte(entry.Metadata), &metadata); err == nil {
			fmt.Printf("[%d] %s | %s | %v | %s\n",
				entry.ID,
				entry.Timestamp.Format("15:04:05"),
				entry.Suspect,
				metadata.ResponseTime,
				entry.Question)
		} else {
			fmt.Printf("[%d] %s | %s | %s\n", entry.ID, entry.Timestamp.Format("15:04:05"), entry.Suspect, entry.Question)
		}

		fmt.Printf("Response: %s\n", entry.Response)
		if entry.Rating != nil {
			fmt.Printf("Rating: %d/5", *entry.Rating)
			if entry.Notes != nil {
				fmt.Printf(" - %s", *entry.Notes)
			}
		} else {
			fmt.Printf("Rating: not rated")
		}
		fmt.Println("\n" + strings.Repeat("-", 50))
	}

	fmt.Println("\nTo rate an interrogation: whodunit rate <id> <rating> [notes]")
}

func runRatingMode() {
	id, err := strconv.Atoi(os.Args[2])
	if err != nil {
		fmt.Printf("Invalid ID: %v\n", err)
		return
	}

	rating, err := strconv.Atoi(os.Args[3])
	if err != nil {
		fmt.Printf("Invalid rating: %v\n", err)
		return
	}

	if rating < 1 || rating > 5 {
		fmt.Println("Rating must be between 1 and 5")
		return
	}

	var notes string
	if len(os.Args) > 4 {
		notes = strings.Join(os.Args[4:], " ")
	}

	logger, err := logging.NewInterrogationLogger()
	if err != nil {
		fmt.Printf("Failed to open interrogation database: %v\n", err)
		return
	}
	defer logger.Close()

	if err := logger.Rate(id, rating, notes); err != nil {
		fmt.Printf("Failed to rate interrogation: %v\n", err)
		return
	}

	fmt.Printf("Rated interrogation %d as %d/5", id, rating)
	if notes != "" {
		fmt.Printf(" with notes: %s", notes)
	}
	fmt.Println()
}
