package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	sampquery "github.com/notedevil/samp-query"
)

// main queries a server for everything it will tell us and, if a password
// was given, runs a couple of RCON commands against it.
func main() {
	if len(os.Args) < 3 || len(os.Args) > 4 {
		log.Fatalf("Usage: %s host port [rcon_password]", os.Args[0])
	}

	port, err := strconv.ParseUint(os.Args[2], 10, 16)
	if err != nil {
		log.Fatalf("Invalid port %q: %v", os.Args[2], err)
	}
	password := ""
	if len(os.Args) == 4 {
		password = os.Args[3]
	}

	client := sampquery.NewClient(os.Args[1], uint16(port), sampquery.Config{
		RCONPassword: password,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ping, err := client.Ping(ctx)
	if err != nil {
		log.Fatalf("Ping error: %v", err)
	}
	fmt.Printf("Ping: %s\n", ping)

	info, err := client.Info(ctx)
	if err != nil {
		log.Fatalf("Error getting info: %v", err)
	}
	fmt.Printf("Server: %s\n", info.Name)
	fmt.Printf("Gamemode: %s\n", info.Gamemode)
	fmt.Printf("Language: %s\n", info.Language)
	fmt.Printf("Players: %d/%d\n", info.Players, info.MaxPlayers)

	// Servers stop answering the player query past 100 players, so give it
	// a couple of round trips at most.
	playersCtx, playersCancel := context.WithTimeout(ctx, 2*ping)
	players, err := client.Players(playersCtx)
	playersCancel()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Println("More than 100 players online, no info returned")
	case err != nil:
		log.Fatalf("Error getting players: %v", err)
	default:
		for _, player := range players {
			fmt.Printf("  %s (Score: %d)\n", player.Name, player.Score)
		}
	}

	isOMP, err := client.IsOMP(ctx)
	if err != nil {
		log.Fatalf("Error probing open.mp: %v", err)
	}
	fmt.Println("Uses open.mp:", isOMP)

	rules, err := client.Rules(ctx)
	if err != nil {
		log.Fatalf("Error getting rules: %v", err)
	}
	for _, rule := range rules {
		fmt.Printf("  %s = %s\n", rule.Name, rule.Value)
	}

	for _, command := range []string{"varlist", "players"} {
		output, err := client.RCON(ctx, command)
		switch {
		case errors.Is(err, sampquery.ErrMissingRCONPassword):
			fmt.Println("You didn't specify a RCON password.")
			return
		case errors.Is(err, sampquery.ErrRCONDisabled):
			fmt.Println("RCON is disabled.")
			return
		case errors.Is(err, sampquery.ErrInvalidRCONPassword):
			fmt.Println("Invalid RCON password.")
			return
		case err != nil:
			log.Fatalf("RCON error: %v", err)
		}
		fmt.Println(output)
	}
}
