package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	sampquery "github.com/notedevil/samp-query"
)

var (
	timeout = pflag.Duration("timeout", 5*time.Second, "overall deadline for the initial connection checks")
	verbose = pflag.BoolP("verbose", "v", false, "log sent and received datagrams")
)

func main() {
	pflag.Parse()
	if code := run(pflag.Args()); code != 0 {
		os.Exit(code)
	}
}

func run(args []string) int {
	header := "samp-query RCON client"
	fmt.Println(header)
	fmt.Println(strings.Repeat("=", len(header)))
	fmt.Println()

	if len(args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] host port rcon_password\n", os.Args[0])
		return 2
	}

	host := args[0]
	port, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid port %q: %v\n", args[1], err)
		return 2
	}

	logger := logrus.New()
	logger.SetFormatter(&nested.Formatter{
		HideKeys: false,
		NoColors: true,
	})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	client := sampquery.NewClient(host, uint16(port), sampquery.Config{
		RCONPassword: args[2],
		Logger:       logger.WithField("proc", "samp-rcon"),
	})
	defer client.Close()

	addr := fmt.Sprintf("%s:%d", host, port)
	fmt.Printf("Connecting to %s...\n", addr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ping, err := client.Ping(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server at %s is offline.\n", addr)
		return 1
	}
	info, err := client.Info(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server at %s is offline.\n", addr)
		return 1
	}
	isOMP, err := client.IsOMP(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server at %s is offline.\n", addr)
		return 1
	}

	fmt.Print("Connected.\n\n")

	title := "Server info:"
	fmt.Println(title)
	fmt.Println(strings.Repeat("-", len(title)))
	fmt.Printf("Name: %s\n", info.Name)
	fmt.Printf("Gamemode: %s\n", info.Gamemode)
	fmt.Printf("Language: %s\n", info.Language)
	fmt.Printf("Players: %d/%d\n", info.Players, info.MaxPlayers)
	fmt.Printf("Ping: %dms\n", ping.Milliseconds())
	fmt.Println("Password:", yesNo(info.Password))
	fmt.Println("Is open.mp:", yesNo(isOMP))
	fmt.Println()

	// Verify the password before dropping into the prompt.
	_, err = client.RCON(ctx, "echo")
	switch {
	case errors.Is(err, sampquery.ErrRCONDisabled):
		fmt.Fprintf(os.Stderr, "RCON is disabled on %s.\n", addr)
		return 1
	case errors.Is(err, sampquery.ErrInvalidRCONPassword):
		fmt.Fprintf(os.Stderr, "Invalid RCON password for %s.\n", addr)
		return 1
	case err != nil:
		fmt.Fprintf(os.Stderr, "RCON error: %v\n", err)
		return 1
	}

	stdin := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("rcon@%s # ", addr)
		if !stdin.Scan() {
			fmt.Println()
			break
		}

		command := strings.TrimSpace(stdin.Text())
		if command == "" {
			continue
		}
		if command == "quit" {
			break
		}

		if command == "exit" {
			if !prompt(stdin, "Are you sure you want to shut your server down?", false) {
				continue
			}
			_, err := client.RCON(context.Background(), command)
			if err != nil && !errors.Is(err, sampquery.ErrRCONDisabled) {
				// The server going away mid-shutdown is the expected outcome.
				fmt.Fprintf(os.Stderr, "RCON error: %v\n", err)
			}
			break
		}

		// Safety margins can't hurt here.
		cmdCtx, cmdCancel := context.WithTimeout(context.Background(), (ping+5*time.Second)*10)
		output, err := client.RCON(cmdCtx, command)
		cmdCancel()
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			fmt.Println("Unknown command or variable:", command)
		case errors.Is(err, sampquery.ErrRCONDisabled):
			fmt.Println("No response.")
		case err != nil:
			fmt.Fprintf(os.Stderr, "RCON error: %v\n", err)
		default:
			fmt.Println(output)
		}
	}

	fmt.Println("Goodbye, have a nice day!")
	return 0
}

// prompt asks a yes/no question and keeps asking until the answer parses.
// EOF means no.
func prompt(stdin *bufio.Scanner, text string, defaultYes bool) bool {
	choices := "y/N"
	if defaultYes {
		choices = "Y/n"
	}

	for {
		fmt.Printf("%s (%s) ", text, choices)
		if !stdin.Scan() {
			fmt.Println()
			return false
		}

		switch strings.ToLower(strings.TrimSpace(stdin.Text())) {
		case "":
			return defaultYes
		case "y", "yes":
			return true
		case "n", "no":
			return false
		default:
			fmt.Printf("Invalid response: %q. Valid choices are: y, yes, n, no\n", stdin.Text())
		}
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
