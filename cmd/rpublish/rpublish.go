package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/logs"
	"github.com/rpublish/rpublish/server"
	"github.com/rpublish/rpublish/server/identity"
	"golang.org/x/term"
)

func main() {
	parser := argparse.NewParser("rpublish", "Self-hosted publishing server")
	root := parser.String("r", "root", &argparse.Options{Help: "Data directory", Default: "data"})
	port := parser.Int("p", "port", &argparse.Options{Help: "HTTP listen port", Default: 8080})
	bindSessions := parser.Flag("", "bind-sessions", &argparse.Options{Help: "Bind login sessions to the client address they were created from", Default: false})
	sessionTTLHours := parser.Int("", "session-ttl", &argparse.Options{Help: "Session lifetime in hours (0 = until logout)", Default: 0})
	adminUser := parser.String("", "admin-user", &argparse.Options{Help: "Bootstrap admin username (non-interactive first run)", Default: ""})
	adminPassword := parser.String("", "admin-password", &argparse.Options{Help: "Bootstrap admin password (non-interactive first run)", Default: ""})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	options := server.Options{
		Root:         *root,
		BindSessions: *bindSessions,
		SessionTTL:   time.Duration(*sessionTTLHours) * time.Hour,
	}
	if *adminUser != "" && *adminPassword != "" {
		options.AdminSeed = &identity.Seed{Username: *adminUser, Password: *adminPassword}
	}

	srv, err := server.NewServer(logger, options)
	if errors.Is(err, identity.ErrNoUserStore) {
		// First run, and no seed flags. Ask for the initial admin user.
		seed, perr := promptForAdmin()
		if perr != nil {
			logger.Errorf("%v", perr)
			os.Exit(1)
		}
		options.AdminSeed = seed
		srv, err = server.NewServer(logger, options)
	}
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	srv.ListenForKillSignals()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	if err := srv.ListenHTTP(fmt.Sprintf(":%v", *port)); err != nil {
		logger.Infof("ListenHTTP returned: %v", err)
	}
}

// promptForAdmin asks on the terminal for the initial admin username and
// password. The password is read without echo and must be entered twice.
func promptForAdmin() (*identity.Seed, error) {
	fmt.Println("No user store found. Creating the initial admin user.")
	stdin := bufio.NewReader(os.Stdin)
	username := ""
	for username == "" {
		fmt.Print("Admin username: ")
		line, err := stdin.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("Failed to read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	for {
		fmt.Print("Password: ")
		p1, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return nil, fmt.Errorf("Failed to read password: %w", err)
		}
		fmt.Print("Confirm password: ")
		p2, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return nil, fmt.Errorf("Failed to read password: %w", err)
		}
		if len(p1) == 0 {
			fmt.Println("Password may not be empty")
			continue
		}
		if string(p1) != string(p2) {
			fmt.Println("Passwords do not match, try again")
			continue
		}
		return &identity.Seed{Username: username, Password: string(p1)}, nil
	}
}
