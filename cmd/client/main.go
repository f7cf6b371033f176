package main

import (
	"bufio"
	"chat-relay/internal"
	"chat-relay/projection"
	"chat-relay/session"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const defaultSearchLimit = 20

func main() {
	// 1. Load config
	_ = godotenv.Load()
	var config internal.ClientConfig
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(2)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	timeline := projection.NewTimeline()

	// 2. Session client with terminal rendering
	client := session.NewClient(logger, session.Config{
		ServerURL:         config.ServerURL,
		Username:          config.Username,
		Credential:        config.Credential,
		ReconnectInterval: config.ReconnectInterval,
	})

	client.OnMessageReceived(func(username, text string) {
		timeline.Append(username, text)
		name := color.New(color.FgCyan).Render(username)
		fmt.Printf("%s: %s\n", name, text)
	})
	client.OnTypingPinged(func(username string) {
		fmt.Println(color.New(color.FgDarkGray).Render(username + " is typing..."))
	})
	client.OnDisconnected(func(disconnected bool) {
		if disconnected {
			fmt.Println(color.New(color.FgYellow).Render("-- connection lost, retrying --"))
		} else {
			fmt.Println(color.New(color.FgGreen).Render("-- connected --"))
		}
	})
	client.OnError(func(kind, reason string) {
		fmt.Println(color.New(color.FgRed).Render(fmt.Sprintf("server error [%s]: %s", kind, reason)))
	})

	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = client.Stop() }()

	fmt.Printf("Connected as %s. Type a message, or /search <terms>, /history, /quit.\n", config.Username)

	// 3. Read stdin until EOF or /quit
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/history":
			renderHistory(timeline)
		case strings.HasPrefix(line, "/search "):
			terms := strings.TrimPrefix(line, "/search ")
			if err := client.Search(terms, defaultSearchLimit); err != nil {
				fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			}
		default:
			if err := client.SendMessage(line); err != nil {
				fmt.Fprintf(os.Stderr, "Send failed: %v\n", err)
			}
		}
	}
}

func renderHistory(timeline *projection.Timeline) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "User", "Message"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, entry := range timeline.Entries() {
		table.Append([]string{
			entry.At.Format("15:04:05"),
			entry.Username,
			entry.Text,
		})
	}
	table.Render()
}
