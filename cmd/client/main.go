package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects to the server, prints every inbound frame and sends one frame per typed line.
func run() (int, error) {
	config, err := LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	header := http.Header{}
	header.Set("Origin", config.Origin)
	socket, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, header)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = socket.Close()
	}()

	fmt.Println(help)
	log.Info(fmt.Sprintf(">>> Connected to %s (Ctrl+C to quit)", config.ServerURL))

	readErr := make(chan error, 1)
	go func() {
		for {
			_, raw, err := socket.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			fmt.Println(render(raw, config.Colours))
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping client...")
			_ = socket.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return exitOK, nil
		case err := <-readErr:
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection error: %w", err)
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			payload, err := parseLine(line, os.ReadFile)
			if err != nil {
				if errors.Is(err, errUsage) {
					fmt.Println(err)
					continue
				}
				log.Warn("Command failed", "error", err)
				continue
			}
			if err := socket.WriteMessage(websocket.TextMessage, payload); err != nil {
				return exitRuntime, fmt.Errorf("send failed: %w", err)
			}
		}
	}
}
