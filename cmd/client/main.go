package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/saeidalz13/battleship-tcp/client"
	mb "github.com/saeidalz13/battleship-tcp/models/battleship"
	mc "github.com/saeidalz13/battleship-tcp/models/connection"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:5555", "server address for the TCP transport")
	wsURL := flag.String("ws", "", "websocket URL, e.g. ws://127.0.0.1:9191/battleship; overrides -addr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer := &terminalRenderer{out: os.Stdout}

	var (
		c   *client.Client
		err error
	)
	if *wsURL != "" {
		c, err = client.DialWs(ctx, *wsURL, renderer)
	} else {
		c, err = client.DialTCP(ctx, *addr, renderer)
	}
	if err != nil {
		log.Fatalln(err)
	}
	defer c.Close()

	go readCommands(ctx, c, stop)

	if err := c.Run(ctx); err != nil {
		log.Println("connection lost:", err)
	}
}

func readCommands(ctx context.Context, c *client.Client, stop context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := runCommand(c, strings.TrimSpace(scanner.Text())); err != nil {
			if errors.Is(err, errQuit) {
				stop()
				return
			}
			fmt.Println(err)
		}
	}
}

var errQuit = errors.New("quit")

func runCommand(c *client.Client, line string) error {
	cmd, args, _ := strings.Cut(line, " ")

	switch cmd {
	case "":
		return nil

	case "place":
		decoder := mc.NewDecoder()
		msg, _, err := decoder.Decode(mc.TagShipPositions + ":" + strings.ReplaceAll(args, " ", ""))
		if err != nil {
			return fmt.Errorf("usage: place r:c,r:c,... (%d cells)", mb.DefaultFleet().TotalCells())
		}
		return c.PlaceFleet(msg.Placement)

	case "fire":
		fields := strings.Fields(args)
		if len(fields) != 2 {
			return errors.New("usage: fire r c")
		}
		row, errRow := strconv.Atoi(fields[0])
		col, errCol := strconv.Atoi(fields[1])
		if errRow != nil || errCol != nil {
			return errors.New("usage: fire r c")
		}
		return c.Fire(row, col)

	case "quit", "exit":
		return errQuit
	}

	return fmt.Errorf("unknown command %q; use place, fire or quit", cmd)
}
