package main

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"karolbroda.com/chromaplay/internal/colors"
	"karolbroda.com/chromaplay/internal/player"
)

var (
	// flags for player test
	testService string
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "mpris player utilities",
	Long:  `discover and test mpris-compatible players for the mpris audio backend.`,
}

var playerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list available mpris players",
	Long:  `list all mpris-compatible players currently running on the system.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		services, err := player.ListPlayers(bus)
		if err != nil {
			return err
		}

		if len(services) == 0 {
			fmt.Println("no mpris players found")
			fmt.Println("\ncheck if your player is running and supports mpris")
			return nil
		}

		fmt.Printf("found %d mpris player(s):\n\n", len(services))
		for _, service := range services {
			if identity := player.Identity(bus, service); identity != "" {
				fmt.Printf("  %s (%s)\n", service, identity)
			} else {
				fmt.Printf("  %s\n", service)
			}
		}

		fmt.Println("\nuse --backend mpris --mpris-service <name> to play previews through one of them")

		return nil
	},
}

var playerTestCmd = &cobra.Command{
	Use:   "test",
	Short: "test connection to mpris player",
	Long:  `test the connection to an mpris player and display what it is playing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		serviceName := cfg.MprisService
		if testService != "" {
			serviceName = testService
		}

		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		fmt.Printf("testing connection to: %s\n\n", serviceName)

		svc, err := player.NewService(bus, player.Config{Service: serviceName})
		if err != nil {
			return fmt.Errorf("failed to connect to player: %w", err)
		}

		if identity := player.Identity(bus, serviceName); identity != "" {
			fmt.Printf("player identity: %s\n", identity)
		}

		status, err := svc.PlaybackStatus()
		if err != nil {
			return fmt.Errorf("player did not answer: %w", err)
		}
		fmt.Printf("status: connected ✓\n\n")

		current, err := svc.NowPlaying()
		if err != nil || current.Name == "" {
			fmt.Println("no track currently loaded")
			return nil
		}

		fmt.Println("current track:")
		fmt.Printf("  title:  %s\n", current.Name)
		if line := current.ArtistLine(); line != "" {
			fmt.Printf("  artist: %s\n", line)
		}
		if current.Album != "" {
			fmt.Printf("  album:  %s\n", current.Album)
		}
		fmt.Printf("  state:  %s\n", status)
		if position, err := svc.GetCurrentPosition(); err == nil && position > 0 {
			fmt.Printf("  at:     %s / %s\n",
				colors.FormatSeconds(position), colors.FormatSeconds(float64(current.DurationSecs)))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(playerCmd)

	playerCmd.AddCommand(playerListCmd)
	playerCmd.AddCommand(playerTestCmd)

	playerTestCmd.Flags().StringVar(&testService, "service", "", "mpris service to test")
}
