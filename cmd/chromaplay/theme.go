package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"karolbroda.com/chromaplay/internal/artwork"
	"karolbroda.com/chromaplay/internal/colors"
	"karolbroda.com/chromaplay/internal/config"
	"karolbroda.com/chromaplay/internal/overlay"
	"karolbroda.com/chromaplay/internal/theme"
)

var (
	// flags for theme
	themeHTMLPath string
	themeNoArt    bool
)

var themeCmd = &cobra.Command{
	Use:   "theme <image-url>",
	Short: "build a theme from an image",
	Long:  `extract the dominant colors of an image and print the gradient theme built from them.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extractor := artwork.NewExtractor(artwork.ExtractorConfig{})

		ctx, cancel := context.WithTimeout(context.Background(), config.HTTPTimeoutSeconds*time.Second)
		defer cancel()

		found, img, err := extractor.ExtractWithImage(ctx, args[0], config.PaletteSize)
		if err != nil {
			return fmt.Errorf("failed to extract palette: %w", err)
		}
		palette, err := theme.PaletteFrom(found)
		if err != nil {
			return err
		}
		th := theme.Build(palette)

		if !themeNoArt {
			for _, line := range artwork.RenderHalfBlockArt(img, 16, 8) {
				fmt.Println("  " + line)
			}
			fmt.Println()
		}
		printTheme(os.Stdout, th)

		if themeHTMLPath != "" {
			doc := theme.NewDocument()
			doc.AddStyle(overlay.BaseCSS)
			doc.Apply(th)
			if err := os.WriteFile(themeHTMLPath, []byte(doc.HTML(th.Name, nil)), 0644); err != nil {
				return fmt.Errorf("failed to write html: %w", err)
			}
			fmt.Printf("\nwrote %s\n", themeHTMLPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themeCmd)

	themeCmd.Flags().StringVar(&themeHTMLPath, "html", "", "also write a preview page to this path")
	themeCmd.Flags().BoolVar(&themeNoArt, "no-art", false, "do not print the image preview")
}

func printTheme(out io.Writer, th theme.Theme) {
	fmt.Fprintf(out, "name: %s\n\ncolors:\n", th.Name)
	for _, hex := range th.Colors.Hexes() {
		swatch := lipgloss.NewStyle().
			Background(lipgloss.Color(hex)).
			Foreground(lipgloss.Color(colors.TextOn(hex))).
			Render("  " + hex + "  ")
		fmt.Fprintf(out, "  %s\n", swatch)
	}
	fmt.Fprintf(out, "\nstyle:\n  %s\n\nkeyframes:\n  %s\n", th.BackgroundStyle, th.KeyframesCSS)

	fmt.Fprintln(out, "\npreview:")
	for _, line := range theme.Frame(th, 48, 4, 0) {
		fmt.Fprintf(out, "  %s\n", line)
	}
}
