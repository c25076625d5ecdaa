// Command site-preview fetches an owner's layout from the REST backend and prints a terminal
// preview of the landing page, rotating the hero slideshow until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/debemdeboas/the-kennel/internal/config"
	"github.com/debemdeboas/the-kennel/internal/gateway"
	"github.com/debemdeboas/the-kennel/internal/logger"
	"github.com/debemdeboas/the-kennel/internal/model"
	"github.com/debemdeboas/the-kennel/internal/render"
)

func main() {
	backend := flag.String("backend", "http://localhost:12600", "Base URL of the layout backend")
	owner := flag.String("owner", "", "Site owner to preview")
	timeout := flag.Duration("timeout", 10*time.Second, "Request timeout")
	showJSON := flag.Bool("json", false, "Print the raw layout config instead of the preview")
	style := flag.String("style", "monokai", "Syntax color style for -json")
	once := flag.Bool("once", false, "Print a single frame and exit")
	flag.Parse()

	log := logger.New("warn", logger.FormatConsole)
	gateway.SetLogger(log)
	render.SetLogger(log)

	if *owner == "" {
		log.Fatal().Msg("The --owner flag is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := gateway.NewClient(*backend, *timeout).GetLayout(ctx, model.OwnerID(*owner))
	if err != nil {
		log.Fatal().Err(err).Str("owner", *owner).Msg("Failed to fetch layout")
	}

	if *showJSON {
		if err := highlightJSON(os.Stdout, cfg, *style); err != nil {
			log.Fatal().Err(err).Msg("Failed to print layout")
		}
		fmt.Println()
		return
	}

	views := cfg.Views()
	background := config.StaticUrlPath + "hero-default.svg"
	frame := func(slide int) {
		fmt.Println(renderPreview(render.BuildLanding(views, slide, background)))
		fmt.Println(lipgloss.NewStyle().Faint(true).Render(time.Now().Format(time.TimeOnly)))
	}

	frame(0)
	if *once {
		return
	}

	count := len(render.BuildLanding(views, 0, background).Hero.Slides)
	render.NewSlideshow(count, frame).Run(ctx)
}
