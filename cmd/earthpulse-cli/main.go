package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/mr1hm/earthpulse/internal/alerts"
	"github.com/mr1hm/earthpulse/internal/config"
	"github.com/mr1hm/earthpulse/internal/facility"
	"github.com/mr1hm/earthpulse/internal/geocode"
	"github.com/mr1hm/earthpulse/internal/logging"
	"github.com/mr1hm/earthpulse/internal/models"
	"github.com/mr1hm/earthpulse/internal/observability"
	"github.com/mr1hm/earthpulse/internal/prediction"
	"github.com/mr1hm/earthpulse/internal/repository"
	"github.com/mr1hm/earthpulse/internal/sources"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:        "earthpulse-cli",
		Description: "Query facilities, risk and the alert log from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
			},
		},
		Before: func(ctx *cli.Context) error {
			slog.SetDefault(slog.New(logging.NewHandler(os.Stderr, "text", logging.ParseLevel(ctx.String("log-level")))))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "geocode",
				Usage:     "resolve a city name to a coordinate",
				ArgsUsage: "<city>",
				Action:    geocodeCmd,
			},
			{
				Name:    "facilities",
				Aliases: []string{"f"},
				Usage:   "list emergency facilities around a city or coordinate",
				Flags: append(targetFlags(),
					&cli.IntFlag{
						Name:    "radius",
						Aliases: []string{"r"},
						Usage:   "search radius in meters",
					},
				),
				Action: facilitiesCmd,
			},
			{
				Name:   "predict",
				Usage:  "fetch the hazard prediction and show the alerts it would raise",
				Flags:  targetFlags(),
				Action: predictCmd,
			},
			{
				Name:  "alerts",
				Usage: "list recorded alerts",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "city"},
					&cli.StringFlag{Name: "hazard"},
					&cli.IntFlag{Name: "limit", Value: 20},
					&cli.DurationFlag{Name: "since", Usage: "only alerts newer than this age"},
				},
				Action: alertsCmd,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.Fatalf("%v", err)
	}
}

func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "city", Aliases: []string{"c"}},
		&cli.Float64Flag{Name: "lat"},
		&cli.Float64Flag{Name: "lon"},
	}
}

type deps struct {
	cfg      *config.Config
	metrics  *observability.Metrics
	logger   *slog.Logger
	geocoder *geocode.Client
}

func loadDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	metrics := observability.NewMetricsForTesting()
	logger := slog.Default()
	return &deps{
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		geocoder: geocode.NewClient(cfg.Sources.NominatimURL, cfg.Sources.UserAgent, cfg.Sources.FetchTimeout, metrics, logger),
	}, nil
}

// target resolves --city or --lat/--lon. The city wins when both are given.
func (d *deps) target(ctx *cli.Context) (string, models.Coordinate, error) {
	if city := ctx.String("city"); city != "" {
		c, err := d.geocoder.Search(ctx.Context, city)
		if err != nil {
			return "", models.Coordinate{}, fmt.Errorf("geocode %q: %w", city, err)
		}
		return city, c, nil
	}
	if !ctx.IsSet("lat") || !ctx.IsSet("lon") {
		return "", models.Coordinate{}, fmt.Errorf("--city or --lat and --lon required")
	}
	return "", models.Coordinate{Lat: ctx.Float64("lat"), Lon: ctx.Float64("lon")}, nil
}

func geocodeCmd(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("city argument required")
	}
	d, err := loadDeps()
	if err != nil {
		return err
	}

	c, err := d.geocoder.Search(ctx.Context, ctx.Args().First())
	if err != nil {
		return err
	}
	return printJSON(c)
}

func facilitiesCmd(ctx *cli.Context) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	_, coord, err := d.target(ctx)
	if err != nil {
		return err
	}

	var places sources.PlacesSource
	switch {
	case d.cfg.Sources.PlacesProxyURL != "":
		places = sources.NewPlacesProxyClient(d.cfg.Sources.PlacesProxyURL, d.metrics, d.logger)
	case d.cfg.Sources.GoogleAPIKey != "":
		client, err := sources.NewMapsPlacesClient(d.cfg.Sources.GoogleAPIKey, d.cfg.Facility.SearchRadius)
		if err != nil {
			return err
		}
		places = client
	}

	openData := sources.NewOverpassClient(d.cfg.Sources.OverpassURL, d.cfg.Sources.UserAgent, d.metrics, d.logger)
	fetcher := sources.NewFetcher(openData, places, d.cfg.Sources.FetchTimeout, d.metrics, d.logger)
	agg := facility.NewAggregator(fetcher, d.cfg.Facility.SearchRadius, d.metrics, d.logger)

	set := agg.Aggregate(ctx.Context, coord, ctx.Int("radius"))

	fmt.Printf("Facilities around %s\n", coord)
	fmt.Printf("  %-10s %d\n", models.CategoryNGO, len(set.NGOs))
	for _, cat := range models.Categories[1:] {
		fmt.Printf("  %-10s %d\n", cat, len(set.Categories[cat]))
	}
	for _, n := range set.NGOs {
		fmt.Printf("ngo  %-40s %s (%s)\n", n.DisplayName(), n.Coordinate(), n.Origin)
	}
	return nil
}

func predictCmd(ctx *cli.Context) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	city, coord, err := d.target(ctx)
	if err != nil {
		return err
	}

	client := prediction.NewClient(d.cfg.Sources.PredictionURL, d.cfg.Sources.FetchTimeout, d.metrics, d.logger)
	q := prediction.Query{City: city}
	if city == "" {
		q.Coordinate = &coord
	}
	res, err := client.Predict(ctx.Context, q)
	if err != nil {
		return err
	}

	if city == "" {
		city = res.City
	}
	fmt.Printf("Flood %.0f%%  Wildfire %.0f%%\n", res.Flood.Probability*100, res.Wildfire.Probability*100)
	for _, a := range alerts.Assess(city, res, time.Now()) {
		fmt.Printf("[%s] %s\n  %s\n", a.Tier, a.Title, a.Body)
	}
	return nil
}

func alertsCmd(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	filter := repository.Filter{Limit: ctx.Int("limit")}
	if city := ctx.String("city"); city != "" {
		filter.City = &city
	}
	if hz := ctx.String("hazard"); hz != "" {
		h := models.Hazard(hz)
		filter.Hazard = &h
	}
	if age := ctx.Duration("since"); age > 0 {
		since := time.Now().Add(-age)
		filter.Since = &since
	}

	list, err := db.ListAlerts(ctx.Context, filter)
	if err != nil {
		return err
	}
	return printJSON(list)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
