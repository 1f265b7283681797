package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"pickup_portal_backend/internal/locations"
	"pickup_portal_backend/internal/locations/transport"
	"pickup_portal_backend/internal/maps"
	"pickup_portal_backend/platform/apperr"
	"pickup_portal_backend/platform/config"
	"pickup_portal_backend/platform/logger"
	"pickup_portal_backend/platform/validator"

	"github.com/google/uuid"
)

func main() {
	address := flag.String("address", "", "free-text address to geocode")
	link := flag.String("link", "", "pasted map link")
	city := flag.String("city", "", "city field of the form")
	wait := flag.Duration("wait", 10*time.Second, "how long to wait for the resolution")
	flag.Parse()

	if *address == "" && *link == "" {
		fmt.Fprintln(os.Stderr, "usage: location-resolve -address TEXT | -link URL [-city NAME]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	cfg.SubmitWaitTimeout = *wait

	log := logger.New(cfg.Env)
	log.Info("resolving location", "address", *address, "link", *link)

	module, err := locations.NewModule(cfg, maps.NewService(cfg, nil, log), nil, validator.New(), log)
	if err != nil {
		panic("failed to initialize locations module: " + err.Error())
	}
	defer module.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), *wait+5*time.Second)
	defer cancel()

	sessions := module.Service()
	operator := uuid.New()
	opened, err := sessions.Open(ctx, operator, transport.OpenSessionRequest{
		RawAddress: *address,
		MapLink:    *link,
		City:       *city,
	})
	if err != nil {
		panic("failed to open session: " + err.Error())
	}

	coord, err := sessions.Submit(ctx, operator, opened.ID)
	if err != nil {
		if apperr.Is(err, apperr.KindUnprocessable) {
			view, _ := sessions.Get(ctx, operator, opened.ID)
			fmt.Printf("unresolved: enter the coordinates manually (%s)\n", view.LastError)
			os.Exit(1)
		}
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			fmt.Fprintln(os.Stderr, appErr.Message)
			os.Exit(1)
		}
		panic(err)
	}

	fmt.Printf("%s source=%s\n", coord.Coordinate.String(), coord.Source)
}
