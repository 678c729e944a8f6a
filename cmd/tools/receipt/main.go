// Command receipt prints the till receipt of a saved sale, for reprints from
// a back-office terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/toko-pos/internal/auth"
	"github.com/noah-isme/toko-pos/internal/backend"
	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/config"
	"github.com/noah-isme/toko-pos/internal/obs"
	"github.com/noah-isme/toko-pos/internal/pricing"
	"github.com/noah-isme/toko-pos/internal/receipt"
)

func main() {
	var (
		saleID = flag.String("sale", "", "id of the sale to print")
		token  = flag.String("token", "", "bearer token for the backend; signed from JWT_SECRET for -user when empty")
		userID = flag.String("user", "", "user id to sign a token for")
		width  = flag.Int("width", receipt.DefaultWidth, "receipt width in columns")
	)
	flag.Parse()
	if strings.TrimSpace(*saleID) == "" {
		fmt.Fprintln(os.Stderr, "usage: receipt -sale <id> [-token <jwt> | -user <id>]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := obs.NewLoggerTo(os.Stderr, "console", cfg.Obs.LogLevel)

	bearer := strings.TrimSpace(*token)
	if bearer == "" && *userID != "" {
		bearer, err = auth.Sign([]byte(cfg.JWTSecret), cfg.JWTIssuer, *userID, 5*time.Minute)
		if err != nil {
			logger.Fatal().Err(err).Msg("sign token")
		}
	}
	loc, err := time.LoadLocation(cfg.Shop.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Shop.Timezone).Msg("load timezone")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = common.WithBearerToken(ctx, bearer)

	client := backend.NewClient(cfg.BackendBaseURL, backend.NewHTTPClient(cfg.Backend, logger), logger)
	rec, err := client.Sale(ctx, *saleID)
	if err != nil {
		logger.Fatal().Err(err).Str("sale_id", *saleID).Msg("load sale")
	}
	rc := pricing.Project(rec)
	if rc.SaleID == "" {
		rc.SaleID = *saleID
	}
	if len(rc.Derived) > 0 {
		logger.Warn().Strs("fields", rc.Derived).Msg("receipt totals recomputed from items")
	}
	r := receipt.Renderer{
		Shop:     receipt.Shop{Name: cfg.Shop.Name, Address: cfg.Shop.Address, Phone: cfg.Shop.Phone},
		Currency: cfg.CurrencyCode,
		Width:    *width,
		Location: loc,
	}
	fmt.Print(r.Text(rc))
}
